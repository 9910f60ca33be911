package table

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
)

// Shapefile is the attribute table (.dbf) of a shapefile. Geometry is carried
// through unchanged when the table is saved.
type Shapefile struct {
	base     string // path without extension
	geomType shp.ShapeType
	raw      []shp.Field
}

// NewShapefile creates a dataset for a .shp or .dbf path
func NewShapefile(path string) *Shapefile {
	return &Shapefile{base: strings.TrimSuffix(path, filepath.Ext(path))}
}

func (s *Shapefile) Name() string { return s.base + ".dbf" }

func (s *Shapefile) Load() (*Frame, error) {
	r, err := shp.Open(s.base + ".shp")
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	s.geomType = r.GeometryType
	s.raw = r.Fields()

	frame := &Frame{Fields: make([]Field, len(s.raw))}
	for i, f := range s.raw {
		frame.Fields[i] = Field{
			Name:      f.String(),
			Kind:      kindOf(f.Fieldtype),
			Size:      f.Size,
			Precision: f.Precision,
		}
	}

	for r.Next() {
		n, shape := r.Shape()
		values := make([]interface{}, len(s.raw))
		for k := range s.raw {
			raw := strings.Trim(r.ReadAttribute(n, k), " \x00")
			values[k] = decodeAttribute(raw, frame.Fields[k].Kind)
		}
		frame.Records = append(frame.Records, &Record{Values: values, Handle: shape})
	}

	return frame, nil
}

func (s *Shapefile) Save(frame *Frame) error {
	if s.raw == nil {
		return fmt.Errorf("shapefile %s saved before load", s.Name())
	}

	tmpBase := s.base + "_tmp"
	w, err := shp.Create(tmpBase+".shp", s.geomType)
	if err != nil {
		return fmt.Errorf("failed to create temp shapefile: %w", err)
	}
	if err := w.SetFields(s.raw); err != nil {
		w.Close()
		removeShapefile(tmpBase)
		return fmt.Errorf("failed to set dbf fields: %w", err)
	}

	for _, rec := range frame.Live() {
		shape, ok := rec.Handle.(shp.Shape)
		if !ok {
			w.Close()
			removeShapefile(tmpBase)
			return fmt.Errorf("record without geometry in %s", s.Name())
		}
		row := int(w.Write(shape))
		for k, v := range rec.Values {
			if err := w.WriteAttribute(row, k, encodeAttribute(v, frame.Fields[k].Kind)); err != nil {
				w.Close()
				removeShapefile(tmpBase)
				return fmt.Errorf("failed to write attribute %s: %w", frame.Fields[k].Name, err)
			}
		}
	}
	if err := closeWriter(w, tmpBase); err != nil {
		removeShapefile(tmpBase)
		return err
	}

	// table before geometry
	for _, ext := range []string{".dbf", ".shx", ".shp"} {
		if err := os.Rename(tmpBase+ext, s.base+ext); err != nil {
			return fmt.Errorf("failed to replace %s%s: %w", s.base, ext, err)
		}
	}
	return nil
}

// closeWriter flushes w and moves its table to <base>.dbf. go-shp v0.1.1
// writes the table to <base>dbf.
func closeWriter(w *shp.Writer, base string) error {
	w.Close()

	if _, err := os.Stat(base + "dbf"); err == nil {
		if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
			return fmt.Errorf("failed to move %sdbf: %w", base, err)
		}
	}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if _, err := os.Stat(base + ext); err != nil {
			return fmt.Errorf("incomplete shapefile %s: %w", base, err)
		}
	}
	return nil
}

func kindOf(fieldType byte) Kind {
	switch fieldType {
	case 'N', 'F':
		return KindNumber
	case 'D':
		return KindDate
	}
	return KindString
}

func decodeAttribute(raw string, kind Kind) interface{} {
	if kind != KindNumber {
		return raw
	}
	if raw == "" {
		return nil
	}
	if v, ok := Number(raw); ok {
		return v
	}
	return raw
}

// go-shp accepts int, float64 and string attribute values
func encodeAttribute(v interface{}, kind Kind) interface{} {
	switch x := v.(type) {
	case nil:
		return ""
	case float64, int, string:
		return x
	}
	if kind == KindNumber {
		if f, ok := Number(v); ok {
			return f
		}
	}
	return FormatValue(v)
}

func removeShapefile(base string) {
	for _, ext := range []string{".shp", ".shx", ".dbf", "dbf"} {
		os.Remove(base + ext)
	}
}
