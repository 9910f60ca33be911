package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CSV is a comma separated file with a header row. All values load as strings.
type CSV struct {
	path string
}

// NewCSV creates a CSV dataset for path
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

func (c *CSV) Name() string { return c.path }

func (c *CSV) Load() (*Frame, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return &Frame{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	frame := &Frame{Fields: make([]Field, len(header))}
	for i, name := range header {
		frame.Fields[i] = Field{Name: name, Kind: KindString}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		values := make([]interface{}, len(header))
		for i := range values {
			if i < len(row) {
				values[i] = row[i]
			} else {
				values[i] = ""
			}
		}
		frame.Records = append(frame.Records, &Record{Values: values})
	}

	return frame, nil
}

func (c *CSV) Save(frame *Frame) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	header := make([]string, len(frame.Fields))
	for i, field := range frame.Fields {
		header[i] = field.Name
	}
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range frame.Live() {
		row := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			row[i] = FormatValue(v)
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp csv: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace csv: %w", err)
	}
	return nil
}
