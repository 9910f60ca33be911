package models

import (
	"fmt"
	"strconv"
)

// Extent is a bounding rectangle as reported by the engine's describe tool
type Extent struct {
	XMin, YMin       float64
	XMax, YMax       float64
	SpatialReference string
}

// String renders the extent in "xmin ymin xmax ymax" form accepted by the engine
func (e Extent) String() string {
	return fmt.Sprintf("%s %s %s %s", ftoa(e.XMin), ftoa(e.YMin), ftoa(e.XMax), ftoa(e.YMax))
}

// ParseExtent builds an extent from describe outputs (xmin, ymin, xmax, ymax, spatial_reference)
func ParseExtent(outputs map[string]string) (Extent, error) {
	var e Extent
	targets := []struct {
		key string
		dst *float64
	}{
		{"xmin", &e.XMin},
		{"ymin", &e.YMin},
		{"xmax", &e.XMax},
		{"ymax", &e.YMax},
	}
	for _, t := range targets {
		raw, ok := outputs[t.key]
		if !ok {
			return Extent{}, fmt.Errorf("extent output %q missing", t.key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Extent{}, fmt.Errorf("invalid extent output %q: %w", t.key, err)
		}
		*t.dst = v
	}
	e.SpatialReference = outputs["spatial_reference"]
	return e, nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
