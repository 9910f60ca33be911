package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Open returns the file dataset matching the extension of path
func Open(path string) (Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbf", ".shp":
		return NewShapefile(path), nil
	case ".csv":
		return NewCSV(path), nil
	}
	return nil, fmt.Errorf("unsupported table format: %s", path)
}
