package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sidecar extensions deleted together with a shapefile
var shapefileParts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg", ".sbn", ".sbx", ".shp.xml"}

// Workspace resolves layer names against a working directory
type Workspace struct {
	dir string
}

// New creates a workspace rooted at dir
func New(dir string) *Workspace {
	return &Workspace{dir: dir}
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path resolves a layer name. Absolute names are returned unchanged.
func (w *Workspace) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.dir, name)
}

// resolve maps a layer name without extension to its shapefile when no file
// or directory of that exact name exists
func (w *Workspace) resolve(name string) string {
	path := w.Path(name)
	if filepath.Ext(path) != "" {
		return path
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path
	}
	if _, err := os.Stat(path + ".shp"); err == nil {
		return path + ".shp"
	}
	return path
}

// Exists reports whether a layer is present. "Events" matches Events.shp.
func (w *Workspace) Exists(name string) (bool, error) {
	_, err := os.Stat(w.resolve(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", name, err)
}

// Delete removes a layer. Shapefiles lose all their sidecar files,
// directories are removed recursively.
func (w *Workspace) Delete(name string) error {
	path := w.resolve(name)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".shp") {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for _, ext := range shapefileParts {
			if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete %s: %w", filepath.Base(base+ext), err)
			}
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
