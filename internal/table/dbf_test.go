package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePoints(t *testing.T, path string) {
	t.Helper()

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("COUNTRY", 32),
		shp.FloatField("LONGITUDE", 19, 6),
	}))

	rows := []struct {
		country string
		lon     float64
		lat     float64
	}{
		{"Sierra Leone", -11.7, 8.4},
		{"Nigeria", 8.1, 9.0},
		{"Guinea", 10.4, 9.9},
	}
	for _, r := range rows {
		n := int(w.Write(&shp.Point{X: r.lon, Y: r.lat}))
		require.NoError(t, w.WriteAttribute(n, 0, r.country))
		require.NoError(t, w.WriteAttribute(n, 1, r.lon))
	}
	require.NoError(t, closeWriter(w, strings.TrimSuffix(path, ".shp")))
}

// countShapes returns the number of geometries and attribute rows on disk
func countShapes(t *testing.T, path string) (int, int) {
	t.Helper()

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	shapes := 0
	for r.Next() {
		shapes++
	}
	return shapes, r.AttributeCount()
}

func TestShapefile_UpdateInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Events_init.shp")
	writePoints(t, path)

	ds := NewShapefile(filepath.Join(filepath.Dir(path), "Events_init.dbf"))
	err := Update(ds, "country", func(c *UpdateCursor) error {
		for c.Next() {
			if FormatValue(c.Value()) == "Nigeria" {
				c.DeleteRow()
			}
		}
		return nil
	})
	require.NoError(t, err)

	shapes, rows := countShapes(t, path)
	assert.Equal(t, 2, shapes)
	assert.Equal(t, 2, rows)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"Events_init.shp", "Events_init.shx", "Events_init.dbf"}, names)

	frame, err := NewShapefile(path).Load()
	require.NoError(t, err)
	require.Len(t, frame.Records, 2)

	assert.Equal(t, KindNumber, frame.Fields[1].Kind)
	assert.Equal(t, "Sierra Leone", frame.Records[0].Values[0])
	assert.Equal(t, -11.7, frame.Records[0].Values[1])
	assert.Equal(t, "Guinea", frame.Records[1].Values[0])

	point, ok := frame.Records[1].Handle.(*shp.Point)
	require.True(t, ok)
	assert.Equal(t, 10.4, point.X)
	assert.Equal(t, 9.9, point.Y)
}

func TestShapefile_MissingFile(t *testing.T) {
	_, err := NewShapefile(filepath.Join(t.TempDir(), "nope.dbf")).Load()
	assert.Error(t, err)
}

func TestShapefile_UpdateNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Events_init.shp")
	writePoints(t, path)

	ds := NewShapefile(path)
	err := Update(ds, "LONGITUDE", func(c *UpdateCursor) error {
		for c.Next() {
			if n, ok := Number(c.Value()); ok && n > 0 {
				v, _ := Negate(c.Value())
				c.UpdateRow(v)
			}
		}
		return nil
	})
	require.NoError(t, err)

	frame, err := ds.Load()
	require.NoError(t, err)
	require.Len(t, frame.Records, 3)
	var lons []interface{}
	for _, rec := range frame.Records {
		lons = append(lons, rec.Values[1])
	}
	assert.Equal(t, []interface{}{-11.7, -8.1, -10.4}, lons)
}
