package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Events.csv")
	content := "COUNTRY,EVENT_DATE,LONGITUDE\n" +
		"Sierra Leone,5 March 1999,-11.7\n" +
		"Nigeria,1 May 1998,8.1\n" +
		"Liberia,\"15 December 2000\",10.4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ds := NewCSV(path)
	err := Update(ds, "COUNTRY", func(c *UpdateCursor) error {
		for c.Next() {
			if c.Value() == "Nigeria" {
				c.DeleteRow()
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = Update(ds, "LONGITUDE", func(c *UpdateCursor) error {
		for c.Next() {
			if n, ok := Number(c.Value()); ok && n > 0 {
				v, _ := Negate(c.Value())
				c.UpdateRow(v)
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "COUNTRY,EVENT_DATE,LONGITUDE\n"+
		"Sierra Leone,5 March 1999,-11.7\n"+
		"Liberia,15 December 2000,-10.4\n", string(got))
}

func TestCSV_MissingFile(t *testing.T) {
	ds := NewCSV(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := ds.Load()
	assert.Error(t, err)
}
