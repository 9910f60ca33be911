package table

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openEventsDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE events (id INTEGER PRIMARY KEY, country TEXT, longitude REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO events (id, country, longitude) VALUES
		(1, 'Sierra Leone', -11.7), (2, 'Nigeria', 8.1), (3, 'Guinea', 10.4)`)
	require.NoError(t, err)
	return db
}

func TestSQL_DeleteAndUpdate(t *testing.T) {
	db := openEventsDB(t)
	ds := NewSQL(db, "events", "id")

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

	rows, err := db.Query(`SELECT country, longitude FROM events ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	var lons []float64
	for rows.Next() {
		var country string
		var lon float64
		require.NoError(t, rows.Scan(&country, &lon))
		got = append(got, country)
		lons = append(lons, lon)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{"Sierra Leone", "Guinea"}, got)
	assert.Equal(t, []float64{-11.7, -10.4}, lons)
}

func TestSQL_MissingKey(t *testing.T) {
	db := openEventsDB(t)
	_, err := NewSQL(db, "events", "event_id").Load()
	assert.ErrorIs(t, err, ErrFieldNotFound)
}
