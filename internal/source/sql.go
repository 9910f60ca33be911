package source

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"conflict-pipeline/internal/models"
)

// Open opens a database handle for the event source
func Open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Exporter materializes conflict events from a query into a CSV file
type Exporter struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewExporter creates an exporter on db
func NewExporter(db *sql.DB, logger *logrus.Logger) *Exporter {
	return &Exporter{db: db, logger: logger}
}

// Export runs query and writes the rows to path with the event header.
// The query must return country, actor1, event_type, event_date, longitude
// and latitude in that order.
func (e *Exporter) Export(ctx context.Context, query, path string) (int, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read columns: %w", err)
	}
	if len(columns) != len(models.EventColumns) {
		return 0, fmt.Errorf("event query returns %d columns, want %d", len(columns), len(models.EventColumns))
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.EventColumns); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	count := 0
	for rows.Next() {
		var ev models.EventRecord
		var country, actor, eventType, eventDate sql.NullString
		if err := rows.Scan(&country, &actor, &eventType, &eventDate, &ev.Longitude, &ev.Latitude); err != nil {
			return count, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Country = country.String
		ev.Actor1 = actor.String
		ev.EventType = eventType.String
		ev.EventDate = eventDate.String

		if err := w.Write(eventRow(ev)); err != nil {
			return count, fmt.Errorf("failed to write event: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("error iterating events: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return count, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return count, fmt.Errorf("failed to close %s: %w", path, err)
	}

	e.logger.Infof("Exported %d events to %s", count, path)
	return count, nil
}

func eventRow(ev models.EventRecord) []string {
	return []string{
		ev.Country,
		ev.Actor1,
		ev.EventType,
		ev.EventDate,
		strconv.FormatFloat(ev.Longitude, 'f', -1, 64),
		strconv.FormatFloat(ev.Latitude, 'f', -1, 64),
	}
}
