package table

import (
	"database/sql"
	"fmt"
	"strings"
)

// SQL is a database table addressed by a key column. Deletes and updates are
// applied by key inside one transaction.
type SQL struct {
	db    *sql.DB
	table string
	key   string
}

// NewSQL creates a dataset over table using key as row identity
func NewSQL(db *sql.DB, table, key string) *SQL {
	return &SQL{db: db, table: table, key: key}
}

func (s *SQL) Name() string { return s.table }

func (s *SQL) Load() (*Frame, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s", quoteIdent(s.table)))
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	frame := &Frame{Fields: make([]Field, len(columns))}
	for i, name := range columns {
		frame.Fields[i] = Field{Name: name, Kind: KindString}
	}
	keyIdx := frame.FieldIndex(s.key)
	if keyIdx < 0 {
		return nil, fmt.Errorf("key column %s: %w", s.key, ErrFieldNotFound)
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			// mysql text protocol returns []byte for every column
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		frame.Records = append(frame.Records, &Record{Values: values, Handle: values[keyIdx]})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range frame.Fields {
		frame.Fields[i].Kind = inferKind(frame.Records, i)
	}

	return frame, nil
}

func (s *SQL) Save(frame *Frame) (err error) {
	keyIdx := frame.FieldIndex(s.key)
	if keyIdx < 0 {
		return fmt.Errorf("key column %s: %w", s.key, ErrFieldNotFound)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	deleteStmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(s.table), quoteIdent(s.key))

	var sets []string
	var setIdx []int
	for i, f := range frame.Fields {
		if i == keyIdx {
			continue
		}
		sets = append(sets, quoteIdent(f.Name)+" = ?")
		setIdx = append(setIdx, i)
	}
	updateStmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(s.table), strings.Join(sets, ", "), quoteIdent(s.key))

	for _, rec := range frame.Records {
		switch {
		case rec.Deleted:
			if _, err = tx.Exec(deleteStmt, rec.Handle); err != nil {
				return fmt.Errorf("failed to delete row %v: %w", rec.Handle, err)
			}
		case rec.Dirty && len(setIdx) > 0:
			args := make([]interface{}, 0, len(setIdx)+1)
			for _, i := range setIdx {
				args = append(args, rec.Values[i])
			}
			args = append(args, rec.Handle)
			if _, err = tx.Exec(updateStmt, args...); err != nil {
				return fmt.Errorf("failed to update row %v: %w", rec.Handle, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func inferKind(records []*Record, col int) Kind {
	for _, rec := range records {
		switch rec.Values[col].(type) {
		case nil:
			continue
		case int64, float64:
			return KindNumber
		default:
			return KindString
		}
	}
	return KindString
}

// Backticks are understood by both MySQL and SQLite
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
