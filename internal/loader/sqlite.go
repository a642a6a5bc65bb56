package loader

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"IBSentinel/internal/model"
)

// DefaultSQLiteTable is the bar table read when none is configured.
const DefaultSQLiteTable = "bars"

// SQLiteSource reads bars from a SQLite table with columns
// timestamp, open, high, low, close, in insertion order.
type SQLiteSource struct {
	Path  string
	Table string
}

// NewSQLiteSource creates a source over table in the database at path.
func NewSQLiteSource(path, table string) (*SQLiteSource, error) {
	if table == "" {
		table = DefaultSQLiteTable
	}
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}
	return &SQLiteSource{Path: path, Table: table}, nil
}

func (s *SQLiteSource) Name() string { return "sqlite:" + s.Path + "#" + s.Table }

func (s *SQLiteSource) Fingerprint(ctx context.Context) (string, error) {
	fp, err := FileFingerprint(s.Path)
	if err != nil {
		return "", err
	}
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	// WAL writes do not always touch the main file.
	var count int64
	var maxRow sql.NullInt64
	q := fmt.Sprintf("SELECT COUNT(*), MAX(rowid) FROM %s", s.Table)
	if err := db.QueryRowContext(ctx, q).Scan(&count, &maxRow); err != nil {
		return "", fmt.Errorf("fingerprint sqlite: %w", err)
	}
	return fmt.Sprintf("%s:%s:%d:%d", fp, s.Table, count, maxRow.Int64), nil
}

func (s *SQLiteSource) Load(ctx context.Context) ([]model.RawRow, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := fmt.Sprintf("SELECT timestamp, open, high, low, close FROM %s ORDER BY rowid", s.Table)
	rs, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query sqlite bars: %w", err)
	}
	defer rs.Close()

	var rows []model.RawRow
	for rs.Next() {
		var v [5]any
		if err := rs.Scan(&v[0], &v[1], &v[2], &v[3], &v[4]); err != nil {
			return nil, fmt.Errorf("scan sqlite bar: %w", err)
		}
		rows = append(rows, model.RawRow{Timestamp: v[0], Open: v[1], High: v[2], Low: v[3], Close: v[4]})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate sqlite bars: %w", err)
	}
	return rows, nil
}

func (s *SQLiteSource) open() (*sql.DB, error) {
	// sql.Open would create a missing database file.
	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	return db, nil
}
