package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"IBSentinel/internal/model"
)

// ClickHouseConfig locates a bar table in ClickHouse. The table needs
// columns ts (DateTime or DateTime64), open, high, low, close (Float64)
// and symbol (String).
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
	Symbol   string
	Timeout  time.Duration
}

// chConn is the subset of driver.Conn the source uses.
type chConn interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
	Close() error
}

// ClickHouseSource streams one symbol's bars from ClickHouse.
type ClickHouseSource struct {
	cfg  ClickHouseConfig
	dial func() (chConn, error)
}

// NewClickHouseSource validates cfg and returns a source that dials lazily.
func NewClickHouseSource(cfg ClickHouseConfig) (*ClickHouseSource, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("clickhouse address is required")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if !validIdentifier(cfg.Database) || !validIdentifier(cfg.Table) {
		return nil, fmt.Errorf("invalid clickhouse table %q.%q", cfg.Database, cfg.Table)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &ClickHouseSource{cfg: cfg}
	s.dial = s.open
	return s, nil
}

func (s *ClickHouseSource) open() (chConn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{s.cfg.Addr},
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		DialTimeout: s.cfg.Timeout,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return conn, nil
}

func (s *ClickHouseSource) Name() string {
	return fmt.Sprintf("clickhouse:%s/%s.%s/%s", s.cfg.Addr, s.cfg.Database, s.cfg.Table, s.cfg.Symbol)
}

func (s *ClickHouseSource) table() string { return s.cfg.Database + "." + s.cfg.Table }

func (s *ClickHouseSource) Fingerprint(ctx context.Context) (string, error) {
	conn, err := s.dial()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var count uint64
	var last time.Time
	q := fmt.Sprintf("SELECT count(), max(ts) FROM %s WHERE symbol = ?", s.table())
	if err := conn.QueryRow(ctx, q, s.cfg.Symbol).Scan(&count, &last); err != nil {
		return "", fmt.Errorf("fingerprint clickhouse: %w", err)
	}
	return fmt.Sprintf("%d:%d", count, last.UnixNano()), nil
}

func (s *ClickHouseSource) Load(ctx context.Context) ([]model.RawRow, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	q := fmt.Sprintf("SELECT ts, open, high, low, close FROM %s WHERE symbol = ? ORDER BY ts", s.table())
	rs, err := conn.Query(ctx, q, s.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("query clickhouse bars: %w", err)
	}
	defer rs.Close()

	var rows []model.RawRow
	for rs.Next() {
		var (
			ts         time.Time
			o, h, l, c float64
		)
		if err := rs.Scan(&ts, &o, &h, &l, &c); err != nil {
			return nil, fmt.Errorf("scan clickhouse bar: %w", err)
		}
		rows = append(rows, model.RawRow{Timestamp: ts.UTC(), Open: o, High: h, Low: l, Close: c})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate clickhouse bars: %w", err)
	}
	return rows, nil
}
