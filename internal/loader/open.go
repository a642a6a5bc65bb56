package loader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source kinds accepted by Open.
const (
	KindCSV        = "csv"
	KindParquet    = "parquet"
	KindSQLite     = "sqlite"
	KindClickHouse = "clickhouse"
	KindHTTP       = "http"
	KindMock       = "mock"
)

// Options selects and configures a Source.
type Options struct {
	// Kind is one of the Kind constants. Empty infers it from Path's
	// extension, or searches SearchRoot for data.parquet when Path is empty.
	Kind       string
	Path       string
	SearchRoot string
	Table      string
	ClickHouse ClickHouseConfig
	URL        string
	APIKey     string
	Proxy      string
}

// Open builds the Source described by opts.
func Open(opts Options) (Source, error) {
	kind := strings.ToLower(opts.Kind)
	path := opts.Path
	if kind == "" && path == "" {
		root := opts.SearchRoot
		if root == "" {
			root = "."
		}
		found, err := FindDataFile(root, DefaultParquetName)
		if err != nil {
			return nil, err
		}
		path, kind = found, KindParquet
	}
	if kind == "" {
		kind = kindFromExt(path)
	}

	switch kind {
	case KindCSV:
		return NewCSVSource(path), nil
	case KindParquet:
		return NewParquetSource(path), nil
	case KindSQLite:
		return NewSQLiteSource(path, opts.Table)
	case KindClickHouse:
		cfg := opts.ClickHouse
		if cfg.Table == "" {
			cfg.Table = opts.Table
		}
		return NewClickHouseSource(cfg)
	case KindHTTP:
		if opts.URL == "" {
			return nil, fmt.Errorf("http source requires a url")
		}
		return NewHTTPSource(opts.URL, opts.APIKey, opts.Proxy), nil
	case KindMock:
		return &MockSource{}, nil
	}
	return nil, fmt.Errorf("unknown data source %q for %q", kind, path)
}

func kindFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return KindCSV
	case ".parquet", ".pq":
		return KindParquet
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	}
	return ""
}
