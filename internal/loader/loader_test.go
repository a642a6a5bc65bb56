package loader

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"IBSentinel/internal/model"
	"IBSentinel/internal/normalize"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func bars(t *testing.T, rows []model.RawRow) []model.Bar {
	t.Helper()
	out, stats := normalize.Normalize(rows, normalize.Config{})
	require.Zero(t, stats.Dropped(), "rows dropped: %+v", stats)
	return out
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "five columns with header",
			data: []byte("timestamp,open,high,low,close\n20240102 143000,100,101,99,100.5\n20240102 143100,100.5,102,100,101\n"),
		},
		{
			name: "composite single column",
			data: []byte("20240102 143000;100;101;99;100.5\n20240102 143100;100.5;102;100;101\n"),
		},
		{
			name: "utf8 bom and blank lines",
			data: []byte("\ufeffDate,Open,High,Low,Close\n\n2024-01-02 14:30:00,100,101,99,100.5\n2024-01-02 14:31:00,100.5,102,100,101\n"),
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, filepath.Join("case", string(rune('a'+i))+".csv"), tt.data)
			rows, err := NewCSVSource(path).Load(context.Background())
			require.NoError(t, err)
			require.Len(t, rows, 2)

			got := bars(t, rows)
			assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), got[0].UTC)
			assert.InDelta(t, 101, got[0].High, 1e-9)
			assert.InDelta(t, 101, got[1].Close, 1e-9)
		})
	}
}

func TestCSVSource_UTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("20240102 143000;100;101;99;100.5\n"))
	require.NoError(t, err)
	path := writeFile(t, t.TempDir(), "utf16.csv", data)

	rows, err := NewCSVSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "20240102 143000;100;101;99;100.5", rows[0].Line)
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"))
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = src.Fingerprint(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFileFingerprint_ChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv", []byte("x"))
	first, err := FileFingerprint(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("xy"), 0o644))
	second, err := FileFingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestFindDataFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, filepath.Join(".hidden", "data.parquet"), []byte("x"))
	want := writeFile(t, root, filepath.Join("b", "nested", "data.parquet"), []byte("x"))
	writeFile(t, root, filepath.Join("c", "data.parquet"), []byte("x"))

	got, err := FindDataFile(root, "data.parquet")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = FindDataFile(root, "missing.parquet")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func writeParquet(t *testing.T, path string, schema *arrow.Schema, fill func(b *array.RecordBuilder)) {
	t.Helper()
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	fill(b)
	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pqarrow.WriteTable(tbl, f, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
}

func TestParquetSource_NamedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "Close", Type: arrow.PrimitiveTypes.Float64},
		{Name: "Open", Type: arrow.PrimitiveTypes.Float64},
		{Name: "High", Type: arrow.PrimitiveTypes.Float64},
		{Name: "Low", Type: arrow.PrimitiveTypes.Float64},
		{Name: "Timestamp", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	writeParquet(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Float64Builder).AppendValues([]float64{100.5, 101}, nil)
		b.Field(1).(*array.Float64Builder).AppendValues([]float64{100, 100.5}, nil)
		b.Field(2).(*array.Float64Builder).AppendValues([]float64{101, 102}, nil)
		b.Field(3).(*array.Float64Builder).AppendValues([]float64{99, 100}, nil)
		b.Field(4).(*array.Int64Builder).AppendValues([]int64{20240102143000, 20240102143100}, nil)
	})

	rows, err := NewParquetSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got := bars(t, rows)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 31, 0, 0, time.UTC), got[1].UTC)
	assert.InDelta(t, 100.5, got[1].Open, 1e-9)
	assert.InDelta(t, 101, got[1].Close, 1e-9)
}

func TestParquetSource_CompositeColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	schema := arrow.NewSchema([]arrow.Field{{Name: "raw", Type: arrow.BinaryTypes.String}}, nil)
	writeParquet(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).AppendValues([]string{
			"20240102 143000;100;101;99;100.5",
			"20240102 143100;100.5;102;100;101",
		}, nil)
	})

	rows, err := NewParquetSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "20240102 143100;100.5;102;100;101", rows[1].Line)
}

func TestParquetSource_TooFewColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Float64},
		{Name: "b", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
	writeParquet(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.Float64Builder).Append(1)
		b.Field(1).(*array.Float64Builder).Append(2)
	})

	_, err := NewParquetSource(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE bars (timestamp TEXT, open REAL, high REAL, low REAL, close REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO bars VALUES
		('2024-01-02 14:30:00', 100, 101, 99, 100.5),
		('2024-01-02 14:31:00', 100.5, 102, 100, 101)`)
	require.NoError(t, err)

	src, err := NewSQLiteSource(path, "")
	require.NoError(t, err)
	ctx := context.Background()

	rows, err := src.Load(ctx)
	require.NoError(t, err)
	got := bars(t, rows)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), got[0].UTC)
	assert.InDelta(t, 102, got[1].High, 1e-9)

	before, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO bars VALUES ('2024-01-02 14:32:00', 101, 101, 100, 100)`)
	require.NoError(t, err)
	after, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSQLiteSource_Errors(t *testing.T) {
	_, err := NewSQLiteSource("x.db", "bars; DROP TABLE bars")
	assert.Error(t, err)

	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "missing.db"), "bars")
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(`[{"timestamp":1704205800,"open":100,"high":101,"low":99,"close":100.5}]`))
	}))
	defer srv.Close()
	ctx := context.Background()

	src := NewHTTPSource(srv.URL, "secret", "")
	fp, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, `etag:"v1"`, fp)

	rows, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), rows[0].Timestamp)
	assert.Equal(t, 100.5, rows[0].Close)

	_, err = NewHTTPSource(srv.URL, "wrong", "").Load(ctx)
	assert.ErrorContains(t, err, "status 401")
}

func TestHTTPSource_HeadNotAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`[{"timestamp":1704205800,"open":100,"high":101,"low":99,"close":100.5}]`))
	}))
	defer srv.Close()
	ctx := context.Background()

	src := NewHTTPSource(srv.URL, "", "")
	fp, err := src.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)

	rows, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	srv.Close()
	_, err = src.Fingerprint(ctx)
	assert.Error(t, err, "transport errors still fail")
}

func TestMockSource_Generate(t *testing.T) {
	src := &MockSource{Start: model.Date{Year: 2024, Month: time.January, Day: 5}, Days: 4, Seed: 7}
	rows, err := src.Load(context.Background())
	require.NoError(t, err)

	got := bars(t, rows)
	seen := map[model.Date]int{}
	for _, b := range got {
		seen[b.Session]++
		assert.GreaterOrEqual(t, b.High, b.Low)
	}
	// Jan 6 and 7 2024 fall on a weekend.
	assert.Len(t, seen, 2)
	assert.Equal(t, 17*12+1, seen[model.Date{Year: 2024, Month: time.January, Day: 5}])

	again, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	pq := writeFile(t, root, filepath.Join("data", "data.parquet"), []byte("x"))

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{name: "csv by extension", opts: Options{Path: "bars.csv"}, want: "csv:bars.csv"},
		{name: "sqlite default table", opts: Options{Path: "bars.db"}, want: "sqlite:bars.db#bars"},
		{name: "search for parquet", opts: Options{SearchRoot: root}, want: "parquet:" + pq},
		{name: "explicit mock", opts: Options{Kind: "MOCK"}, want: "mock"},
		{name: "http without url", opts: Options{Kind: KindHTTP}, wantErr: true},
		{name: "clickhouse", opts: Options{Kind: KindClickHouse, Table: "candles", ClickHouse: ClickHouseConfig{Addr: "localhost:9000", Symbol: "ES"}}, want: "clickhouse:localhost:9000/default.candles/ES"},
		{name: "unknown extension", opts: Options{Path: "bars.xlsx"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}
