package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"IBSentinel/internal/model"
)

// DefaultParquetName is the dataset file name searched for when no path is configured.
const DefaultParquetName = "data.parquet"

const parquetBatchRows = 64 * 1024

var columnAliases = [5][]string{
	{"timestamp", "ts", "time", "datetime", "date"},
	{"open", "o"},
	{"high", "h"},
	{"low", "l"},
	{"close", "c"},
}

// ParquetSource reads a Parquet file. A single string column holds
// "timestamp;open;high;low;close" records; otherwise columns are matched
// by name, falling back to the first five columns in order.
type ParquetSource struct {
	Path string
	mem  memory.Allocator
}

// NewParquetSource creates a Parquet source backed by the Go allocator.
func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{Path: path, mem: memory.NewGoAllocator()}
}

func (s *ParquetSource) Name() string { return "parquet:" + s.Path }

func (s *ParquetSource) Fingerprint(_ context.Context) (string, error) {
	return FileFingerprint(s.Path)
}

func (s *ParquetSource) Load(ctx context.Context) ([]model.RawRow, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(s.mem), pqarrow.ArrowReadProperties{}, s.mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	defer tbl.Release()

	cols, composite, err := resolveColumns(tbl.Schema())
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", s.Path, err)
	}

	rows := make([]model.RawRow, 0, tbl.NumRows())
	tr := array.NewTableReader(tbl, parquetBatchRows)
	defer tr.Release()
	for tr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := tr.Record()
		n := int(rec.NumRows())
		if composite {
			col := rec.Column(cols[0])
			for i := 0; i < n; i++ {
				if line, ok := arrowValue(col, i).(string); ok {
					rows = append(rows, model.RawRow{Line: line})
				}
			}
			continue
		}
		ts, o, h, l, c := rec.Column(cols[0]), rec.Column(cols[1]), rec.Column(cols[2]), rec.Column(cols[3]), rec.Column(cols[4])
		for i := 0; i < n; i++ {
			rows = append(rows, model.RawRow{
				Timestamp: arrowValue(ts, i),
				Open:      arrowValue(o, i),
				High:      arrowValue(h, i),
				Low:       arrowValue(l, i),
				Close:     arrowValue(c, i),
			})
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("scan parquet: %w", err)
	}
	return rows, nil
}

func resolveColumns(schema *arrow.Schema) ([5]int, bool, error) {
	var cols [5]int
	fields := schema.Fields()
	if len(fields) == 1 {
		return cols, true, nil
	}
	if len(fields) < 5 {
		return cols, false, fmt.Errorf("want 1 or at least 5 columns, got %d", len(fields))
	}

	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[strings.ToLower(f.Name)] = i
	}
	for k, aliases := range columnAliases {
		cols[k] = -1
		for _, a := range aliases {
			if i, ok := byName[a]; ok {
				cols[k] = i
				break
			}
		}
	}
	for k := range cols {
		if cols[k] < 0 {
			return [5]int{0, 1, 2, 3, 4}, false, nil
		}
	}
	return cols, false, nil
}

func arrowValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	}
	return nil
}
