package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"IBSentinel/internal/model"
)

// CSVSource reads a delimited text export. A file with one column holds
// "timestamp;open;high;low;close" records; otherwise the first five
// columns are timestamp, open, high, low, close. UTF-16 exports with a
// byte order mark are decoded transparently.
type CSVSource struct {
	Path  string
	Comma rune
}

// NewCSVSource creates a comma-separated source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, Comma: ','}
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

func (s *CSVSource) Fingerprint(_ context.Context) (string, error) {
	return FileFingerprint(s.Path)
}

func (s *CSVSource) Load(ctx context.Context) ([]model.RawRow, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(ctx, f, s.Comma)
}

func readCSV(ctx context.Context, in io.Reader, comma rune) ([]model.RawRow, error) {
	br := bufio.NewReader(in)
	var reader io.Reader = br
	if bom, _ := br.Peek(2); len(bom) == 2 && ((bom[0] == 0xFF && bom[1] == 0xFE) || (bom[0] == 0xFE && bom[1] == 0xFF)) {
		reader = transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}

	r := csv.NewReader(reader)
	if comma != 0 {
		r.Comma = comma
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows []model.RawRow
	for n := 0; ; n++ {
		if err := checkContext(ctx, n); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", n+1, err)
		}
		if n == 0 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			if isHeader(rec) {
				continue
			}
		}
		if row, ok := csvRow(rec); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func csvRow(rec []string) (model.RawRow, bool) {
	switch {
	case len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == ""):
		return model.RawRow{}, false
	case len(rec) >= 5:
		return model.RawRow{Timestamp: rec[0], Open: rec[1], High: rec[2], Low: rec[3], Close: rec[4]}, true
	default:
		return model.RawRow{Line: strings.Join(rec, ";")}, true
	}
}

func isHeader(rec []string) bool {
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	return strings.HasPrefix(first, "time") || strings.HasPrefix(first, "date") || strings.HasPrefix(first, "ts")
}
