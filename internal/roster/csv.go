package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
	"golang.org/x/text/encoding/charmap"
)

// ColumnMap names the CSV header for each record field. Only Name is
// required; the others may be empty.
type ColumnMap struct {
	UnitID string `mapstructure:"unit_id" yaml:"unit_id"`
	Name   string `mapstructure:"name" yaml:"name"`
	City   string `mapstructure:"city" yaml:"city"`
	State  string `mapstructure:"state" yaml:"state"`
	URL    string `mapstructure:"url" yaml:"url"`
}

// DefaultColumns matches the IPEDS institutional characteristics (HD) file.
var DefaultColumns = ColumnMap{
	UnitID: "UNITID",
	Name:   "INSTNM",
	City:   "CITY",
	State:  "STABBR",
	URL:    "WEBADDR",
}

func (c ColumnMap) withDefaults() ColumnMap {
	if strings.TrimSpace(c.Name) == "" {
		return DefaultColumns
	}
	return c
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a roster from CSV with a header row. Files that are not valid
// UTF-8 are decoded as Windows-1252, which is what IPEDS publishes.
func ParseCSV(r io.Reader, source string, cols ColumnMap) (collegesearch.Roster, error) {
	cols = cols.withDefaults()
	raw, err := io.ReadAll(r)
	if err != nil {
		return collegesearch.Roster{}, fmt.Errorf("read roster %s: %w", source, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		if raw, err = charmap.Windows1252.NewDecoder().Bytes(raw); err != nil {
			return collegesearch.Roster{}, fmt.Errorf("decode roster %s: %w", source, err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return collegesearch.Roster{}, &collegesearch.SchemaError{Source: source, Column: cols.Name}
	}
	if err != nil {
		return collegesearch.Roster{}, fmt.Errorf("read roster header %s: %w", source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	idx := indexColumns(header)
	nameIdx, ok := idx[strings.ToLower(cols.Name)]
	if !ok {
		return collegesearch.Roster{}, &collegesearch.SchemaError{Source: source, Column: cols.Name, Have: header}
	}

	out := collegesearch.Roster{
		Source:     source,
		Columns:    header,
		NameColumn: header[nameIdx],
		Records:    []collegesearch.InstitutionRecord{},
	}
	field := func(row []string, column string) string {
		i, ok := idx[strings.ToLower(strings.TrimSpace(column))]
		if column == "" || !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return collegesearch.Roster{}, fmt.Errorf("read roster %s: %w", source, err)
		}
		name := field(row, cols.Name)
		if name == "" {
			continue
		}
		out.Records = append(out.Records, collegesearch.InstitutionRecord{
			UnitID: field(row, cols.UnitID),
			Name:   name,
			City:   field(row, cols.City),
			State:  strings.ToUpper(field(row, cols.State)),
			URL:    field(row, cols.URL),
			Source: collegesearch.SourceRoster,
		})
	}
	return out, nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// FileSource serves a CSV roster, parsed on first use and kept in memory.
// A failed load is retried on the next call.
type FileSource struct {
	path string
	cols ColumnMap

	mu     sync.Mutex
	roster *collegesearch.Roster
}

func NewFileSource(path string, cols ColumnMap) *FileSource {
	return &FileSource{path: path, cols: cols}
}

func (f *FileSource) LoadRoster(ctx context.Context) (collegesearch.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roster != nil {
		return *f.roster, nil
	}
	if err := ctx.Err(); err != nil {
		return collegesearch.Roster{}, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return collegesearch.Roster{}, fmt.Errorf("%w: %v", collegesearch.ErrDataUnavailable, err)
	}
	defer file.Close()
	r, err := ParseCSV(file, f.path, f.cols)
	if err != nil {
		return collegesearch.Roster{}, err
	}
	f.roster = &r
	return r, nil
}
