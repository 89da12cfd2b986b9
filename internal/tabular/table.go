// Package tabular reads uploaded spreadsheets as generic tables of named
// columns and provides the value coercion used by the load pipeline.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Table is a tabular artifact: ordered headers plus one string map per row.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Empty reports whether the table has no usable content.
func (t *Table) Empty() bool {
	return t == nil || len(t.Headers) == 0 || len(t.Rows) == 0
}

// ReadFile reads a CSV artifact from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV content into a Table. Fully-empty rows and fully-empty
// columns are dropped, and header cells are trimmed.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if allEmpty(rec) {
			continue
		}
		records = append(records, rec)
	}

	// Keep only named columns carrying at least one value.
	keep := make([]int, 0, len(header))
	for i, h := range header {
		if h == "" || columnEmpty(records, i) {
			continue
		}
		keep = append(keep, i)
	}

	t := &Table{Headers: make([]string, 0, len(keep))}
	for _, i := range keep {
		t.Headers = append(t.Headers, header[i])
	}
	for _, rec := range records {
		row := make(map[string]string, len(keep))
		for _, i := range keep {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			row[header[i]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func allEmpty(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnEmpty(records [][]string, i int) bool {
	for _, rec := range records {
		if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
			return false
		}
	}
	return true
}

// Rename returns a copy of the table with columns renamed through the given
// header map. Headers absent from the map keep their name.
func (t *Table) Rename(headerMap map[string]string) *Table {
	out := &Table{Headers: make([]string, len(t.Headers))}
	for i, h := range t.Headers {
		if n, ok := headerMap[h]; ok {
			out.Headers[i] = n
		} else {
			out.Headers[i] = h
		}
	}
	for _, row := range t.Rows {
		nr := make(map[string]string, len(row))
		for k, v := range row {
			if n, ok := headerMap[k]; ok {
				nr[n] = v
			} else {
				nr[k] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// ParseNumber parses a numeric cell. The comma decimal separator is accepted
// ("1234,5" == 1234.5) and interior spaces are ignored.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

// ParseDate parses a date cell against the accepted layouts. Time parts are
// truncated to the calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
