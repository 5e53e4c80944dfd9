// Package table holds a CSV file in memory as a header plus string rows and
// reads or writes it with encoding/csv.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// Table is a header row plus data rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header []string) *Table {
	h := make([]string, len(header))
	copy(h, header)
	return &Table{Header: h}
}

// Read loads a CSV file whose first record is the header.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads header and rows from r. Short rows are padded with empty cells;
// long rows are rejected.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(rec) > len(t.Header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(rec), len(t.Header))
		}
		row := make([]string, len(t.Header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Select returns a new table containing the given row indices in order.
func (t *Table) Select(rows []int) *Table {
	out := New(t.Header)
	out.Rows = make([][]string, 0, len(rows))
	for _, i := range rows {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// Drop returns a new table without the named columns; absent names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[int]bool)
	for _, n := range names {
		if i := t.Index(n); i >= 0 {
			skip[i] = true
		}
	}
	if len(skip) == 0 {
		return t
	}
	keep := make([]int, 0, len(t.Header))
	for i := range t.Header {
		if !skip[i] {
			keep = append(keep, i)
		}
	}
	out := &Table{Header: make([]string, 0, len(keep)), Rows: make([][]string, 0, len(t.Rows))}
	for _, i := range keep {
		out.Header = append(out.Header, t.Header[i])
	}
	for _, r := range t.Rows {
		nr := make([]string, 0, len(keep))
		for _, i := range keep {
			nr = append(nr, r[i])
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// Encode renders the table as CSV bytes, header first.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes the table and writes it atomically to path.
func (t *Table) Write(path string) error {
	b, err := t.Encode()
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// WriteRecords writes header-less records atomically to path.
func WriteRecords(path string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
