// Package analysis summarizes the tables produced by each pipeline stage so
// an operator can check a run without opening a spreadsheet.
package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
)

// Column kinds inferred from cell contents.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindEmpty       = "empty"
)

// maxCategories is the most distinct values a column may have and still be
// reported as categorical.
const maxCategories = 12

// Options controls analysis behavior.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric summaries keyed by this column, e.g. LED LIGHTNESS.
	GroupBy string
	// NoHeader treats the first row as data (recombined metric tables).
	NoHeader bool
	// Sheet selects a workbook sheet by name; empty uses the first sheet.
	Sheet string
}

// DefaultOptions returns reasonable defaults for inspecting a stage output.
func DefaultOptions() Options {
	return Options{MaxRows: 100000, SampleRows: 5}
}

// Report summarizes one table.
type Report struct {
	Name      string
	Sheet     string
	Header    []string
	Rows      int
	Processed int
	Cols      []ColumnSummary
	Samples   [][]string
	Warnings  []string
	GroupBy   string
	Groups    []GroupResult
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	Policy  string // bin reduction policy of recognized columns
	Dropped bool   // discarded by the binner
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures numeric means per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// AnalyzeFile inspects a .csv or .xlsx file.
func AnalyzeFile(path string, opt Options) (*Report, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return AnalyzeXLSX(path, opt)
	default:
		return AnalyzeCSV(path, opt)
	}
}

// AnalyzeCSV inspects a CSV file.
func AnalyzeCSV(path string, opt Options) (*Report, error) {
	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if opt.NoHeader {
		t = promoteHeader(t)
	}
	return Analyze(filepath.Base(path), t, opt), nil
}

// promoteHeader turns the header row back into data and names columns by position.
func promoteHeader(t *table.Table) *table.Table {
	header := make([]string, len(t.Header))
	for i := range header {
		header[i] = "col" + strconv.Itoa(i+1)
	}
	out := table.New(header)
	out.Rows = append([][]string{append([]string{}, t.Header...)}, t.Rows...)
	return out
}

// Analyze computes the report of an in-memory table.
func Analyze(name string, t *table.Table, opt Options) *Report {
	rep := &Report{Name: name, Header: append([]string{}, t.Header...), Rows: len(t.Rows), GroupBy: opt.GroupBy}
	rows := t.Rows
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		rows = rows[:opt.MaxRows]
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, len(t.Rows)))
	}
	rep.Processed = len(rows)

	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < len(rows) && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, append([]string{}, rows[i]...))
	}

	for ci, name := range t.Header {
		cells := make([]string, len(rows))
		for ri, r := range rows {
			cells[ri] = strings.TrimSpace(r[ci])
		}
		rep.Cols = append(rep.Cols, summarize(name, cells))
	}

	if opt.GroupBy != "" {
		gi := t.Index(opt.GroupBy)
		if gi < 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %q not found", opt.GroupBy))
		} else {
			rep.Groups = groupSummaries(t.Header, rows, gi, rep.Cols)
		}
	}
	return rep
}

func summarize(name string, cells []string) ColumnSummary {
	cs := ColumnSummary{Name: name, Dropped: schema.IsDropped(name)}
	if known(name) {
		cs.Policy = schema.PolicyFor(name).String()
	}
	counts := map[string]int{}
	var nums []float64
	dates := 0
	for _, c := range cells {
		if c == "" {
			cs.Missing++
			continue
		}
		cs.NonNull++
		counts[c]++
		if v, ok := schema.ParseNumber(c); ok {
			nums = append(nums, v)
		} else if _, ok := schema.ParseTimestamp(c); ok {
			dates++
		}
	}
	cs.Unique = len(counts)
	switch {
	case cs.NonNull == 0:
		cs.Kind = KindEmpty
	case len(nums) == cs.NonNull:
		cs.Kind = KindNumeric
		cs.Min, cs.Max = floats.Min(nums), floats.Max(nums)
		if len(nums) > 1 {
			cs.Mean, cs.Std = stat.MeanStdDev(nums, nil)
		} else {
			cs.Mean = nums[0]
		}
	case dates == cs.NonNull:
		cs.Kind = KindDatetime
	case cs.Unique <= maxCategories:
		cs.Kind = KindCategorical
	default:
		cs.Kind = KindText
	}
	if cs.Kind == KindCategorical || cs.Kind == KindText {
		cs.TopValues = topValues(counts, 3)
	}
	return cs
}

// known reports whether the binner has an explicit policy for the column.
func known(name string) bool {
	for _, c := range schema.Policies {
		if c.Name == name {
			return true
		}
	}
	return false
}

func topValues(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func groupSummaries(header []string, rows [][]string, gi int, cols []ColumnSummary) []GroupResult {
	type acc struct {
		size int
		vals map[int][]float64
	}
	var order []string
	groups := map[string]*acc{}
	for _, r := range rows {
		key := strings.TrimSpace(r[gi])
		g, ok := groups[key]
		if !ok {
			g = &acc{vals: map[int][]float64{}}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
		for ci, c := range cols {
			if ci == gi || c.Kind != KindNumeric {
				continue
			}
			if v, ok := schema.ParseNumber(r[ci]); ok {
				g.vals[ci] = append(g.vals[ci], v)
			}
		}
	}
	sort.Strings(order)
	out := make([]GroupResult, 0, len(order))
	for _, key := range order {
		g := groups[key]
		gr := GroupResult{Key: key, Size: g.size, Metrics: map[string]NumSummary{}}
		for ci, vals := range g.vals {
			if len(vals) == 0 {
				continue
			}
			gr.Metrics[header[ci]] = NumSummary{Count: len(vals), Min: floats.Min(vals), Max: floats.Max(vals), Mean: stat.Mean(vals, nil)}
		}
		out = append(out, gr)
	}
	return out
}

// Markdown renders a compact plain-text report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Sheet != "" {
		b.WriteString(fmt.Sprintf("Sheet: %s\n", r.Sheet))
	}
	if r.Processed > 0 && r.Processed < r.Rows {
		b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.Rows, r.Processed))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", c.Name, c.Kind, c.NonNull, missingPct(c)))
		if c.Policy != "" {
			b.WriteString(fmt.Sprintf(" [bins by %s]", c.Policy))
		}
		if c.Dropped {
			b.WriteString(" [dropped before binning]")
		}
		if c.Kind == KindNumeric {
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		}
		if len(c.TopValues) > 0 {
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", kv.Value, kv.Count))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString(fmt.Sprintf("\n[BY %s]\n", r.GroupBy))
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			for _, k := range metricNames(g) {
				m := g.Metrics[k]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max))
			}
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func missingPct(c ColumnSummary) float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100 / float64(total)
}

func metricNames(g GroupResult) []string {
	keys := make([]string, 0, len(g.Metrics))
	for k := range g.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fmtStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
