package clams

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// BinOptions configures the Binner.
type BinOptions struct {
	BinHours int
	RunID    string
}

// ValidateBinHours checks that a bin duration is positive and divides 24 h.
func ValidateBinHours(binHours int) error {
	if binHours <= 0 {
		return &ParamError{Name: "bin_hours", Value: binHours, Reason: "must be a positive number of hours"}
	}
	if 24%binHours != 0 {
		return &ParamError{Name: "bin_hours", Value: binHours, Reason: "must evenly divide 24"}
	}
	return nil
}

// BinDirectory bins every table in dir/Trimmed_CLAMS_data into dir/Binned_CLAMS_data.
func BinDirectory(ctx context.Context, dir string, opts BinOptions, rep progress.Reporter) (*StageResult, error) {
	rep = progress.Safe(rep)
	if err := ValidateBinHours(opts.BinHours); err != nil {
		return nil, &StageError{Stage: StageBin, Err: err}
	}
	inDir := filepath.Join(dir, TrimmedDir)
	outDir := filepath.Join(dir, BinnedDir)
	res := &StageResult{Stage: StageBin, Dir: outDir}

	files, err := utils.ListCSV(inDir)
	if err != nil {
		return nil, &StageError{Stage: StageBin, Err: err}
	}
	if err := utils.ResetDir(outDir); err != nil {
		return nil, &StageError{Stage: StageBin, Err: err}
	}
	for i, path := range files {
		if err := checkContext(ctx); err != nil {
			return nil, &StageError{Stage: StageBin, Err: err}
		}
		name := filepath.Base(path)
		t, err := table.Read(path)
		if err != nil {
			return nil, &StageError{Stage: StageBin, File: name, Err: err}
		}
		binned, err := BinTable(name, t, opts.BinHours)
		if err != nil {
			return nil, &StageError{Stage: StageBin, File: name, Err: err}
		}
		out := filepath.Join(outDir, withSuffix(name, "_binned"))
		if err := binned.Write(out); err != nil {
			return nil, &StageError{Stage: StageBin, File: name, Err: err}
		}
		res.Files = append(res.Files, out)
		rep.Report(progress.Event{Kind: progress.FileDone, Stage: StageBin, File: name,
			Index: i + 1, Total: len(files), Message: "Binning " + name})
	}
	params := map[string]any{"bin_hours": opts.BinHours}
	if err := writeMarker(outDir, newRunID(opts.RunID), StageBin, params, res.Files); err != nil {
		return nil, &StageError{Stage: StageBin, Err: err}
	}
	return res, nil
}

// bin is one (phase, local index) group of rows.
type bin struct {
	phase string
	rows  []int
}

// binRow is a reduced bin before final ordering.
type binRow struct {
	values        map[string]string
	intervalStart float64
	startTime     time.Time
}

// BinTable collapses a trimmed table into fixed-duration bins per light
// phase and returns the canonical binned table. Output is deterministic.
func BinTable(name string, t *table.Table, binHours int) (*table.Table, error) {
	if err := ValidateBinHours(binHours); err != nil {
		return nil, err
	}
	t = t.Drop(schema.DroppedColumns...)
	var missing []string
	for _, c := range schema.BinSources() {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{File: name, Fields: missing}
	}

	tsIdx := t.Index(schema.ColDateTime)
	ts := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := schema.ParseTimestamp(r[tsIdx])
		if !ok {
			return nil, &ParseError{File: name, Row: i + 1, Column: schema.ColDateTime, Value: r[tsIdx]}
		}
		ts[i] = v
	}
	totAmb := totalAmbulation(t)
	cell := func(row int, col string) string {
		if col == schema.ColTotAmb {
			return totAmb[row]
		}
		return t.Rows[row][t.Index(col)]
	}

	bins := assignBins(t, ts, time.Duration(binHours)*time.Hour)

	reduced := make([]binRow, 0, len(bins))
	for _, b := range bins {
		first, last := b.rows[0], b.rows[len(b.rows)-1]
		vals := map[string]string{schema.ColLight: b.phase}
		for _, c := range schema.Policies {
			if c.Name == schema.ColDateTime || c.Name == schema.ColInterval {
				continue
			}
			cells := make([]string, len(b.rows))
			for k, r := range b.rows {
				cells[k] = cell(r, c.Name)
			}
			vals[c.Name] = reduce(c.Policy, cells)
		}
		intervals := make([]string, len(b.rows))
		for k, r := range b.rows {
			intervals[k] = cell(r, schema.ColInterval)
		}
		vals[schema.ColIntervalStart] = formatCell(firstNonEmpty(intervals))
		vals[schema.ColIntervalEnd] = formatCell(lastNonEmpty(intervals))
		vals[schema.ColTimeStart] = ts[first].Format(schema.TimestampLayout)
		vals[schema.ColTimeEnd] = ts[last].Format(schema.TimestampLayout)
		vals[schema.ColDuration] = formatFloat(ts[last].Sub(ts[first]).Hours())

		start, ok := schema.ParseNumber(vals[schema.ColIntervalStart])
		if !ok {
			start = math.Inf(1)
		}
		reduced = append(reduced, binRow{values: vals, intervalStart: start, startTime: ts[first]})
	}

	// Phase grouping scattered the bins; restore chronological order.
	sort.SliceStable(reduced, func(i, j int) bool {
		if reduced[i].intervalStart != reduced[j].intervalStart {
			return reduced[i].intervalStart < reduced[j].intervalStart
		}
		return reduced[i].startTime.Before(reduced[j].startTime)
	})

	perHalfDay := 12.0 / float64(binHours)
	perDay := 24 / binHours
	out := table.New(schema.CanonicalOrder)
	for i, r := range reduced {
		r.values[schema.ColBin] = strconv.Itoa(i)
		r.values[schema.ColDay] = strconv.Itoa(int(math.Floor(float64(i)/perHalfDay)) + 1)
		r.values[schema.ColDailyBin] = strconv.Itoa(i % perDay)
		row := make([]string, len(schema.CanonicalOrder))
		for j, c := range schema.CanonicalOrder {
			row[j] = r.values[c]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// assignBins partitions rows by LED LIGHTNESS value, in order of first
// appearance, and cuts each phase's rows into bins whenever binDur has
// elapsed since the current bin started. Rows of one phase need not be
// contiguous.
func assignBins(t *table.Table, ts []time.Time, binDur time.Duration) []*bin {
	ledIdx := t.Index(schema.ColLight)
	var phases []string
	byPhase := map[string][]int{}
	for i, r := range t.Rows {
		key := phaseKey(r[ledIdx])
		if _, ok := byPhase[key]; !ok {
			phases = append(phases, key)
		}
		byPhase[key] = append(byPhase[key], i)
	}
	var bins []*bin
	for _, p := range phases {
		rows := byPhase[p]
		start := ts[rows[0]]
		cur := &bin{phase: p}
		for _, r := range rows {
			if ts[r].Sub(start) >= binDur {
				bins = append(bins, cur)
				cur = &bin{phase: p}
				start = ts[r]
			}
			cur.rows = append(cur.rows, r)
		}
		bins = append(bins, cur)
	}
	return bins
}

// totalAmbulation derives TOT_AMB = XAMB + YAMB per row; a null operand
// yields a null total.
func totalAmbulation(t *table.Table) []string {
	xi, yi := t.Index(schema.ColXAmb), t.Index(schema.ColYAmb)
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		x, okx := schema.ParseNumber(r[xi])
		y, oky := schema.ParseNumber(r[yi])
		if okx && oky {
			out[i] = schema.FormatNumber(x + y)
		}
	}
	return out
}

func reduce(p schema.Policy, cells []string) string {
	switch p {
	case schema.Last:
		return formatCell(lastNonEmpty(cells))
	case schema.Sum:
		var sum float64
		for _, c := range cells {
			if v, ok := schema.ParseNumber(c); ok {
				sum += v
			}
		}
		return formatFloat(sum)
	default:
		var nums []float64
		for _, c := range cells {
			if v, ok := schema.ParseNumber(c); ok {
				nums = append(nums, v)
			}
		}
		if len(nums) == 0 {
			return ""
		}
		return formatFloat(stat.Mean(nums, nil))
	}
}

func phaseKey(s string) string {
	if v, ok := schema.ParseNumber(s); ok {
		return schema.FormatNumber(v)
	}
	return s
}

func firstNonEmpty(cells []string) string {
	for _, c := range cells {
		if c != "" {
			return c
		}
	}
	return ""
}

func lastNonEmpty(cells []string) string {
	for i := len(cells) - 1; i >= 0; i-- {
		if cells[i] != "" {
			return cells[i]
		}
	}
	return ""
}

// formatCell rounds numeric cells and passes other text through.
func formatCell(s string) string {
	if v, ok := schema.ParseNumber(s); ok {
		return formatFloat(v)
	}
	return s
}

// formatFloat rounds to 4 decimal places, half to even.
func formatFloat(v float64) string {
	r := math.RoundToEven(v*1e4) / 1e4
	if r == 0 {
		r = 0 // drop negative zero
	}
	return schema.FormatNumber(r)
}
