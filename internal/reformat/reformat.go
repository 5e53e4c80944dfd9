// Package reformat pivots long-form hourly tables (one row per subject, day
// and hour of day) into one row per subject and day.
package reformat

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// OutputDir is created inside the input directory.
const OutputDir = "Reformatted_CSVs"

// Stage names reformat progress events.
const Stage = "reformat"

// HourColumn holds the hour of day each row was recorded in.
const HourColumn = "24 HOUR"

// KeyColumns identify one output row, in output order.
var KeyColumns = []string{"ID", "GROUP LABEL", "DAY"}

// Directory pivots every .csv in dir into dir/Reformatted_CSVs/reformatted_<name>
// and returns the written paths.
func Directory(ctx context.Context, dir string, rep progress.Reporter) ([]string, error) {
	rep = progress.Safe(rep)
	files, err := utils.ListCSV(dir)
	if err != nil {
		return nil, err
	}
	outDir := filepath.Join(dir, OutputDir)
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, err
	}
	var written []string
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		name := filepath.Base(path)
		t, err := table.Read(path)
		if err != nil {
			return written, fmt.Errorf("%s: %w", name, err)
		}
		out, err := Pivot(t)
		if err != nil {
			return written, fmt.Errorf("%s: %w", name, err)
		}
		dst := filepath.Join(outDir, "reformatted_"+name)
		if err := out.Write(dst); err != nil {
			return written, fmt.Errorf("%s: %w", name, err)
		}
		written = append(written, dst)
		rep.Report(progress.Event{Kind: progress.FileDone, Stage: Stage, File: name,
			Index: i + 1, Total: len(files), Message: fmt.Sprintf("Reformatting '%s' to 'reformatted_%s'", name, name)})
	}
	return written, nil
}

// Pivot spreads the last column of t across one column per distinct hour.
// Rows are keyed by ID, GROUP LABEL and DAY and sorted by that key; when a
// key repeats an hour the first non-empty value wins.
func Pivot(t *table.Table) (*table.Table, error) {
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	var missing []string
	keyIdx := make([]int, len(KeyColumns))
	for i, c := range KeyColumns {
		keyIdx[i] = t.Index(c)
		if keyIdx[i] < 0 {
			missing = append(missing, c)
		}
	}
	hourIdx := t.Index(HourColumn)
	if hourIdx < 0 {
		missing = append(missing, HourColumn)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	valueIdx := len(t.Header) - 1
	value := t.Header[valueIdx]

	type group struct {
		key    []string
		byHour map[string]string
	}
	var order []*group
	groups := map[string]*group{}
	hours := map[string]bool{}
	for _, r := range t.Rows {
		key := make([]string, len(keyIdx))
		for i, k := range keyIdx {
			key[i] = r[k]
		}
		id := strings.Join(key, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &group{key: key, byHour: map[string]string{}}
			groups[id] = g
			order = append(order, g)
		}
		h := strings.TrimSpace(r[hourIdx])
		hours[h] = true
		if g.byHour[h] == "" {
			g.byHour[h] = r[valueIdx]
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return compareKeys(order[i].key, order[j].key) < 0
	})

	cols := sortHours(hours)
	header := append([]string{}, KeyColumns...)
	for _, h := range cols {
		header = append(header, value+"_"+h)
	}
	out := table.New(header)
	for _, g := range order {
		row := append([]string{}, g.key...)
		for _, h := range cols {
			row = append(row, g.byHour[h])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// compareKeys orders row keys column by column, numerically when both cells
// parse as numbers.
func compareKeys(a, b []string) int {
	for i := range a {
		if c := compareCells(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareCells(a, b string) int {
	fa, oka := schema.ParseNumber(a)
	fb, okb := schema.ParseNumber(b)
	switch {
	case oka && okb && fa != fb:
		if fa < fb {
			return -1
		}
		return 1
	case oka && !okb:
		return -1
	case !oka && okb:
		return 1
	}
	return strings.Compare(a, b)
}

// sortHours orders hours numerically, placing non-numeric labels after the
// numeric ones in lexical order.
func sortHours(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		a, oka := schema.ParseNumber(out[i])
		b, okb := schema.ParseNumber(out[j])
		switch {
		case oka && okb:
			if a != b {
				return a < b
			}
			return out[i] < out[j]
		case oka:
			return true
		case okb:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
