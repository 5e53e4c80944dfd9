package clams

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// TrimOptions configures the Trimmer.
type TrimOptions struct {
	TrimHours int // acclimation window discarded from the start
	KeepHours int // duration retained after the anchor
	RunID     string
}

// TrimResult describes where a table was anchored.
type TrimResult struct {
	AnchorRow  int // 0-based row of the anchor in the input table
	AnchorTime time.Time
	End        time.Time
	Rows       int
}

// TrimDirectory trims every table in dir/Cleaned_CLAMS_data into
// dir/Trimmed_CLAMS_data. Every file is reprocessed on each call.
func TrimDirectory(ctx context.Context, dir string, opts TrimOptions, rep progress.Reporter) (*StageResult, error) {
	rep = progress.Safe(rep)
	if err := validateHours(opts.TrimHours, opts.KeepHours); err != nil {
		return nil, &StageError{Stage: StageTrim, Err: err}
	}
	inDir := filepath.Join(dir, CleanedDir)
	outDir := filepath.Join(dir, TrimmedDir)
	res := &StageResult{Stage: StageTrim, Dir: outDir}

	files, err := utils.ListCSV(inDir)
	if err != nil {
		return nil, &StageError{Stage: StageTrim, Err: err}
	}
	if err := utils.ResetDir(outDir); err != nil {
		return nil, &StageError{Stage: StageTrim, Err: err}
	}
	for i, path := range files {
		if err := checkContext(ctx); err != nil {
			return nil, &StageError{Stage: StageTrim, Err: err}
		}
		name := filepath.Base(path)
		t, err := table.Read(path)
		if err != nil {
			return nil, &StageError{Stage: StageTrim, File: name, Err: err}
		}
		trimmed, tr, err := TrimTable(name, t, opts.TrimHours, opts.KeepHours)
		if err != nil {
			return nil, &StageError{Stage: StageTrim, File: name, Err: err}
		}
		out := filepath.Join(outDir, withSuffix(name, "_trimmed"))
		if err := trimmed.Write(out); err != nil {
			return nil, &StageError{Stage: StageTrim, File: name, Err: err}
		}
		res.Files = append(res.Files, out)
		rep.Report(progress.Event{Kind: progress.FileDone, Stage: StageTrim, File: name,
			Index: i + 1, Total: len(files), Message: "Trimming " + name,
			Detail: fmt.Sprintf("anchored at %s, %d rows kept", tr.AnchorTime.Format(schema.TimestampLayout), tr.Rows)})
	}
	params := map[string]any{"trim_hours": opts.TrimHours, "keep_hours": opts.KeepHours}
	if err := writeMarker(outDir, newRunID(opts.RunID), StageTrim, params, res.Files); err != nil {
		return nil, &StageError{Stage: StageTrim, Err: err}
	}
	return res, nil
}

// TrimTable discards the acclimation window, anchors the retained window at
// the first light-cycle change after it, and keeps rows within keepHours of
// the anchor. name is used only in errors.
func TrimTable(name string, t *table.Table, trimHours, keepHours int) (*table.Table, TrimResult, error) {
	var res TrimResult
	tsIdx, ledIdx := t.Index(schema.ColDateTime), t.Index(schema.ColLight)
	var missing []string
	if tsIdx < 0 {
		missing = append(missing, schema.ColDateTime)
	}
	if ledIdx < 0 {
		missing = append(missing, schema.ColLight)
	}
	if len(missing) > 0 {
		return nil, res, &MissingFieldError{File: name, Fields: missing}
	}
	if len(t.Rows) == 0 {
		return nil, res, &NoTransitionError{File: name}
	}

	// Unparseable timestamps stay null and never satisfy a comparison.
	ts := make([]time.Time, len(t.Rows))
	valid := make([]bool, len(t.Rows))
	for i, r := range t.Rows {
		ts[i], valid[i] = schema.ParseTimestamp(r[tsIdx])
	}
	if !valid[0] {
		return nil, res, &NoTimestampError{File: name, Value: t.Rows[0][tsIdx]}
	}
	start := ts[0].Add(time.Duration(trimHours) * time.Hour)

	anchor, ref, retained := -1, "", 0
	for i := range t.Rows {
		if !valid[i] || ts[i].Before(start) {
			continue
		}
		phase := t.Rows[i][ledIdx]
		retained++
		if retained == 1 {
			ref = phase
			continue
		}
		if !samePhase(phase, ref) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return nil, res, &NoTransitionError{File: name, Reference: ref, Retained: retained}
	}

	res.AnchorRow = anchor
	res.AnchorTime = ts[anchor]
	res.End = ts[anchor].Add(time.Duration(keepHours) * time.Hour)
	// Both ends are kept: a reading exactly at End stays, so a window of
	// keepHours holds keepHours/binHours full bins plus that closing reading.
	var keep []int
	for i := range t.Rows {
		if !valid[i] || ts[i].Before(res.AnchorTime) || ts[i].After(res.End) {
			continue
		}
		keep = append(keep, i)
	}
	res.Rows = len(keep)
	return t.Select(keep), res, nil
}

// samePhase compares LED LIGHTNESS values numerically when both parse, so
// "1" and "1.0" are the same phase.
func samePhase(a, b string) bool {
	fa, oka := schema.ParseNumber(a)
	fb, okb := schema.ParseNumber(b)
	if oka && okb {
		return fa == fb
	}
	return a == b
}

func validateHours(trimHours, keepHours int) error {
	if trimHours <= 0 {
		return &ParamError{Name: "trim_hours", Value: trimHours, Reason: "must be a positive number of hours"}
	}
	if keepHours <= 0 {
		return &ParamError{Name: "keep_hours", Value: keepHours, Reason: "must be a positive number of hours"}
	}
	return nil
}
