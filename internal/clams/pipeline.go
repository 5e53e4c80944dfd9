package clams

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/clams-cli/internal/experiment"
	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// Params are the operator inputs of a full pipeline run.
type Params struct {
	Dir          string
	TrimHours    int
	KeepHours    int
	BinHours     int
	PreambleRows int
	// Labels is optional; nil recombines without group labels.
	Labels    *experiment.Config
	RowPolicy RowPolicy
	Workbook  bool
}

// Validate checks every parameter before any file is touched.
func (p Params) Validate() error {
	if p.Dir == "" {
		return &ParamError{Name: "dir", Value: p.Dir, Reason: "is required"}
	}
	fi, err := os.Stat(p.Dir)
	if err != nil {
		return &ParamError{Name: "dir", Value: p.Dir, Reason: err.Error()}
	}
	if !fi.IsDir() {
		return &ParamError{Name: "dir", Value: p.Dir, Reason: "is not a directory"}
	}
	if err := validateHours(p.TrimHours, p.KeepHours); err != nil {
		return err
	}
	if err := ValidateBinHours(p.BinHours); err != nil {
		return err
	}
	if p.PreambleRows < 0 {
		return &ParamError{Name: "preamble_rows", Value: p.PreambleRows, Reason: "must not be negative"}
	}
	_, err = ParseRowPolicy(string(p.RowPolicy))
	return err
}

// StageSummary is the outcome of one stage of a run.
type StageSummary struct {
	Stage   string
	Dir     string
	Files   int
	Skipped bool
}

// RunSummary is the outcome of a completed run.
type RunSummary struct {
	RunID    string
	Stages   []StageSummary
	Started  time.Time
	Duration time.Duration
}

type stageStep struct {
	name   string
	header string
	run    func(ctx context.Context) (*StageResult, error)
}

// Run executes clean, trim, bin and recombine over p.Dir in order and stops
// at the first failing stage. Only one run may hold a directory at a time;
// a concurrent run fails with utils.ErrLocked.
func Run(ctx context.Context, p Params, rep progress.Reporter) (*RunSummary, error) {
	rep = progress.Safe(rep)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	lock, err := utils.LockDir(p.Dir)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	sum := &RunSummary{RunID: uuid.NewString(), Started: time.Now()}
	steps := []stageStep{
		{StageClean, "Cleaning all CLAMS data...", func(ctx context.Context) (*StageResult, error) {
			return CleanDirectory(ctx, p.Dir, CleanOptions{PreambleRows: p.PreambleRows, RunID: sum.RunID}, rep)
		}},
		{StageTrim, "Trimming all cleaned CLAMS data...", func(ctx context.Context) (*StageResult, error) {
			return TrimDirectory(ctx, p.Dir, TrimOptions{TrimHours: p.TrimHours, KeepHours: p.KeepHours, RunID: sum.RunID}, rep)
		}},
		{StageBin, "Binning all trimmed CLAMS data...", func(ctx context.Context) (*StageResult, error) {
			return BinDirectory(ctx, p.Dir, BinOptions{BinHours: p.BinHours, RunID: sum.RunID}, rep)
		}},
		{StageRecombine, "Combining binned CLAMS data...", func(ctx context.Context) (*StageResult, error) {
			return Recombine(ctx, p.Dir, RecombineOptions{Labels: p.Labels, RowPolicy: p.RowPolicy, Workbook: p.Workbook, RunID: sum.RunID}, rep)
		}},
	}
	for _, s := range steps {
		rep.Report(progress.Event{Kind: progress.StageStarted, Stage: s.name, Message: s.header})
		res, err := s.run(ctx)
		if err != nil {
			return nil, err
		}
		sum.Stages = append(sum.Stages, StageSummary{Stage: res.Stage, Dir: res.Dir, Files: len(res.Files), Skipped: res.Skipped})
		rep.Report(progress.Event{Kind: progress.StageFinished, Stage: s.name,
			Message: fmt.Sprintf("%s: %d files", res.Dir, len(res.Files))})
	}
	sum.Duration = time.Since(sum.Started)
	return sum, nil
}
