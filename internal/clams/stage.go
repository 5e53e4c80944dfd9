// Package clams implements the CLAMS export pipeline: clean, trim, bin and
// recombine. Each stage reads the previous stage's output directory and
// writes a fresh sibling directory inside the experiment directory.
package clams

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Output directory names, created inside the experiment directory.
const (
	CleanedDir  = "Cleaned_CLAMS_data"
	TrimmedDir  = "Trimmed_CLAMS_data"
	BinnedDir   = "Binned_CLAMS_data"
	CombinedDir = "Combined_CLAMS_data"
)

// Stage names used in progress events, markers and errors.
const (
	StageClean     = "clean"
	StageTrim      = "trim"
	StageBin       = "bin"
	StageRecombine = "recombine"
)

// StageResult summarizes one stage invocation.
type StageResult struct {
	Stage   string
	Dir     string
	Files   []string
	Skipped bool
}

// newRunID returns the id recorded in stage markers when the caller did not
// supply one.
func newRunID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// withSuffix inserts suffix before the extension of name and lowercases the extension.
func withSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + suffix + strings.ToLower(ext)
}
