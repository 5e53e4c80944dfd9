package clams

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// DefaultPreambleRows is the number of metadata lines preceding the data
// header in a raw CLAMS export.
const DefaultPreambleRows = 22

// formattingRows follow the data header and carry no readings.
const formattingRows = 2

// CleanOptions configures the Cleaner.
type CleanOptions struct {
	// PreambleRows is the count of metadata lines before the header; 0 uses DefaultPreambleRows.
	PreambleRows int
	// RunID is recorded in the stage marker; empty generates one.
	RunID string
}

// CleanDirectory cleans every .csv export in dir into dir/Cleaned_CLAMS_data.
// The whole batch is skipped when a previous run completed the stage and its
// outputs and parameters are unchanged. Any failing file aborts the batch.
func CleanDirectory(ctx context.Context, dir string, opts CleanOptions, rep progress.Reporter) (*StageResult, error) {
	rep = progress.Safe(rep)
	outDir := filepath.Join(dir, CleanedDir)
	res := &StageResult{Stage: StageClean, Dir: outDir}

	m, err := ReadMarker(outDir)
	if err != nil {
		return nil, &StageError{Stage: StageClean, Err: err}
	}
	preamble := preambleOrDefault(opts.PreambleRows)
	if m != nil {
		verr := m.Verify(outDir)
		if verr == nil {
			verr = m.checkParam("preamble_rows", preamble)
		}
		if verr == nil {
			res.Skipped = true
			for _, o := range m.Outputs {
				res.Files = append(res.Files, filepath.Join(outDir, o.Name))
			}
			rep.Report(progress.Event{Kind: progress.StageSkipped, Stage: StageClean,
				Message: fmt.Sprintf("%s already complete (run %s), skipping", CleanedDir, m.RunID)})
			return res, nil
		}
		rep.Report(progress.Event{Kind: progress.Warning, Stage: StageClean,
			Message: fmt.Sprintf("rebuilding %s: %v", CleanedDir, verr)})
	}
	if err := utils.ResetDir(outDir); err != nil {
		return nil, &StageError{Stage: StageClean, Err: err}
	}

	files, err := utils.ListCSV(dir)
	if err != nil {
		return nil, &StageError{Stage: StageClean, Err: err}
	}
	for i, path := range files {
		if err := checkContext(ctx); err != nil {
			return nil, &StageError{Stage: StageClean, Err: err}
		}
		out, err := CleanFile(path, outDir, opts.PreambleRows)
		if err != nil {
			return nil, &StageError{Stage: StageClean, File: filepath.Base(path), Err: err}
		}
		res.Files = append(res.Files, out)
		rep.Report(progress.Event{Kind: progress.FileDone, Stage: StageClean, File: filepath.Base(path),
			Index: i + 1, Total: len(files), Message: "Cleaning " + filepath.Base(path)})
	}
	params := map[string]any{"preamble_rows": preamble}
	if err := writeMarker(outDir, newRunID(opts.RunID), StageClean, params, res.Files); err != nil {
		return nil, &StageError{Stage: StageClean, Err: err}
	}
	return res, nil
}

// CleanFile strips the preamble and formatting rows of one raw export and
// writes <stem>_ID<subject><ext> into outDir. It returns the output path.
func CleanFile(path, outDir string, preambleRows int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	name := filepath.Base(path)
	id, err := ExtractSubjectID(bytes.NewReader(data))
	if err != nil {
		var mf *MissingFieldError
		if errors.As(err, &mf) {
			mf.File = name
		}
		return "", err
	}
	t, err := parseExport(name, data, preambleOrDefault(preambleRows))
	if err != nil {
		return "", err
	}
	out := filepath.Join(outDir, withSuffix(name, "_ID"+id))
	if err := t.Write(out); err != nil {
		return "", fmt.Errorf("write cleaned table: %w", err)
	}
	return out, nil
}

func preambleOrDefault(n int) int {
	if n <= 0 {
		return DefaultPreambleRows
	}
	return n
}

// parseExport skips the preamble lines, reads the header, drops the
// formatting rows and validates the width of every data row.
func parseExport(name string, data []byte, preambleRows int) (*table.Table, error) {
	br := bufio.NewReader(bytes.NewReader(data))
	for i := 0; i < preambleRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &MissingFieldError{File: name, Fields: []string{"data header"}}
			}
			return nil, fmt.Errorf("skip preamble: %w", err)
		}
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingFieldError{File: name, Fields: []string{"data header"}}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := table.New(header)
	for i := range t.Header {
		t.Header[i] = strings.TrimSpace(t.Header[i])
	}
	for n := 0; ; n++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read data: %w", err)
		}
		if n < formattingRows {
			continue
		}
		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &ColumnCountError{File: name, Line: preambleRows + line, Got: len(rec), Expect: len(header)}
		}
		row := make([]string, len(rec))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
