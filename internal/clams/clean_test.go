package clams

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/table"
)

func TestCleanDirectory(t *testing.T) {
	dir := standardExperiment(t)
	rec := &progress.Recorder{}

	res, err := CleanDirectory(context.Background(), dir, CleanOptions{}, rec)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(dir, CleanedDir, "cage1_ID0001.csv"), res.Files[0])
	assert.Equal(t, filepath.Join(dir, CleanedDir, "cage2_ID0002.csv"), res.Files[1])
	assert.Equal(t, []string{"Cleaning cage1.CSV", "Cleaning cage2.csv"}, rec.Lines())

	cleaned, err := table.Read(res.Files[0])
	require.NoError(t, err)
	assert.Equal(t, exportColumns, cleaned.Header)
	require.Len(t, cleaned.Rows, 48)
	assert.Equal(t, "1", cleaned.Rows[0][0])

	// Raw line count minus preamble, header row and formatting rows.
	raw, err := os.ReadFile(filepath.Join(dir, "cage1.CSV"))
	require.NoError(t, err)
	rawLines := strings.Count(string(raw), "\n")
	assert.Equal(t, rawLines-DefaultPreambleRows-formattingRows-1, len(cleaned.Rows))

	m, err := ReadMarker(filepath.Join(dir, CleanedDir))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, StageClean, m.Stage)
	assert.Len(t, m.Outputs, 2)
	assert.NotEmpty(t, m.RunID)
}

func TestCleanDirectorySkipsCompletedBatch(t *testing.T) {
	dir := standardExperiment(t)
	_, err := CleanDirectory(context.Background(), dir, CleanOptions{RunID: "first"}, nil)
	require.NoError(t, err)

	// A new raw file is not picked up: the skip is whole-batch.
	writeExport(t, dir, "cage3.csv", subjectExport{id: "0003", hours: 48, period: 12, vo2: 5000})

	rec := &progress.Recorder{}
	res, err := CleanDirectory(context.Background(), dir, CleanOptions{RunID: "second"}, rec)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, res.Files, 2)
	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, progress.StageSkipped, evs[0].Kind)
	assert.Contains(t, evs[0].Message, "first")
	assert.NoFileExists(t, filepath.Join(dir, CleanedDir, "cage3_ID0003.csv"))
}

func TestCleanDirectoryRebuildsWithoutValidMarker(t *testing.T) {
	dir := standardExperiment(t)
	outDir := filepath.Join(dir, CleanedDir)

	// An interrupted run leaves a directory without a marker.
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "partial.csv"), []byte("x\n"), 0o644))
	res, err := CleanDirectory(context.Background(), dir, CleanOptions{}, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NoFileExists(t, filepath.Join(outDir, "partial.csv"))

	// Editing an output invalidates the marker.
	require.NoError(t, os.WriteFile(res.Files[0], []byte("tampered\n"), 0o644))
	rec := &progress.Recorder{}
	res, err = CleanDirectory(context.Background(), dir, CleanOptions{}, rec)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	require.NotEmpty(t, rec.Events())
	assert.Equal(t, progress.Warning, rec.Events()[0].Kind)
	cleaned, err := table.Read(res.Files[0])
	require.NoError(t, err)
	assert.Len(t, cleaned.Rows, 48)
}

func TestCleanDirectoryRebuildsWhenPreambleChanges(t *testing.T) {
	dir := standardExperiment(t)
	_, err := CleanDirectory(context.Background(), dir, CleanOptions{}, nil)
	require.NoError(t, err)

	// Same value spelled explicitly still skips.
	res, err := CleanDirectory(context.Background(), dir, CleanOptions{PreambleRows: DefaultPreambleRows}, nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	// One more preamble line: the blank formatting row becomes the header.
	rec := &progress.Recorder{}
	res, err = CleanDirectory(context.Background(), dir, CleanOptions{PreambleRows: DefaultPreambleRows + 1}, rec)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	evs := rec.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, progress.Warning, evs[0].Kind)
	assert.Contains(t, evs[0].Message, "preamble_rows changed from 22 to 23")

	m, err := ReadMarker(filepath.Join(dir, CleanedDir))
	require.NoError(t, err)
	assert.EqualValues(t, DefaultPreambleRows+1, m.Params["preamble_rows"])
}

func TestCleanDirectoryAbortsOnMalformedFile(t *testing.T) {
	dir := standardExperiment(t)
	bad := subjectExport{id: "0009", hours: 4, period: 12, vo2: 1}.rawExport() + "1,2,3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cage9.csv"), []byte(bad), 0o644))

	_, err := CleanDirectory(context.Background(), dir, CleanOptions{}, nil)
	require.Error(t, err)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageClean, se.Stage)
	assert.Equal(t, "cage9.csv", se.File)
	var cc *ColumnCountError
	require.True(t, errors.As(err, &cc))
	assert.Equal(t, 3, cc.Got)
	assert.Equal(t, len(exportColumns), cc.Expect)

	m, err := ReadMarker(filepath.Join(dir, CleanedDir))
	require.NoError(t, err)
	assert.Nil(t, m, "no marker after a failed batch")
}

func TestCleanFileMissingSubjectID(t *testing.T) {
	dir := t.TempDir()
	raw := strings.Replace(subjectExport{id: "1", hours: 2, period: 12, vo2: 1}.rawExport(), "Subject ID,1", "Animal,1", 1)
	path := filepath.Join(dir, "noid.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := CleanFile(path, t.TempDir(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "noid.csv")
}

func TestCleanFileCustomPreamble(t *testing.T) {
	dir := t.TempDir()
	raw := "Subject ID,77\nignored\n" + strings.Join([]string{"A", "B"}, ",") + "\nu1,u2\nu3,u4\n1,2\n3,4\n"
	path := filepath.Join(dir, "short.csv")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	out, err := CleanFile(path, dir, 2)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "short_ID77.csv"), out)
	got, err := table.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.Header)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, got.Rows)
}
