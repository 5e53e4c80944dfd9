package progress

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	assert.Equal(t, "Cleaning a.csv", Event{Kind: FileDone, Message: "Cleaning a.csv"}.String())
	assert.Equal(t, "bin a.csv", Event{Kind: FileDone, Stage: "bin", File: "a.csv"}.String())
	assert.Equal(t, "clean skipped", Event{Kind: StageSkipped, Stage: "clean"}.String())
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	r := Multi(a, nil, b)
	r.Report(Event{Kind: FileDone, Message: "one"})
	r.Report(Event{Kind: Warning, Message: "two"})
	assert.Equal(t, []string{"one", "two"}, a.Lines())
	assert.Equal(t, a.Events(), b.Events())

	require.NotNil(t, Safe(nil))
	Safe(nil).Report(Event{Kind: FileDone})
	assert.Equal(t, Reporter(a), Safe(a))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "never")
	c.Report(Event{Kind: StageStarted, Message: "Cleaning all CLAMS data..."})
	c.Report(Event{Kind: FileDone, Message: "Cleaning a.csv"})
	c.Report(Event{Kind: StageFinished, Message: "done"})
	c.Report(Event{Kind: StageStarted, Message: "Trimming all cleaned CLAMS data..."})
	c.Report(Event{Kind: Warning, Message: "careful"})
	c.Report(Event{Kind: StageSkipped, Message: "already complete"})

	want := strings.Join([]string{
		"Cleaning all CLAMS data...",
		"Cleaning a.csv",
		"✓ done",
		"",
		"Trimming all cleaned CLAMS data...",
		"⚠ careful",
		"↷ already complete",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestConsoleColorAlways(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, "always").Report(Event{Kind: Warning, Message: "careful"})
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "careful")

	buf.Reset()
	NewConsole(&buf, "auto").Report(Event{Kind: Warning, Message: "careful"})
	assert.Equal(t, "⚠ careful\n", buf.String(), "buffers are never terminals")
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewSlog(&buf, "debug", "json"))
	l.Report(Event{Kind: FileDone, Stage: "trim", File: "a.csv", Index: 1, Total: 2, Message: "Trimming a.csv", Detail: "anchored"})
	l.Report(Event{Kind: Warning, Stage: "recombine", Message: "padded"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "Trimming a.csv", rec["msg"])
	assert.Equal(t, "a.csv", rec["file"])
	assert.Equal(t, "anchored", rec["detail"])
	assert.EqualValues(t, 2, rec["total"])
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "WARN", rec["level"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewSlog(&buf, "info", "text"))
	l.Report(Event{Kind: FileDone, Message: "Cleaning a.csv"})
	assert.Empty(t, buf.String())
	l.Report(Event{Kind: StageStarted, Stage: "clean", Message: "Cleaning all CLAMS data..."})
	assert.Contains(t, buf.String(), "stage=clean")
}
