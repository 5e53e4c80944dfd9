package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console prints progress lines the way an operator expects to read them:
// a blank line before each stage header, one line per file, and colored
// markers for warnings and skips when writing to a terminal.
type Console struct {
	w     io.Writer
	mu    sync.Mutex
	color bool
	first bool
}

// NewConsole returns a Console writing to w. mode is "auto", "always" or
// "never"; auto enables color only when w is a terminal.
func NewConsole(w io.Writer, mode string) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w, color: useColor(w, mode), first: true}
}

func useColor(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return !color.NoColor
}

func (c *Console) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case StageStarted:
		if !c.first {
			fmt.Fprintln(c.w)
		}
		c.first = false
		fmt.Fprintln(c.w, c.paint(color.New(color.Bold), e.String()))
	case Warning:
		fmt.Fprintln(c.w, c.paint(color.New(color.FgYellow), "⚠ "+e.String()))
	case StageSkipped:
		fmt.Fprintln(c.w, c.paint(color.New(color.FgCyan), "↷ "+e.String()))
	case StageFinished:
		fmt.Fprintln(c.w, c.paint(color.New(color.FgGreen), "✓ "+e.String()))
	default:
		fmt.Fprintln(c.w, e.String())
	}
}

func (c *Console) paint(p *color.Color, s string) string {
	if !c.color {
		return s
	}
	p.EnableColor()
	return p.Sprint(s)
}
