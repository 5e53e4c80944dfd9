// Package progress carries pipeline progress events from the stages to
// whatever surface displays them.
package progress

import (
	"fmt"
	"sync"
)

// Kind classifies an Event.
type Kind string

const (
	StageStarted  Kind = "stage_started"
	StageSkipped  Kind = "stage_skipped"
	StageFinished Kind = "stage_finished"
	FileDone      Kind = "file_done"
	Warning       Kind = "warning"
)

// Event is one progress notification.
type Event struct {
	Kind    Kind
	Stage   string
	File    string
	Index   int // 1-based position of File within the stage, 0 if not applicable
	Total   int
	Message string
	Detail  string // extra context for structured logs; not printed on the console
}

// String renders the event as a human-readable progress line.
func (e Event) String() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case FileDone:
		return fmt.Sprintf("%s %s", e.Stage, e.File)
	case StageSkipped:
		return fmt.Sprintf("%s skipped", e.Stage)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Stage)
	}
}

// Reporter receives progress events.
type Reporter interface {
	Report(Event)
}

// Func adapts a function to Reporter.
type Func func(Event)

func (f Func) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Reporter = Func(func(Event) {})

// Multi fans events out to several reporters in order.
func Multi(rs ...Reporter) Reporter {
	var live []Reporter
	for _, r := range rs {
		if r != nil {
			live = append(live, r)
		}
	}
	return Func(func(e Event) {
		for _, r := range live {
			r.Report(e)
		}
	})
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Lines returns the recorded events rendered as progress lines.
func (r *Recorder) Lines() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.String()
	}
	return out
}

// Safe returns Discard when r is nil.
func Safe(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}
