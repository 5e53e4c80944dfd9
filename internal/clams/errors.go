package clams

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField marks a required metadata field or column that is absent.
	ErrMissingField = errors.New("missing field")
	// ErrNoTransition marks a table with no light-cycle change after the acclimation cut.
	ErrNoTransition = errors.New("no light-cycle transition")
	// ErrInvalidParams marks operator parameters outside the supported range.
	ErrInvalidParams = errors.New("invalid parameters")
)

// MissingFieldError reports absent metadata fields or table columns.
type MissingFieldError struct {
	File   string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	what := strings.Join(e.Fields, ", ")
	if e.File != "" {
		return fmt.Sprintf("%s: missing %s", e.File, what)
	}
	return "missing " + what
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// NoTransitionError reports that no LED LIGHTNESS change follows the acclimation cutoff.
type NoTransitionError struct {
	File      string
	Reference string
	Retained  int
}

func (e *NoTransitionError) Error() string {
	if e.Retained == 0 {
		return fmt.Sprintf("%s: no rows remain after the acclimation window", e.File)
	}
	return fmt.Sprintf("%s: LED LIGHTNESS never leaves %q across %d rows after the acclimation window", e.File, e.Reference, e.Retained)
}

func (e *NoTransitionError) Is(target error) bool { return target == ErrNoTransition }

// NoTimestampError reports that the first row's DATE/TIME could not be parsed,
// so no acclimation cutoff can be computed.
type NoTimestampError struct {
	File  string
	Value string
}

func (e *NoTimestampError) Error() string {
	return fmt.Sprintf("%s: first DATE/TIME %q is not a timestamp", e.File, e.Value)
}

// ParseError reports a cell that must parse but does not.
type ParseError struct {
	File   string
	Row    int // 1-based data row
	Column string
	Value  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: row %d: cannot parse %s value %q", e.File, e.Row, e.Column, e.Value)
}

// ColumnCountError reports a data record whose width differs from the header.
type ColumnCountError struct {
	File   string
	Line   int
	Got    int
	Expect int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("%s: line %d has %d fields, header has %d", e.File, e.Line, e.Got, e.Expect)
}

// ParamError reports an invalid operator parameter.
type ParamError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Name, e.Value, e.Reason)
}

func (e *ParamError) Is(target error) bool { return target == ErrInvalidParams }

// BinCountMismatchError reports subjects with differing bin counts under StrictPolicy.
type BinCountMismatchError struct {
	Metric string
	Counts map[string]int
}

func (e *BinCountMismatchError) Error() string {
	var parts []string
	for _, id := range sortedKeys(e.Counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", id, e.Counts[id]))
	}
	return fmt.Sprintf("%s: subjects have different bin counts (%s)", e.Metric, strings.Join(parts, ", "))
}

// StageError wraps the failure that aborted a stage.
type StageError struct {
	Stage string
	File  string
	Err   error
}

func (e *StageError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
