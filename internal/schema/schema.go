// Package schema describes the CLAMS export columns the pipeline recognizes and
// how each one is reduced when readings are collapsed into bins.
package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names used by the instrument export and by derived tables.
const (
	ColDateTime      = "DATE/TIME"
	ColInterval      = "INTERVAL"
	ColChan          = "CHAN"
	ColLight         = "LED LIGHTNESS"
	ColXAmb          = "XAMB"
	ColYAmb          = "YAMB"
	ColTotAmb        = "TOT_AMB"
	ColBin           = "BIN"
	ColDay           = "DAY"
	ColDailyBin      = "DAILY_BIN"
	ColDuration      = "DURATION"
	ColIntervalStart = "INTERVAL_start"
	ColIntervalEnd   = "INTERVAL_end"
	ColTimeStart     = "DATE/TIME_start"
	ColTimeEnd       = "DATE/TIME_end"
)

// Policy selects how a column is reduced over the rows of one bin.
type Policy int

const (
	// Mean averages the non-null values of the bin.
	Mean Policy = iota
	// Last keeps the last non-null value (identity and cumulative columns).
	Last
	// Sum adds the non-null values (incremental counters).
	Sum
)

func (p Policy) String() string {
	switch p {
	case Last:
		return "last"
	case Sum:
		return "sum"
	default:
		return "mean"
	}
}

// Column pairs a recognized column with its reduction policy.
type Column struct {
	Name   string
	Policy Policy
}

// Policies lists every source column the binner reduces. Columns not listed
// here are carried into the reduction only if they appear in CanonicalOrder.
var Policies = []Column{
	{ColInterval, Last},
	{ColChan, Last},
	{ColDateTime, Last},
	{"ACCO2", Last},
	{"ACCCO2", Last},
	{"FEED1 ACC", Last},
	{"WHEEL ACC", Last},
	{"WHEEL", Sum},
	{"FEED1", Sum},
	{ColTotAmb, Sum},
	{"VO2", Mean},
	{"VCO2", Mean},
	{"RER", Mean},
	{"HEAT", Mean},
	{"FLOW", Mean},
	{"PRESSURE", Mean},
	{"ENCLOSURE TEMP", Mean},
	{"ENCLOSURE SETPOINT", Mean},
}

// DroppedColumns are removed before binning; absence is not an error.
var DroppedColumns = []string{
	"STATUS1", "O2IN", "O2OUT", "DO2", "CO2IN", "CO2OUT", "DCO2",
	"XTOT", "YTOT", "LED HUE", "LED SATURATION", ColBin,
}

// CanonicalOrder is the column layout of a binned table.
var CanonicalOrder = []string{
	ColChan, ColIntervalStart, ColIntervalEnd, ColTimeStart, ColTimeEnd, ColDuration,
	"VO2", "ACCO2", "VCO2", "ACCCO2", "RER", "HEAT", "FLOW", "PRESSURE",
	"FEED1", "FEED1 ACC", ColTotAmb, "WHEEL", "WHEEL ACC",
	"ENCLOSURE TEMP", "ENCLOSURE SETPOINT", ColLight, ColDay, ColBin, ColDailyBin,
}

// TrackedMetrics are recombined into one cross-subject table each.
var TrackedMetrics = []string{
	"VO2", "ACCO2", "VCO2", "ACCCO2", "RER", "FEED1", "FEED1 ACC", ColTotAmb, "WHEEL", "WHEEL ACC",
}

// PolicyFor returns the reduction policy of a column; unknown columns average.
func PolicyFor(name string) Policy {
	for _, c := range Policies {
		if c.Name == name {
			return c.Policy
		}
	}
	return Mean
}

// IsDropped reports whether the binner discards the column.
func IsDropped(name string) bool {
	for _, d := range DroppedColumns {
		if d == name {
			return true
		}
	}
	return false
}

// TimestampLayout is how derived tables render timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	TimestampLayout,
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseTimestamp parses an instrument DATE/TIME cell. ok is false for empty
// or unrecognized values, which callers treat as null.
func ParseTimestamp(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses a numeric cell. ok is false for empty or non-numeric values.
func ParseNumber(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders v in its shortest decimal form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BinSources lists the columns a trimmed table must carry to be binned.
func BinSources() []string {
	out := make([]string, 0, len(Policies)+3)
	for _, c := range Policies {
		if c.Name == ColTotAmb {
			continue
		}
		out = append(out, c.Name)
	}
	return append(out, ColXAmb, ColYAmb, ColLight)
}
