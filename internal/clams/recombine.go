package clams

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/clams-cli/internal/experiment"
	"github.com/KaramelBytes/clams-cli/internal/export"
	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/schema"
	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

// WorkbookFileName is the optional Excel export of the recombined tables.
const WorkbookFileName = "combined.xlsx"

// RowPolicy decides what happens when subjects of one metric have different
// numbers of bins.
type RowPolicy string

const (
	// PadPolicy fills short rows with empty cells up to the longest row.
	PadPolicy RowPolicy = "pad"
	// StrictPolicy fails with a BinCountMismatchError.
	StrictPolicy RowPolicy = "strict"
	// TruncatePolicy cuts every row to the shortest one.
	TruncatePolicy RowPolicy = "truncate"
)

// ParseRowPolicy parses a policy name; empty selects PadPolicy.
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch p := RowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PadPolicy, nil
	case PadPolicy, StrictPolicy, TruncatePolicy:
		return p, nil
	default:
		return "", &ParamError{Name: "row_policy", Value: s, Reason: "must be pad, strict or truncate"}
	}
}

// RecombineOptions configures the Recombiner.
type RecombineOptions struct {
	// Labels, when set, adds a group label after each subject id.
	Labels    *experiment.Config
	RowPolicy RowPolicy
	// Workbook also writes every metric to one sheet of combined.xlsx.
	Workbook bool
	RunID    string
}

// SubjectRow is one subject's values of a metric, in bin order.
type SubjectRow struct {
	ID     string
	Group  string
	Values []string
}

// MetricTable is the cross-subject table of one tracked metric.
type MetricTable struct {
	Metric   string
	Labelled bool
	Rows     []SubjectRow
}

// Records renders the table as headerless CSV records: id[,label],v0,v1,...
func (m *MetricTable) Records() [][]string {
	out := make([][]string, 0, len(m.Rows))
	for _, r := range m.Rows {
		rec := []string{r.ID}
		if m.Labelled {
			rec = append(rec, r.Group)
		}
		out = append(out, append(rec, r.Values...))
	}
	return out
}

// Sheet renders the table with a header row for the workbook export.
func (m *MetricTable) Sheet() export.Sheet {
	header := []string{"ID"}
	if m.Labelled {
		header = append(header, "GROUP LABEL")
	}
	textCols := len(header)
	width := 0
	for _, r := range m.Rows {
		if len(r.Values) > width {
			width = len(r.Values)
		}
	}
	for i := 0; i < width; i++ {
		header = append(header, "BIN "+strconv.Itoa(i))
	}
	return export.Sheet{Name: m.Metric, Header: header, Rows: m.Records(), TextColumns: textCols}
}

// Subject is one binned table and the subject it belongs to.
type Subject struct {
	ID    string
	Table *table.Table
}

// Recombine pivots every table in dir/Binned_CLAMS_data into one table per
// tracked metric in dir/Combined_CLAMS_data.
func Recombine(ctx context.Context, dir string, opts RecombineOptions, rep progress.Reporter) (*StageResult, error) {
	rep = progress.Safe(rep)
	policy, err := ParseRowPolicy(string(opts.RowPolicy))
	if err != nil {
		return nil, &StageError{Stage: StageRecombine, Err: err}
	}
	inDir := filepath.Join(dir, BinnedDir)
	outDir := filepath.Join(dir, CombinedDir)
	res := &StageResult{Stage: StageRecombine, Dir: outDir}

	files, err := utils.ListCSV(inDir)
	if err != nil {
		return nil, &StageError{Stage: StageRecombine, Err: err}
	}
	subjects := make([]Subject, 0, len(files))
	for _, path := range files {
		if err := checkContext(ctx); err != nil {
			return nil, &StageError{Stage: StageRecombine, Err: err}
		}
		name := filepath.Base(path)
		t, err := table.Read(path)
		if err != nil {
			return nil, &StageError{Stage: StageRecombine, File: name, Err: err}
		}
		subjects = append(subjects, Subject{ID: SubjectFromFilename(name), Table: t})
	}

	if opts.Labels != nil {
		for _, s := range subjects {
			if _, ok := opts.Labels.Lookup(s.ID); !ok {
				rep.Report(progress.Event{Kind: progress.Warning, Stage: StageRecombine,
					Message: fmt.Sprintf("subject %s has no group label in %s", s.ID, opts.Labels.FilePath())})
			}
		}
	}

	tables, err := CombineSubjects(subjects, opts.Labels, policy, rep)
	if err != nil {
		return nil, &StageError{Stage: StageRecombine, Err: err}
	}
	if err := utils.ResetDir(outDir); err != nil {
		return nil, &StageError{Stage: StageRecombine, Err: err}
	}
	sheets := make([]export.Sheet, 0, len(tables))
	for i, mt := range tables {
		if err := checkContext(ctx); err != nil {
			return nil, &StageError{Stage: StageRecombine, Err: err}
		}
		out := filepath.Join(outDir, mt.Metric+".csv")
		if err := table.WriteRecords(out, mt.Records()); err != nil {
			return nil, &StageError{Stage: StageRecombine, File: filepath.Base(out), Err: err}
		}
		res.Files = append(res.Files, out)
		sheets = append(sheets, mt.Sheet())
		rep.Report(progress.Event{Kind: progress.FileDone, Stage: StageRecombine, File: filepath.Base(out),
			Index: i + 1, Total: len(tables), Message: "Combining " + mt.Metric})
	}
	if opts.Workbook && len(sheets) > 0 {
		out := filepath.Join(outDir, WorkbookFileName)
		if err := export.WriteWorkbook(out, sheets); err != nil {
			return nil, &StageError{Stage: StageRecombine, File: WorkbookFileName, Err: err}
		}
		res.Files = append(res.Files, out)
	}
	params := map[string]any{"row_policy": string(policy), "labelled": opts.Labels != nil, "workbook": opts.Workbook}
	if err := writeMarker(outDir, newRunID(opts.RunID), StageRecombine, params, res.Files); err != nil {
		return nil, &StageError{Stage: StageRecombine, Err: err}
	}
	return res, nil
}

// CombineSubjects builds the table of every tracked metric present in at
// least one subject. Subjects keep their input order within each table.
func CombineSubjects(subjects []Subject, labels *experiment.Config, policy RowPolicy, rep progress.Reporter) ([]*MetricTable, error) {
	rep = progress.Safe(rep)
	var out []*MetricTable
	for _, metric := range schema.TrackedMetrics {
		mt := &MetricTable{Metric: metric, Labelled: labels != nil}
		for _, s := range subjects {
			vals, ok := s.Table.Column(metric)
			if !ok {
				continue
			}
			row := SubjectRow{ID: s.ID, Values: vals}
			if labels != nil {
				row.Group, _ = labels.Lookup(s.ID)
			}
			mt.Rows = append(mt.Rows, row)
		}
		if len(mt.Rows) == 0 {
			continue
		}
		if err := equalizeRows(mt, policy, rep); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, nil
}

func equalizeRows(mt *MetricTable, policy RowPolicy, rep progress.Reporter) error {
	counts := make(map[string]int, len(mt.Rows))
	shortest, longest := -1, 0
	for _, r := range mt.Rows {
		n := len(r.Values)
		counts[r.ID] = n
		if shortest < 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
	}
	if shortest == longest {
		return nil
	}
	switch policy {
	case StrictPolicy:
		return &BinCountMismatchError{Metric: mt.Metric, Counts: counts}
	case TruncatePolicy:
		for i := range mt.Rows {
			mt.Rows[i].Values = mt.Rows[i].Values[:shortest]
		}
		rep.Report(progress.Event{Kind: progress.Warning, Stage: StageRecombine,
			Message: fmt.Sprintf("%s: truncated all subjects to %d bins", mt.Metric, shortest)})
	default:
		for i := range mt.Rows {
			for len(mt.Rows[i].Values) < longest {
				mt.Rows[i].Values = append(mt.Rows[i].Values, "")
			}
		}
		rep.Report(progress.Event{Kind: progress.Warning, Stage: StageRecombine,
			Message: fmt.Sprintf("%s: padded subjects with fewer than %d bins", mt.Metric, longest)})
	}
	return nil
}

var fallbackID = regexp.MustCompile(`ID(\d{4})`)

// stageSuffixes are appended to cleaned file stems by the Trimmer and Binner.
var stageSuffixes = []string{"_binned", "_trimmed"}

// SubjectFromFilename recovers the subject id the Cleaner embedded in a file
// name: everything after the last "_ID" once the stage suffixes are removed,
// so ids may contain underscores. Names without that token fall back to the
// first "ID" followed by four digits, then to the file stem.
func SubjectFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if i := strings.LastIndex(stem, "_ID"); i >= 0 {
		id := stem[i+len("_ID"):]
		for _, suf := range stageSuffixes {
			id = strings.TrimSuffix(id, suf)
		}
		if id != "" {
			return id
		}
	}
	if m := fallbackID.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return stem
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
