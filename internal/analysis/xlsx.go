package analysis

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/clams-cli/internal/table"
)

// AnalyzeXLSX inspects one sheet of a workbook, such as the combined.xlsx
// export. opt.Sheet selects the sheet by name; empty uses the first sheet.
func AnalyzeXLSX(path string, opt Options) (*Report, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	t := sheetTable(rows)
	if opt.NoHeader {
		t = promoteHeader(t)
	}
	rep := Analyze(filepath.Base(path), t, opt)
	rep.Sheet = sheet
	return rep, nil
}

// sheetTable pads ragged sheet rows to the widest row.
func sheetTable(rows [][]string) *table.Table {
	if len(rows) == 0 {
		return table.New(nil)
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	pad := func(r []string) []string {
		out := make([]string, width)
		copy(out, r)
		return out
	}
	t := table.New(pad(rows[0]))
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, pad(r))
	}
	return t
}
