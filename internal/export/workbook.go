// Package export writes recombined tables to an Excel workbook.
package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a header row followed by data rows. Cells that
// parse as numbers are stored as numbers, except in the first TextColumns
// columns, which keep identifiers such as "0001" intact.
type Sheet struct {
	Name        string
	Header      []string
	Rows        [][]string
	TextColumns int
}

// WriteWorkbook writes sheets, in order, to an .xlsx file at path.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		name := sheetName(s.Name)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := writeRow(f, name, 1, s.Header, len(s.Header)); err != nil {
			return err
		}
		for r, row := range s.Rows {
			if err := writeRow(f, name, r+2, row, s.TextColumns); err != nil {
				return err
			}
		}
		if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freeze header %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string, textCols int) error {
	vals := make([]any, len(cells))
	for i, c := range cells {
		if i < textCols {
			vals[i] = c
		} else if v, err := strconv.ParseFloat(c, 64); err == nil {
			vals[i] = v
		} else {
			vals[i] = c
		}
	}
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &vals); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// sheetName makes a metric name acceptable to Excel: at most 31 characters
// and none of : \ / ? * [ ].
func sheetName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) > 31 {
		out = out[:31]
	}
	if len(out) == 0 {
		return "Sheet"
	}
	return string(out)
}
