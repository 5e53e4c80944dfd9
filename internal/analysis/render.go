package analysis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes the report as console tables.
func (r *Report) Render(w io.Writer) {
	title := r.Name
	if r.Sheet != "" {
		title += " [" + r.Sheet + "]"
	}
	fmt.Fprintf(w, "%s: %d rows, %d columns\n", title, r.Rows, len(r.Cols))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Column", "Kind", "Policy", "Non-null", "Missing", "Min", "Max", "Mean", "Std"})
	for _, c := range r.Cols {
		policy := c.Policy
		if c.Dropped {
			policy = "dropped"
		}
		row := table.Row{c.Name, c.Kind, policy, c.NonNull, c.Missing, "", "", "", ""}
		if c.Kind == KindNumeric {
			row[5], row[6], row[7], row[8] = fmtStat(c.Min), fmtStat(c.Max), fmtStat(c.Mean), fmtStat(c.Std)
		}
		tw.AppendRow(row)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	tw.Render()

	if len(r.Groups) > 0 {
		gw := table.NewWriter()
		gw.SetOutputMirror(w)
		gw.SetStyle(table.StyleLight)
		gw.SetTitle("By " + r.GroupBy)
		gw.AppendHeader(table.Row{r.GroupBy, "Rows", "Column", "Mean", "Min", "Max"})
		for _, g := range r.Groups {
			for i, k := range metricNames(g) {
				m := g.Metrics[k]
				key, size := "", ""
				if i == 0 {
					key, size = g.Key, strconv.Itoa(g.Size)
				}
				gw.AppendRow(table.Row{key, size, k, fmtStat(m.Mean), fmtStat(m.Min), fmtStat(m.Max)})
			}
			gw.AppendSeparator()
		}
		gw.Render()
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warn)
	}
}
