package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clams-cli/internal/clams"
	"github.com/KaramelBytes/clams-cli/internal/experiment"
)

var (
	flagTrimHours    int
	flagKeepHours    int
	flagBinHours     int
	flagPreambleRows int
	flagRowPolicy    string
	flagLabels       bool
	flagWorkbook     bool
)

var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Clean, trim, bin and recombine every export in a directory",
	Long: `Run the whole pipeline over a directory of raw CLAMS exports.

Outputs are written next to the inputs:
  Cleaned_CLAMS_data/  Trimmed_CLAMS_data/  Binned_CLAMS_data/  Combined_CLAMS_data/

With --labels, group labels are read from <dir>/config/experiment_config.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := runParams(cmd, args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()
		sum, err := clams.Run(ctx, p, newReporter(cmd))
		if err != nil {
			return err
		}
		commandLogger(cmd.ErrOrStderr()).Debug("run complete", "run_id", sum.RunID, "duration", sum.Duration)
		if !quiet {
			printSummary(cmd, sum)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addTrimFlags(runCmd)
	addBinFlags(runCmd)
	addCleanFlags(runCmd)
	addRecombineFlags(runCmd)
}

func addCleanFlags(c *cobra.Command) {
	c.Flags().IntVar(&flagPreambleRows, "preamble-rows", 0, "metadata lines before the data header (default from config)")
}

func addTrimFlags(c *cobra.Command) {
	c.Flags().IntVar(&flagTrimHours, "trim-hours", 0, "acclimation hours discarded from the start (default from config)")
	c.Flags().IntVar(&flagKeepHours, "keep-hours", 0, "hours kept after the first light-cycle change (default from config)")
}

func addBinFlags(c *cobra.Command) {
	c.Flags().IntVar(&flagBinHours, "bin-hours", 0, "bin duration in hours; must divide 24 (default from config)")
}

func addRecombineFlags(c *cobra.Command) {
	c.Flags().BoolVar(&flagLabels, "labels", false, "join group labels from config/experiment_config.csv")
	c.Flags().StringVar(&flagRowPolicy, "row-policy", "", "subjects with different bin counts: pad|strict|truncate (default from config)")
	c.Flags().BoolVar(&flagWorkbook, "xlsx", false, "also write Combined_CLAMS_data/combined.xlsx")
}

// runParams merges flags over the loaded configuration.
func runParams(cmd *cobra.Command, dir string) (clams.Params, error) {
	s := settings()
	f := cmd.Flags()
	p := clams.Params{
		Dir:          filepath.Clean(dir),
		TrimHours:    s.TrimHours,
		KeepHours:    s.KeepHours,
		BinHours:     s.BinHours,
		PreambleRows: s.PreambleRows,
		RowPolicy:    clams.RowPolicy(s.RowPolicy),
		Workbook:     s.Workbook,
	}
	if f.Changed("trim-hours") {
		p.TrimHours = flagTrimHours
	}
	if f.Changed("keep-hours") {
		p.KeepHours = flagKeepHours
	}
	if f.Changed("bin-hours") {
		p.BinHours = flagBinHours
	}
	if f.Changed("preamble-rows") {
		p.PreambleRows = flagPreambleRows
	}
	if f.Changed("row-policy") {
		p.RowPolicy = clams.RowPolicy(flagRowPolicy)
	}
	if f.Changed("xlsx") {
		p.Workbook = flagWorkbook
	}
	if flagLabels {
		labels, err := experiment.Load(p.Dir)
		if err != nil {
			return p, err
		}
		p.Labels = labels
	}
	return p, nil
}

func printSummary(cmd *cobra.Command, sum *clams.RunSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Run " + sum.RunID)
	tw.AppendHeader(table.Row{"Stage", "Output", "Files", "Status"})
	for _, s := range sum.Stages {
		status := "done"
		if s.Skipped {
			status = "skipped"
		}
		tw.AppendRow(table.Row{s.Stage, filepath.Base(s.Dir), s.Files, status})
	}
	tw.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%.1fs", sum.Duration.Seconds())})
	fmt.Fprintln(cmd.OutOrStdout())
	tw.Render()
}
