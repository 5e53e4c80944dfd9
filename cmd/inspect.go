package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clams-cli/internal/analysis"
)

var (
	insOutputPath string
	insMarkdown   bool
	insGroupBy    string
	insNoHeader   bool
	insSheet      string
	insSampleRows int
	insMaxRows    int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the columns of a stage output (.csv or .xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := analysis.DefaultOptions()
		if insSampleRows > 0 {
			opt.SampleRows = insSampleRows
		}
		if insMaxRows > 0 {
			opt.MaxRows = insMaxRows
		}
		opt.GroupBy = insGroupBy
		opt.NoHeader = insNoHeader
		opt.Sheet = insSheet

		rep, err := analysis.AnalyzeFile(args[0], opt)
		if err != nil {
			return err
		}
		if insOutputPath != "" {
			if err := os.WriteFile(insOutputPath, []byte(rep.Markdown()), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", insOutputPath)
			return nil
		}
		if insMarkdown {
			fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
			return nil
		}
		rep.Render(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "write the plain-text summary to a file")
	inspectCmd.Flags().BoolVar(&insMarkdown, "markdown", false, "print the plain-text summary instead of tables")
	inspectCmd.Flags().StringVar(&insGroupBy, "group-by", "", "summarize numeric columns per value of this column (e.g. \"LED LIGHTNESS\")")
	inspectCmd.Flags().BoolVar(&insNoHeader, "no-header", false, "first row is data (recombined metric tables)")
	inspectCmd.Flags().StringVar(&insSheet, "sheet", "", "workbook sheet name (default first sheet)")
	inspectCmd.Flags().IntVar(&insSampleRows, "samples", 0, "sample rows kept in the report")
	inspectCmd.Flags().IntVar(&insMaxRows, "max-rows", 0, "maximum rows analyzed (default 100000)")
}
