package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clams-cli/internal/reformat"
)

var reformatCmd = &cobra.Command{
	Use:   "reformat <dir>",
	Short: "Pivot hourly long-form tables into one row per subject and day",
	Long: `Pivot every .csv in a directory whose columns include ID, GROUP LABEL, DAY and
24 HOUR. The last column is spread into one column per hour; results are written to
<dir>/Reformatted_CSVs/reformatted_<name>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()
		written, err := reformat.Directory(ctx, args[0], newReporter(cmd))
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reformatted %d files\n", len(written))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reformatCmd)
}
