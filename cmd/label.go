package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clams-cli/internal/experiment"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage subject group labels of an experiment directory",
}

var labelInitCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Create config/experiment_config.csv if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := experiment.Init(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Experiment config at %s (%d labels)\n", c.FilePath(), len(c.Labels))
		return nil
	},
}

var labelAddCmd = &cobra.Command{
	Use:   "add <dir> <id> <group>",
	Short: "Append a subject's group label",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := experiment.Init(args[0])
		if err != nil {
			return err
		}
		if prev, ok := c.Lookup(args[1]); ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: subject %s was labelled %q; the new label takes precedence\n", args[1], prev)
		}
		if err := c.Append(args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Labelled %s as %s\n", args[1], args[2])
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List group labels in file order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := experiment.LoadOptional(args[0])
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No experiment config at %s (run 'clams label init %s')\n", experiment.Path(args[0]), args[0])
			return nil
		}
		if len(c.Labels) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no labels)")
			return nil
		}
		for _, l := range c.Labels {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s: %s\n", l.ID, l.Group)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
	labelCmd.AddCommand(labelInitCmd, labelAddCmd, labelListCmd)
}
