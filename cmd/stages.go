package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clams-cli/internal/clams"
	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <dir>",
	Short: "Strip the instrument preamble from every export in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, args[0], func(ctx context.Context, p clams.Params, rep progress.Reporter) (*clams.StageResult, error) {
			return clams.CleanDirectory(ctx, p.Dir, clams.CleanOptions{PreambleRows: p.PreambleRows}, rep)
		})
	},
}

var trimCmd = &cobra.Command{
	Use:   "trim <dir>",
	Short: "Align cleaned tables to the first light-cycle change after acclimation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, args[0], func(ctx context.Context, p clams.Params, rep progress.Reporter) (*clams.StageResult, error) {
			return clams.TrimDirectory(ctx, p.Dir, clams.TrimOptions{TrimHours: p.TrimHours, KeepHours: p.KeepHours}, rep)
		})
	},
}

var binCmd = &cobra.Command{
	Use:   "bin <dir>",
	Short: "Aggregate trimmed tables into fixed-duration bins per light phase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, args[0], func(ctx context.Context, p clams.Params, rep progress.Reporter) (*clams.StageResult, error) {
			return clams.BinDirectory(ctx, p.Dir, clams.BinOptions{BinHours: p.BinHours}, rep)
		})
	},
}

var recombineCmd = &cobra.Command{
	Use:   "recombine <dir>",
	Short: "Pivot binned tables into one cross-subject table per metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, args[0], func(ctx context.Context, p clams.Params, rep progress.Reporter) (*clams.StageResult, error) {
			return clams.Recombine(ctx, p.Dir, clams.RecombineOptions{Labels: p.Labels, RowPolicy: p.RowPolicy, Workbook: p.Workbook}, rep)
		})
	},
}

type stageFunc func(ctx context.Context, p clams.Params, rep progress.Reporter) (*clams.StageResult, error)

// runStage validates parameters, holds the directory lock and runs one stage.
func runStage(cmd *cobra.Command, dir string, fn stageFunc) error {
	p, err := runParams(cmd, dir)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	lock, err := utils.LockDir(p.Dir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, cancel := signalContext(cmd)
	defer cancel()
	res, err := fn(ctx, p, newReporter(cmd))
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d files in %s\n", res.Stage, len(res.Files), res.Dir)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(cleanCmd, trimCmd, binCmd, recombineCmd)
	addCleanFlags(cleanCmd)
	addTrimFlags(trimCmd)
	addBinFlags(binCmd)
	addRecombineFlags(recombineCmd)
}
