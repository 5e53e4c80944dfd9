package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	cfgpkg "github.com/KaramelBytes/clams-cli/internal/config"
	"github.com/KaramelBytes/clams-cli/internal/progress"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	quiet     bool
	colorMode string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "clams",
	Short: "CLAMS CLI: clean, trim, bin and recombine metabolic-cage exports",
	Long: `clams turns a directory of raw CLAMS instrument exports into analysis-ready tables.
It strips the instrument preamble, aligns every subject to the first light-cycle change
after an acclimation window, bins readings per light phase and pivots the binned tables
into one cross-subject table per metric.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.clams/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress lines")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "", "colorize output: auto|always|never (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "structured log format: text|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		d := cfgpkg.Defaults()
		c = &d
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("color") && colorMode != "" {
		cfg.Color = colorMode
	}
	if f.Changed("log-format") && logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

// settings returns the loaded configuration, or the defaults when a command
// runs without cobra initialization (tests).
func settings() *cfgpkg.Global {
	if cfg == nil {
		d := cfgpkg.Defaults()
		return &d
	}
	return cfg
}

// newReporter builds the progress sink of a command: console lines on the
// command's stdout unless --quiet, plus structured records on stderr when
// --debug, --quiet or the json log format asks for them.
func newReporter(cmd *cobra.Command) progress.Reporter {
	s := settings()
	var sinks []progress.Reporter
	if !quiet {
		sinks = append(sinks, progress.NewConsole(cmd.OutOrStdout(), s.Color))
	}
	if debug || quiet || s.LogFormat == "json" {
		sinks = append(sinks, progress.NewLogger(progress.NewSlog(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)))
	}
	return progress.Multi(sinks...)
}

// commandLogger is used for diagnostics outside the progress stream.
func commandLogger(w io.Writer) *slog.Logger {
	s := settings()
	return progress.NewSlog(w, s.LogLevel, s.LogFormat)
}

// signalContext is canceled on Ctrl-C so a stage stops between files.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}
