// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lecturetube/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig    string
	flagJSON      bool
	flagDebug     bool
	flagTimeout   time.Duration
	flagGetURL    bool
	flagBest      bool
	flagPick      bool
	flagNoHistory bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// logger is configured in loadConfig; commands log through it.
var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "lecturetube [url...]",
	Short: "Resolve TU Wien LectureTube recordings to playable streams",
	Long: `lecturetube resolves LectureTube watch URLs into their downloadable
stream variants and recording metadata (title, lecturer, series, date).`,
	Example: `  lecturetube https://oc-presentation.ltcc.tuwien.ac.at/paella/ui/watch.html?id=085ec06c-a5fa-4ea9-9bf4-67dd749a6675
  lecturetube --best <url> | xargs mpv
  lecturetube discover https://example.org/course-page`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              extractRun,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/lecturetube/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output metadata as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "HTTP timeout (e.g. 10s)")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record resolved recordings")
	rootCmd.PersistentFlags().BoolVarP(&flagGetURL, "get-url", "g", false, "Print every stream URL")
	rootCmd.PersistentFlags().BoolVar(&flagBest, "best", false, "Print only the best stream URL")
	rootCmd.PersistentFlags().BoolVar(&flagPick, "pick", false, "Choose a stream interactively and print its URL")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagTimeout != 0 {
		cfg.Timeout = config.Duration{Duration: flagTimeout}
	}
	if flagJSON {
		cfg.Output = "json"
	}
	if flagNoHistory {
		cfg.History = false
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if n := countTrue(flagGetURL, flagBest, flagPick); n > 1 {
		return fmt.Errorf("--get-url, --best and --pick cannot be combined")
	}

	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !cfg.Debug})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	return nil
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lecturetube %s\n", Version)
	},
}
