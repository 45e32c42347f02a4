package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"ksscraper/pkg/config"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/scraper"
	"ksscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	rawDir     string
	exportDir  string
	baseURL    string
	rps        float64
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ksscraper",
	Short: "Discover and export AI-related Kickstarter projects",
	Long: `ksscraper searches Kickstarter for AI-related projects, enriches them with
campaign details and exports the results as CSV and SQLite.

Every stage is resumable: discovered projects and detail records are kept in
append-only logs and finished search keys in a checkpoint, so an interrupted
run picks up where it stopped.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
		ui.SetNoColor(noColor)

		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted, progress has been saved")
			os.Exit(130)
		}
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is .ksscraper.yaml or $HOME/.config/ksscraper/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	pf.StringVar(&rawDir, "raw-dir", "", "directory of the raw record logs")
	pf.StringVar(&exportDir, "export-dir", "", "directory of the exported files")
	pf.StringVar(&baseURL, "base-url", "", "Kickstarter site root")
	pf.Float64Var(&rps, "rps", 0, "maximum requests per second")

	rootCmd.SetVersionTemplate(`ksscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags into the map consumed by
// config.MergeCommandLineFlags
func globalFlags() map[string]interface{} {
	return map[string]interface{}{
		"log-level":  logLevel,
		"raw-dir":    rawDir,
		"export-dir": exportDir,
		"base-url":   baseURL,
		"rps":        rps,
	}
}

// loadConfig loads the configuration with the given flag overrides and
// initializes the global logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	merged := globalFlags()
	for k, v := range flags {
		merged[k] = v
	}

	cfg, err := config.Load(configFile, merged)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"version":     version,
		"detail_mode": cfg.Detail.Mode,
	}).Debug("ksscraper starting")
	return cfg, nil
}

// withScraper loads the configuration, builds a Scraper and runs fn under a
// context cancelled by SIGINT or SIGTERM
func withScraper(flags map[string]interface{}, fn func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg, logger.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.GetLogger().WithError(err).Warn("Failed to close scraper")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, s, cfg)
}
