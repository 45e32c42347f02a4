package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"ksscraper/pkg/config"
	"ksscraper/pkg/scraper"
	"ksscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage ksscraper configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (KSSCRAPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to .ksscraper.yaml, or to the path given
with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".ksscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output(), "\nNext steps:")
	fmt.Fprintln(ui.Output(), "1. Edit the search terms and output directories")
	fmt.Fprintln(ui.Output(), "2. Run 'ksscraper config validate' to check the configuration")
	fmt.Fprintln(ui.Output(), "3. Start with 'ksscraper scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output(), "\nConfiguration summary:")
	fmt.Fprintf(ui.Output(), "  Search keys: %d\n", len(scraper.SearchKeys(cfg.Search)))
	fmt.Fprintf(ui.Output(), "  Rate limit: %.2f requests/second\n", cfg.Scraping.RateLimitRPS)
	fmt.Fprintf(ui.Output(), "  Detail mode: %s\n", cfg.Detail.Mode)
	fmt.Fprintf(ui.Output(), "  Raw directory: %s\n", cfg.Output.RawDir)
	fmt.Fprintf(ui.Output(), "  Export directory: %s\n", cfg.Output.ExportDir)
	fmt.Fprintf(ui.Output(), "  Min relevance score: %.2f\n", cfg.Filtering.MinRelevanceScore)
	return nil
}
