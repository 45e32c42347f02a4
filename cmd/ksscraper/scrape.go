package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"ksscraper/pkg/config"
	"ksscraper/pkg/scraper"
	"ksscraper/pkg/ui"
)

var (
	// Search and detail flags
	terms        []string
	states       []string
	maxPages     int
	noDetails    bool
	noBrowser    bool
	detailMode   string
	onlyRelevant bool
	includeText  bool
	minScore     float64
	rescrape     bool
)

// scrapeCmd runs the whole pipeline
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover projects, fetch their details and export them",
	Long: `Run discovery for every configured search key, enrich the stored projects
with their campaign details and export the results.

Search keys already listed in the checkpoint are skipped, and projects that
already have a detail record are not fetched again.`,
	Example: `  # Full run with the configured terms
  ksscraper scrape

  # Only two terms, live projects, no detail pass
  ksscraper scrape --terms "AI,GPT" --states live --no-details

  # Use the project JSON endpoint for details
  ksscraper scrape --detail-mode json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(pipelineFlags(), func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error {
			printSearchSpace(cfg)
			if err := discover(ctx, s); err != nil {
				return err
			}
			if cfg.Scraping.FetchProjectDetails {
				if err := details(ctx, s, false); err != nil {
					return err
				}
			}
			return exportAll(ctx, s)
		})
	},
}

// discoverCmd runs discovery only
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search Kickstarter and store the project records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(pipelineFlags(), func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error {
			printSearchSpace(cfg)
			return discover(ctx, s)
		})
	},
}

// detailsCmd runs the detail pass only
var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Fetch campaign details for stored projects",
	Long: `Fetch the campaign details of every stored project that has no detail record.

With --rescrape the detail log is moved to project_details_old.jsonl first and
every project is fetched again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(pipelineFlags(), func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error {
			return details(ctx, s, rescrape)
		})
	},
}

// exportCmd writes the export files
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored projects to CSV and SQLite",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(pipelineFlags(), func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error {
			return exportAll(ctx, s)
		})
	},
}

// statsCmd prints a summary of the stored projects
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScraper(pipelineFlags(), func(ctx context.Context, s *scraper.Scraper, cfg *config.Config) error {
			summary, err := s.Stats()
			if err != nil {
				return err
			}
			ui.RenderSummary(cmd.OutOrStdout(), summary)
			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{scrapeCmd, discoverCmd, detailsCmd, exportCmd, statsCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum relevance score of exported projects (0-1)")
	}

	for _, cmd := range []*cobra.Command{scrapeCmd, discoverCmd} {
		cmd.Flags().StringSliceVar(&terms, "terms", nil, "search terms, comma separated")
		cmd.Flags().StringSliceVar(&states, "states", nil, "project states, comma separated (live, successful, failed, canceled, all)")
		cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page limit per search key (0 for no limit)")
	}

	for _, cmd := range []*cobra.Command{scrapeCmd, detailsCmd} {
		cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "disable the headless browser fallback")
		cmd.Flags().StringVar(&detailMode, "detail-mode", "", "detail source: graphql or json")
		cmd.Flags().BoolVar(&onlyRelevant, "only-relevant", false, "fetch details only for projects that look AI related")
	}

	for _, cmd := range []*cobra.Command{scrapeCmd, exportCmd} {
		cmd.Flags().BoolVar(&includeText, "include-text", false, "include campaign text columns in the CSV files")
	}

	scrapeCmd.Flags().BoolVar(&noDetails, "no-details", false, "skip the detail pass")
	detailsCmd.Flags().BoolVar(&rescrape, "rescrape", false, "back up the detail log and fetch every project again")
}

func pipelineFlags() map[string]interface{} {
	return map[string]interface{}{
		"terms":         terms,
		"states":        states,
		"max-pages":     maxPages,
		"no-details":    noDetails,
		"no-browser":    noBrowser,
		"detail-mode":   detailMode,
		"only-relevant": onlyRelevant,
		"include-text":  includeText,
		"min-score":     minScore,
	}
}

func printSearchSpace(cfg *config.Config) {
	ui.PrintInfo("Terms", strings.Join(cfg.Search.Terms, ", "))
	ui.PrintInfo("States", strings.Join(cfg.Search.States, ", "))
	ui.PrintInfo("Search keys", fmt.Sprint(len(scraper.SearchKeys(cfg.Search))))
}

func discover(ctx context.Context, s *scraper.Scraper) error {
	ui.PrintHighlight("[DISCOVERY]")
	res, err := s.RunDiscovery(ctx)
	if !ui.IsQuietMode() {
		ui.RenderCounts(ui.Output(), "Discovery", [][2]interface{}{
			{"Search keys", res.Keys},
			{"Already done", res.Skipped},
			{"Completed", res.Completed},
			{"Abandoned", res.Abandoned},
			{"New projects", res.Added},
		})
	}
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if res.Abandoned > 0 {
		ui.PrintWarning("Some search keys failed and will be retried on the next run", res.Abandoned)
	}
	return nil
}

func details(ctx context.Context, s *scraper.Scraper, rescrape bool) error {
	ui.PrintHighlight("[DETAILS]")
	res, err := s.RunDetails(ctx, rescrape)
	if !ui.IsQuietMode() {
		ui.RenderCounts(ui.Output(), "Details", [][2]interface{}{
			{"Pending", res.Pending},
			{"Enriched", res.Enriched},
			{"Failed", res.Failed},
		})
	}
	if err != nil {
		return fmt.Errorf("details: %w", err)
	}
	return nil
}

func exportAll(ctx context.Context, s *scraper.Scraper) error {
	ui.PrintHighlight("[EXPORT]")
	res, err := s.Export(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	ui.PrintInfo("Projects", fmt.Sprint(res.Total))
	ui.PrintInfo("AI relevant", fmt.Sprint(res.Relevant))
	for _, f := range res.Files {
		ui.PrintSuccess("  " + f)
	}
	return nil
}
