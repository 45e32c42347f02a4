// Package scraper orchestrates a Kickstarter scrape.
//
// A Scraper owns the discovery and detail stores, the checkpoint and the
// Kickstarter client, and exposes one entry point per stage:
//
//   - RunDiscovery walks every configured search key that the checkpoint
//     does not list as done, storing each project record once
//   - RunDetails enriches stored records that have no detail record yet,
//     through the GraphQL endpoint with a rotating session or through the
//     project JSON endpoint
//   - Export merges both stores, scores relevance and writes the CSV and
//     SQLite files
//   - Stats summarizes the merged records
//
// Run chains the three stages. Every stage is resumable: the stores and the
// checkpoint are durable, so an interrupted run continues where it stopped.
//
// Usage:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := scraper.New(cfg, logger.GetLogger())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	if err := s.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Storage:
//
// Records live in two append-only JSON Lines logs under the raw directory,
// projects.jsonl and project_details.jsonl, each held under a file lock
// while the Scraper has it open.
package scraper
