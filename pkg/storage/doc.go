// Package storage persists scraped records.
//
// Store is an append-only JSON Lines log with in-memory id deduplication:
//   - every line is one JSON object carrying an integer "id"
//   - an id is appended at most once, even under concurrent Add calls
//   - opening a store replays the log, skipping lines that do not parse
//   - a log that ends in a partial line gets a newline before the next
//     append, so new records never join corrupt bytes
//   - an advisory lock file (<log>.lock) keeps a second writer out
//
// WriteFileAtomic is used for whole-file outputs such as exports.
//
// Usage:
//
//	store, err := storage.Open("data/raw/projects.jsonl", log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	added, err := store.AddMany(page.Projects)
package storage
