// Package checkpoint records which discovery search keys have been fully
// paginated, so an interrupted run can skip them.
//
// The file is a small JSON document:
//
//	{"completed_terms": ["AI|live", "GPT|successful|16"], "last_pages": {"AI|failed": 7}}
//
// last_pages is informational only; an incomplete key is paginated again
// from page 1 and the store drops the duplicates. Every change rewrites the
// whole file through a synced temporary file and a rename.
package checkpoint
