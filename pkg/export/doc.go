// Package export writes parsed projects as flat tables.
//
// Nested fields are flattened into a fixed column set: location and
// creator become prefixed columns and rewards are summarized as a count,
// the pledge range and total backers. CSV output leaves the long text
// columns (description, risks) out unless asked; the SQLite table always
// carries every column.
package export
