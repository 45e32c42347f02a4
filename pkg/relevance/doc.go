// Package relevance scores projects for AI topicality with a weighted
// keyword table and a few false-positive penalties.
package relevance
