// Package ui provides terminal output for the ksscraper CLI: colored
// status lines that honor quiet and no-color modes, and go-pretty tables
// for run results and stats.
package ui
