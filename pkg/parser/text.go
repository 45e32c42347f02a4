package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	aiWordRegex     = regexp.MustCompile(`\bAI\b`)
	aiPhraseRegex   = regexp.MustCompile(`(?i)\bartificial intelligence\b`)
	tagOpenReplacer = strings.NewReplacer("<", " <")
)

// CleanHTML reduces campaign HTML to plain text: tags are dropped,
// entities decoded and whitespace collapsed to single spaces
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	// every tag becomes a word boundary
	text := stripPolicy.Sanitize(tagOpenReplacer.Replace(s))
	return strings.Join(strings.Fields(html.UnescapeString(text)), " ")
}

// CountAIMentions counts case-sensitive "AI" words plus any-case
// "artificial intelligence" phrases
func CountAIMentions(text string) int {
	if text == "" {
		return 0
	}
	return len(aiWordRegex.FindAllStringIndex(text, -1)) + len(aiPhraseRegex.FindAllStringIndex(text, -1))
}

// WordCount counts whitespace separated words
func WordCount(text string) int {
	return len(strings.Fields(text))
}
