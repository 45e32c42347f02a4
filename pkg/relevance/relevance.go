package relevance

import (
	"regexp"
	"strings"
)

// bodyLimit is how much of the body text is scanned
const bodyLimit = 2000

// Field weights: a keyword found in the title counts double
const (
	TitleWeight = 2.0
	BlurbWeight = 1.5
	BodyWeight  = 1.0
)

type keyword struct {
	pattern *regexp.Regexp
	score   float64
}

func kw(pattern string, score float64) keyword {
	return keyword{pattern: regexp.MustCompile(pattern), score: score}
}

// keywords are checked in order; each contributes once, weighted by the
// first field it appears in
var keywords = []keyword{
	kw(`\bartificial intelligence\b`, 0.4),
	kw(`\bmachine learning\b`, 0.4),
	kw(`\bdeep learning\b`, 0.4),
	kw(`\bneural network`, 0.4),
	kw(`\blarge language model`, 0.4),
	kw(`\bllm\b`, 0.4),
	kw(`\bgenerative ai\b`, 0.4),
	kw(`\bgpt[\s\-]`, 0.35),
	kw(`\bchatgpt\b`, 0.35),
	kw(`\btransformer model`, 0.35),

	kw(`\bcomputer vision\b`, 0.2),
	kw(`\bnatural language processing\b`, 0.2),
	kw(`\bnlp\b`, 0.2),
	kw(`\breinforcement learning\b`, 0.2),
	kw(`\bconvolutional\b`, 0.2),
	kw(`\brecurrent\b`, 0.15),
	kw(`\bgan\b`, 0.15),
	kw(`\bdiffusion model`, 0.2),
	kw(`\btext.to.image\b`, 0.2),
	kw(`\bimage recognition\b`, 0.2),
	kw(`\bspeech recognition\b`, 0.15),
	kw(`\bsentiment analysis\b`, 0.15),

	kw(`\bai[\s\-]powered\b`, 0.15),
	kw(`\bai[\s\-]driven\b`, 0.15),
	kw(`\bai\b`, 0.1),
	kw(`\bautonomous\b`, 0.08),
	kw(`\bintelligent\b`, 0.05),
	kw(`\bpredictive\b`, 0.08),
	kw(`\brobot`, 0.08),
	kw(`\bautomation\b`, 0.05),
	kw(`\bdata science\b`, 0.1),
	kw(`\balgorithm\b`, 0.05),
}

// penalties are common false positives, applied once each over the
// combined text
var penalties = []keyword{
	kw(`\bai\b.*\ballen iverson\b`, -0.3),
	kw(`\bai\b.*\baisle\b`, -0.2),
	kw(`\bboard game\b`, -0.1),
	kw(`\bcard game\b`, -0.1),
	kw(`\btabletop\b`, -0.1),
}

// Score rates how strongly a project is about AI, in [0, 1]. Matching is
// case insensitive and only the first 2000 characters of body are read.
func Score(title, blurb, body string) float64 {
	fields := []struct {
		text   string
		weight float64
	}{
		{strings.ToLower(title), TitleWeight},
		{strings.ToLower(blurb), BlurbWeight},
		{strings.ToLower(truncate(body, bodyLimit)), BodyWeight},
	}

	score := 0.0
	matched := make([]bool, len(keywords))
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		for i, k := range keywords {
			if !matched[i] && k.pattern.MatchString(f.text) {
				score += k.score * f.weight
				matched[i] = true
			}
		}
	}

	full := strings.ToLower(title + " " + blurb + " " + body)
	for _, p := range penalties {
		if p.pattern.MatchString(full) {
			score += p.score
		}
	}

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
