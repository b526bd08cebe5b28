// Package keywords ranks the salient terms of a free-text survey request.
// The ranked list is passed to the requirement extractor as a hint; an empty
// list is a valid result.
package keywords

import (
	"bufio"
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultCount is the number of keywords returned when none is configured.
const DefaultCount = 10

//go:embed stopwords.txt
var stopwordFile string

var (
	nonWordPattern    = regexp.MustCompile(`[^가-힣A-Za-z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Korean particles and endings stripped from token tails, longest first.
var particles = []string{
	"으로서", "으로써", "에서는", "에게서", "이라는", "라는",
	"으로", "에서", "에게", "까지", "부터", "처럼", "보다", "이나", "에는", "와의", "과의", "하는", "하고", "하여",
	"을", "를", "이", "가", "은", "는", "의", "에", "와", "과", "로",
}

// Extractor ranks keywords by frequency, breaking ties by first occurrence.
type Extractor struct {
	count     int
	stopwords map[string]bool
}

// NewExtractor creates an Extractor returning at most count keywords.
// A non-positive count uses DefaultCount.
func NewExtractor(count int) *Extractor {
	if count <= 0 {
		count = DefaultCount
	}
	return &Extractor{
		count:     count,
		stopwords: loadStopwords(stopwordFile),
	}
}

// Extract returns the top keywords of text.
func (e *Extractor) Extract(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return []string{}
	}

	type term struct {
		word  string
		count int
		first int
	}
	terms := make(map[string]*term)
	for i, tok := range tokens {
		if e.stopwords[tok] {
			continue
		}
		if t, ok := terms[tok]; ok {
			t.count++
			continue
		}
		terms[tok] = &term{word: tok, count: 1, first: i}
	}

	ranked := make([]*term, 0, len(terms))
	for _, t := range terms {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > e.count {
		ranked = ranked[:e.count]
	}
	out := make([]string, len(ranked))
	for i, t := range ranked {
		out[i] = t.word
	}
	return out
}

// Tokenize cleans text to Hangul, Latin and digit tokens, strips trailing
// particles and drops single-rune tokens. Latin tokens are lower-cased.
func Tokenize(text string) []string {
	cleaned := nonWordPattern.ReplaceAllString(text, " ")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return nil
	}

	fields := strings.Split(cleaned, " ")
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := stripParticle(strings.ToLower(f))
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func stripParticle(tok string) string {
	for _, p := range particles {
		if !strings.HasSuffix(tok, p) {
			continue
		}
		stem := strings.TrimSuffix(tok, p)
		// Keep the token whole when stripping would leave a single syllable.
		if utf8.RuneCountInString(stem) >= 2 {
			return stem
		}
		return tok
	}
	return tok
}

func loadStopwords(data string) map[string]bool {
	words := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = true
	}
	return words
}
