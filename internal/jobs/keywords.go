package jobs

import (
	"strings"
	"unicode"
)

// maxSearchKeywords bounds the index size of the denormalized keyword
// list, not correctness.
const maxSearchKeywords = 20

// buildSearchKeywords tokenizes the candidate's searchable text into a
// deduplicated, lower-cased keyword list. Tokens of one or two runes
// are noise and dropped.
func buildSearchKeywords(sources ...[]string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, maxSearchKeywords)

	for _, source := range sources {
		for _, text := range source {
			for _, token := range tokenize(text) {
				if seen[token] {
					continue
				}
				seen[token] = true
				keywords = append(keywords, token)
				if len(keywords) == maxSearchKeywords {
					return keywords
				}
			}
		}
	}
	return keywords
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
