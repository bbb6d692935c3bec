// Package search implements the knowledge base's in-memory inverted index and
// the query pipeline built on top of it: matching, filtering, sorting,
// pagination, highlighting, facets and query suggestions.
package search

import (
	"strings"
	"unicode/utf8"

	"plateau/models"
)

// MinTokenLength is the stopword-lite threshold: tokens with this many runes
// or fewer are dropped at both index and query time. Queries made only of
// short words ("a b c") therefore tokenize to nothing and match nothing.
const MinTokenLength = 2

// Tokenize lowercases text, splits it on whitespace and drops short tokens.
// Punctuation is kept attached to the word it touches.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// UniqueTokens is Tokenize with duplicates removed, first occurrence wins.
func UniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// IndexText is the text an article contributes to the index.
func IndexText(a *models.KnowledgeArticle) string {
	parts := []string{a.Title, a.Summary, a.Content}
	parts = append(parts, a.Tags...)
	parts = append(parts, string(a.Category), a.Subcategory)
	return strings.Join(parts, " ")
}
