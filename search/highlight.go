package search

import (
	"regexp"
	"sort"
	"strings"

	"plateau/models"
)

const (
	HighlightOpen  = "<mark>"
	HighlightClose = "</mark>"

	// MaxHighlights caps the sentences returned per article.
	MaxHighlights = 3
	// HighlightContentWindow is how many runes of the body are scanned.
	HighlightContentWindow = 500
)

// Highlighter extracts and marks the sentences of an article that contain
// any query token. Matching is a case-insensitive substring test, not word
// bounded: the token "cat" marks the start of "category".
type Highlighter struct {
	tokens []string
	re     *regexp.Regexp
}

// NewHighlighter prepares a highlighter for one query's tokens.
func NewHighlighter(tokens []string) *Highlighter {
	h := &Highlighter{}
	for _, t := range tokens {
		if t != "" {
			h.tokens = append(h.tokens, strings.ToLower(t))
		}
	}
	if len(h.tokens) == 0 {
		return h
	}

	// Longest first so that overlapping tokens prefer the longer match. One
	// alternation means a single pass, so markers are never re-matched.
	alts := append([]string(nil), h.tokens...)
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, t := range alts {
		alts[i] = regexp.QuoteMeta(t)
	}
	h.re = regexp.MustCompile("(?i)(?:" + strings.Join(alts, "|") + ")")
	return h
}

// Highlight returns up to MaxHighlights marked sentences, title first.
func (h *Highlighter) Highlight(a *models.KnowledgeArticle) []string {
	highlights := []string{}
	if h.re == nil {
		return highlights
	}

	candidates := append(splitSentences(a.Title), splitSentences(truncateRunes(a.Content, HighlightContentWindow))...)
	for _, sentence := range candidates {
		if len(highlights) == MaxHighlights {
			break
		}
		if h.matches(sentence) {
			highlights = append(highlights, h.Mark(sentence))
		}
	}
	return highlights
}

// Mark wraps every token occurrence in s.
func (h *Highlighter) Mark(s string) string {
	if h.re == nil {
		return s
	}
	return h.re.ReplaceAllString(s, HighlightOpen+"$0"+HighlightClose)
}

func (h *Highlighter) matches(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, t := range h.tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
