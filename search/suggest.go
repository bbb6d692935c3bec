package search

import (
	"sort"
	"strings"
)

const (
	// MaxSuggestions caps the alternate queries returned with a result.
	MaxSuggestions = 5
	// MaxSuggestDistance is the largest edit distance considered a typo.
	MaxSuggestDistance = 2

	suggestPrefixRunes = 3
)

type suggestion struct {
	query    string
	distance int
	docFreq  int
}

// Suggest proposes alternate queries by swapping one query token for a nearby
// indexed token: one within MaxSuggestDistance edits, or one sharing its first
// three runes. Closer and more common tokens rank first.
func Suggest(ix *Index, tokens []string, max int) []string {
	if len(tokens) == 0 || max <= 0 {
		return []string{}
	}

	inQuery := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		inQuery[t] = struct{}{}
	}

	best := make(map[string]suggestion)
	for tok, df := range ix.Vocabulary() {
		if _, ok := inQuery[tok]; ok {
			continue
		}
		for i, qt := range tokens {
			d := levenshtein(qt, tok)
			if d > MaxSuggestDistance && !sharePrefix(qt, tok, suggestPrefixRunes) {
				continue
			}
			alt := make([]string, len(tokens))
			copy(alt, tokens)
			alt[i] = tok
			q := strings.Join(alt, " ")
			if prev, ok := best[q]; !ok || d < prev.distance {
				best[q] = suggestion{query: q, distance: d, docFreq: df}
			}
		}
	}

	ranked := make([]suggestion, 0, len(best))
	for _, s := range best {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.docFreq != b.docFreq {
			return a.docFreq > b.docFreq
		}
		return a.query < b.query
	})

	out := make([]string, 0, max)
	for _, s := range ranked {
		if len(out) == max {
			break
		}
		out = append(out, s.query)
	}
	return out
}

func sharePrefix(a, b string, n int) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < n || len(rb) < n {
		return false
	}
	return string(ra[:n]) == string(rb[:n])
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
