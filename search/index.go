package search

import (
	"sort"
	"sync"
	"time"

	"plateau/models"
)

// Index is an inverted index from token to the set of published article IDs
// containing it. It keeps a forward index (article ID to tokens) so a single
// article can be removed or re-added without touching the rest.
//
// Index is safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	postings    map[string]map[string]struct{}
	docTokens   map[string][]string
	lastRebuild time.Time
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		postings:  make(map[string]map[string]struct{}),
		docTokens: make(map[string][]string),
	}
}

// Add indexes a published article, replacing any postings it already had.
// Unpublished articles are removed instead; the return value reports whether
// the article is in the index afterwards.
func (ix *Index) Add(a *models.KnowledgeArticle) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(a.ID)
	if !a.IsPublished() {
		return false
	}
	ix.addLocked(a)
	return true
}

// Remove drops every posting for the article.
func (ix *Index) Remove(articleID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(articleID)
}

// Rebuild discards the index and regenerates it from articles. Only published
// articles are indexed.
func (ix *Index) Rebuild(articles []*models.KnowledgeArticle) {
	postings := make(map[string]map[string]struct{})
	docTokens := make(map[string][]string)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.postings = postings
	ix.docTokens = docTokens
	for _, a := range articles {
		if a.IsPublished() {
			ix.addLocked(a)
		}
	}
	ix.lastRebuild = time.Now()
}

func (ix *Index) addLocked(a *models.KnowledgeArticle) {
	tokens := UniqueTokens(IndexText(a))
	for _, tok := range tokens {
		set, ok := ix.postings[tok]
		if !ok {
			set = make(map[string]struct{})
			ix.postings[tok] = set
		}
		set[a.ID] = struct{}{}
	}
	ix.docTokens[a.ID] = tokens
}

func (ix *Index) removeLocked(articleID string) {
	tokens, ok := ix.docTokens[articleID]
	if !ok {
		return
	}
	for _, tok := range tokens {
		set := ix.postings[tok]
		delete(set, articleID)
		if len(set) == 0 {
			delete(ix.postings, tok)
		}
	}
	delete(ix.docTokens, articleID)
}

// Postings returns the posting list for token, sorted by article ID.
func (ix *Index) Postings(token string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	set := ix.postings[token]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Score counts, per article, how many of the given tokens it contains.
// Articles matching none of them are absent from the result.
func (ix *Index) Score(tokens []string) map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]int)
	for _, tok := range tokens {
		for id := range ix.postings[tok] {
			scores[id]++
		}
	}
	return scores
}

// Contains reports whether the article is currently indexed.
func (ix *Index) Contains(articleID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.docTokens[articleID]
	return ok
}

// DocumentFrequency is the size of the token's posting list.
func (ix *Index) DocumentFrequency(token string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings[token])
}

// Vocabulary returns every indexed token with its document frequency.
func (ix *Index) Vocabulary() map[string]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	vocab := make(map[string]int, len(ix.postings))
	for tok, set := range ix.postings {
		vocab[tok] = len(set)
	}
	return vocab
}

// Stats reports the size of the index.
func (ix *Index) Stats() (tokens, documents int, lastRebuild time.Time) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings), len(ix.docTokens), ix.lastRebuild
}
