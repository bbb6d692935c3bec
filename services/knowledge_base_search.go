package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"plateau/models"
	"plateau/search"
)

const (
	// MaxRelatedQueries caps the related queries returned with a result.
	MaxRelatedQueries = 3

	topQueryStats = 10
)

// Search runs a query against the published articles. Bad input never
// fails: an empty or all-short query simply matches nothing, and unknown
// filter values match nothing. Errors come only from ctx.
func (s *knowledgeBaseService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	req = s.normalizeRequest(req)
	tokens := search.UniqueTokens(req.Query)

	if cached, ok, err := s.cache.Get(ctx, s.generation.Load(), req); err != nil {
		s.log.Warn().Err(err).Msg("search cache read failed, computing result")
	} else if ok {
		s.queries.record(tokens, cached.Total)
		return cached, nil
	}

	m := s.match(tokens, req)

	result := &models.SearchResult{
		Articles:       m.items,
		Total:          len(m.hits),
		Page:           req.Pagination.Page,
		Limit:          req.Pagination.Limit,
		TotalPages:     (len(m.hits) + req.Pagination.Limit - 1) / req.Pagination.Limit,
		Suggestions:    m.suggestions,
		Facets:         m.facets,
		RelatedQueries: s.queries.related(tokens, m.facets.Tags, MaxRelatedQueries),
	}
	result.SearchTimeMs = float64(time.Since(start).Microseconds()) / 1000
	s.queries.record(tokens, result.Total)

	if err := s.cache.Set(ctx, m.generation, req, result); err != nil {
		s.log.Warn().Err(err).Msg("search cache write failed")
	}

	s.log.Debug().
		Str("query", req.Query).
		Int("tokens", len(tokens)).
		Int("total", result.Total).
		Float64("took_ms", result.SearchTimeMs).
		Msg("search executed")
	return result, nil
}

// matchResult is what a search reads from the working set under the lock.
type matchResult struct {
	generation  uint64
	hits        []search.Hit
	items       []models.SearchResultItem
	facets      models.SearchFacets
	suggestions []string
}

func (s *knowledgeBaseService) match(tokens []string, req models.SearchRequest) matchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := matchResult{generation: s.generation.Load()}
	m.hits = search.Match(s.index, tokens, func(id string) *models.KnowledgeArticle { return s.articles[id] })
	m.hits = search.Filter(m.hits, req.Filters)
	search.Sort(m.hits, req.Sort)

	highlighter := search.NewHighlighter(tokens)
	page := search.Paginate(m.hits, req.Pagination.Page, req.Pagination.Limit)
	m.items = make([]models.SearchResultItem, 0, len(page))
	for _, h := range page {
		m.items = append(m.items, toResultItem(h, highlighter))
	}
	m.facets = search.FacetsForHits(m.hits)
	m.suggestions = search.Suggest(s.index, tokens, search.MaxSuggestions)
	return m
}

// normalizeRequest clamps pagination and fills in sort defaults so equal
// searches produce equal cache keys.
func (s *knowledgeBaseService) normalizeRequest(req models.SearchRequest) models.SearchRequest {
	if req.Pagination.Page < 1 {
		req.Pagination.Page = 1
	}
	if req.Pagination.Limit < 1 {
		req.Pagination.Limit = s.opts.DefaultLimit
	}
	if req.Pagination.Limit > s.opts.MaxLimit {
		req.Pagination.Limit = s.opts.MaxLimit
	}
	if maxPage := math.MaxInt / req.Pagination.Limit; req.Pagination.Page > maxPage {
		req.Pagination.Page = maxPage
	}
	if req.Sort.Field == "" {
		req.Sort.Field = models.SortByRelevance
	}
	if req.Sort.Order == "" {
		req.Sort.Order = search.DefaultOrder(req.Sort.Field)
	}
	return req
}

func toResultItem(h search.Hit, highlighter *search.Highlighter) models.SearchResultItem {
	a := h.Article
	tags := append([]string{}, a.Tags...)
	var publishedAt *time.Time
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		publishedAt = &t
	}
	return models.SearchResultItem{
		ID:             a.ID,
		Title:          a.Title,
		Summary:        a.Summary,
		Category:       a.Category,
		Subcategory:    a.Subcategory,
		Tags:           tags,
		Difficulty:     a.Metadata.Difficulty,
		Visibility:     a.Visibility,
		Language:       a.Language,
		AverageRating:  a.Feedback.AverageRating,
		TotalViews:     a.Analytics.TotalViews,
		UpdatedAt:      a.UpdatedAt,
		PublishedAt:    publishedAt,
		RelevanceScore: h.Score,
		Highlights:     highlighter.Highlight(a),
	}
}

type queryCount struct {
	tokens      []string
	count       int
	zeroResults int
}

// queryLog remembers issued queries, keyed by their normalized token string.
type queryLog struct {
	mu          sync.Mutex
	entries     map[string]*queryCount
	total       int
	zeroResults int
}

func newQueryLog() *queryLog {
	return &queryLog{entries: make(map[string]*queryCount)}
}

func (l *queryLog) record(tokens []string, total int) {
	if len(tokens) == 0 {
		return
	}
	key := strings.Join(tokens, " ")

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &queryCount{tokens: append([]string(nil), tokens...)}
		l.entries[key] = e
	}
	e.count++
	l.total++
	if total == 0 {
		e.zeroResults++
		l.zeroResults++
	}
}

// related returns earlier queries that share a token with tokens and found
// something, most frequent first. When there are too few, it pads with the
// result set's top tags.
func (l *queryLog) related(tokens []string, topTags []models.FacetCount, max int) []string {
	out := []string{}
	if len(tokens) == 0 || max <= 0 {
		return out
	}
	self := strings.Join(tokens, " ")
	inQuery := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		inQuery[t] = struct{}{}
	}

	l.mu.Lock()
	candidates := make([]models.QueryStat, 0)
	for key, e := range l.entries {
		if key == self || e.count == e.zeroResults {
			continue
		}
		for _, t := range e.tokens {
			if _, ok := inQuery[t]; ok {
				candidates = append(candidates, models.QueryStat{Query: key, Count: e.count})
				break
			}
		}
	}
	l.mu.Unlock()

	sortQueryStats(candidates)
	seen := map[string]struct{}{self: {}}
	for _, c := range candidates {
		if len(out) == max {
			return out
		}
		out = append(out, c.Query)
		seen[c.Query] = struct{}{}
	}
	for _, tag := range topTags {
		if len(out) == max {
			break
		}
		if _, ok := inQuery[tag.Value]; ok {
			continue
		}
		if _, ok := seen[tag.Value]; ok {
			continue
		}
		out = append(out, tag.Value)
		seen[tag.Value] = struct{}{}
	}
	return out
}

func (l *queryLog) stats(limit int) models.SearchStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	top := make([]models.QueryStat, 0, len(l.entries))
	zero := make([]models.QueryStat, 0)
	for key, e := range l.entries {
		top = append(top, models.QueryStat{Query: key, Count: e.count})
		if e.zeroResults > 0 {
			zero = append(zero, models.QueryStat{Query: key, Count: e.zeroResults})
		}
	}
	sortQueryStats(top)
	sortQueryStats(zero)
	if len(top) > limit {
		top = top[:limit]
	}
	if len(zero) > limit {
		zero = zero[:limit]
	}
	return models.SearchStats{
		TotalSearches:        l.total,
		ZeroResultSearches:   l.zeroResults,
		TopQueries:           top,
		TopZeroResultQueries: zero,
	}
}

func sortQueryStats(stats []models.QueryStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Query < stats[j].Query
	})
}
