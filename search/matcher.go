package search

import (
	"sort"
	"strings"

	"plateau/models"
)

// Hit is a matched article and its relevance score.
type Hit struct {
	Article *models.KnowledgeArticle
	Score   int
}

// Match scores the articles against the query tokens. lookup resolves an
// article ID to the current article; IDs it cannot resolve, and articles that
// are not published, are skipped. The result order is unspecified.
func Match(ix *Index, tokens []string, lookup func(id string) *models.KnowledgeArticle) []Hit {
	if len(tokens) == 0 {
		return nil
	}
	scores := ix.Score(tokens)
	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		a := lookup(id)
		if a == nil || !a.IsPublished() || score == 0 {
			continue
		}
		hits = append(hits, Hit{Article: a, Score: score})
	}
	return hits
}

// Filter keeps the hits that satisfy every set filter.
func Filter(hits []Hit, f models.SearchFilters) []Hit {
	out := hits[:0]
	for _, h := range hits {
		if MatchesFilters(h.Article, f) {
			out = append(out, h)
		}
	}
	return out
}

// MatchesFilters reports whether a satisfies f. Unset filters always pass and
// filter values are not validated: an unknown category simply matches nothing.
func MatchesFilters(a *models.KnowledgeArticle, f models.SearchFilters) bool {
	if len(f.Categories) > 0 && !containsCategory(f.Categories, a.Category) {
		return false
	}
	if len(f.Tags) > 0 && !tagsIntersect(a.Tags, f.Tags) {
		return false
	}
	if len(f.Difficulties) > 0 && !containsDifficulty(f.Difficulties, a.Metadata.Difficulty) {
		return false
	}
	if f.Visibility != "" && a.Visibility != f.Visibility {
		return false
	}
	if f.MinRating != nil && a.Feedback.AverageRating < *f.MinRating {
		return false
	}
	return true
}

func containsCategory(set []models.ArticleCategory, c models.ArticleCategory) bool {
	for _, s := range set {
		if s == c {
			return true
		}
	}
	return false
}

func containsDifficulty(set []models.Difficulty, d models.Difficulty) bool {
	for _, s := range set {
		if s == d {
			return true
		}
	}
	return false
}

func tagsIntersect(articleTags, wanted []string) bool {
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		for _, t := range articleTags {
			if strings.ToLower(t) == w {
				return true
			}
		}
	}
	return false
}

// DefaultOrder is the direction used when a sort does not name one.
func DefaultOrder(field models.SortField) models.SortOrder {
	if field == models.SortByTitle {
		return models.SortAsc
	}
	return models.SortDesc
}

// Sort orders hits in place. Equal keys fall back to article ID so that
// paging through a result set is deterministic.
func Sort(hits []Hit, opts models.SortOptions) {
	field := opts.Field
	if field == "" {
		field = models.SortByRelevance
	}
	order := opts.Order
	if order != models.SortAsc && order != models.SortDesc {
		order = DefaultOrder(field)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		c := compareHits(hits[i], hits[j], field)
		if c == 0 {
			return hits[i].Article.ID < hits[j].Article.ID
		}
		if order == models.SortDesc {
			return c > 0
		}
		return c < 0
	})
}

func compareHits(x, y Hit, field models.SortField) int {
	a, b := x.Article, y.Article
	switch field {
	case models.SortByDate:
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			return -1
		case a.UpdatedAt.After(b.UpdatedAt):
			return 1
		}
		return 0
	case models.SortByRating:
		return compareFloat(a.Feedback.AverageRating, b.Feedback.AverageRating)
	case models.SortByViews:
		return compareInt(a.Analytics.TotalViews, b.Analytics.TotalViews)
	case models.SortByTitle:
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	default:
		return compareInt(x.Score, y.Score)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Paginate returns the 1-indexed page of hits. Pages past the end are empty.
func Paginate(hits []Hit, page, limit int) []Hit {
	if page < 1 || limit < 1 || len(hits) == 0 {
		return nil
	}
	// compare against the page count so (page-1)*limit cannot overflow
	pages := len(hits) / limit
	if len(hits)%limit != 0 {
		pages++
	}
	if page > pages {
		return nil
	}
	start := (page - 1) * limit
	end := len(hits)
	if limit < end-start {
		end = start + limit
	}
	return hits[start:end]
}
