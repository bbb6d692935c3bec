package services

import (
	"sort"
	"time"

	"plateau/models"
)

const (
	topArticleStats = 5

	// Articles rated at least this often with an average below the threshold
	// are flagged for attention.
	attentionMinRatings = 3
	attentionMaxAverage = 3.0
)

// GetArticlesByCategory returns the published articles of a category,
// alphabetically. An empty visibility matches every visibility.
func (s *knowledgeBaseService) GetArticlesByCategory(category models.ArticleCategory, visibility models.ArticleVisibility) []*models.KnowledgeArticle {
	return s.published(func(a *models.KnowledgeArticle) bool {
		return a.Category == category && (visibility == "" || a.Visibility == visibility)
	}, func(x, y *models.KnowledgeArticle) bool {
		if x.Title != y.Title {
			return x.Title < y.Title
		}
		return x.ID < y.ID
	}, 0)
}

// GetPopularArticles returns the most viewed published articles.
func (s *knowledgeBaseService) GetPopularArticles(limit int) []*models.KnowledgeArticle {
	return s.published(nil, func(x, y *models.KnowledgeArticle) bool {
		if x.Analytics.TotalViews != y.Analytics.TotalViews {
			return x.Analytics.TotalViews > y.Analytics.TotalViews
		}
		return x.ID < y.ID
	}, s.clampLimit(limit))
}

// GetRecentArticles returns the most recently published articles.
func (s *knowledgeBaseService) GetRecentArticles(limit int) []*models.KnowledgeArticle {
	return s.published(nil, func(x, y *models.KnowledgeArticle) bool {
		tx, ty := publishedTime(x), publishedTime(y)
		if !tx.Equal(ty) {
			return tx.After(ty)
		}
		return x.ID < y.ID
	}, s.clampLimit(limit))
}

// GetSuggestedArticles ranks published articles by similarity to id: two
// points for the same category and one per shared tag. Unrelated articles are
// left out.
func (s *knowledgeBaseService) GetSuggestedArticles(id string, limit int) []*models.KnowledgeArticle {
	limit = s.clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	source, ok := s.articles[id]
	if !ok {
		return []*models.KnowledgeArticle{}
	}
	sourceTags := make(map[string]struct{}, len(source.Tags))
	for _, t := range source.Tags {
		sourceTags[t] = struct{}{}
	}

	type scored struct {
		article *models.KnowledgeArticle
		score   int
	}
	var candidates []scored
	for _, a := range s.articles {
		if a.ID == id || !a.IsPublished() {
			continue
		}
		score := 0
		if a.Category == source.Category {
			score += 2
		}
		for _, t := range a.Tags {
			if _, ok := sourceTags[t]; ok {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{article: a, score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		x, y := candidates[i], candidates[j]
		if x.score != y.score {
			return x.score > y.score
		}
		if x.article.Analytics.TotalViews != y.article.Analytics.TotalViews {
			return x.article.Analytics.TotalViews > y.article.Analytics.TotalViews
		}
		return x.article.ID < y.article.ID
	})

	out := make([]*models.KnowledgeArticle, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.article.Clone())
	}
	return out
}

// GetCategories lists every category with its published article count.
func (s *knowledgeBaseService) GetCategories() []models.CategoryInfo {
	s.mu.RLock()
	counts := make(map[models.ArticleCategory]int)
	for _, a := range s.articles {
		if a.IsPublished() {
			counts[a.Category]++
		}
	}
	s.mu.RUnlock()

	out := make([]models.CategoryInfo, 0, len(models.CategoryDefinitions))
	for _, def := range models.CategoryDefinitions {
		out = append(out, models.CategoryInfo{CategoryDefinition: def, ArticleCount: counts[def.ID]})
	}
	return out
}

// GetKnowledgeBaseAnalytics summarises content, engagement, search and index state.
func (s *knowledgeBaseService) GetKnowledgeBaseAnalytics() models.KnowledgeBaseAnalytics {
	s.mu.RLock()
	result := models.KnowledgeBaseAnalytics{
		TotalArticles: len(s.articles),
		ByStatus:      make(map[models.ArticleStatus]int),
		ByCategory:    make(map[models.ArticleCategory]int),
		Index:         s.indexStatsLocked(),
	}

	var ratingSum float64
	var all, rated, attention []*models.KnowledgeArticle
	for _, a := range s.articles {
		result.ByStatus[a.Status]++
		result.ByCategory[a.Category]++
		result.TotalViews += a.Analytics.TotalViews
		result.TotalRatings += a.Feedback.TotalRatings
		result.HelpfulCount += a.Feedback.HelpfulCount
		result.NotHelpfulCount += a.Feedback.NotHelpfulCount
		ratingSum += a.Feedback.AverageRating * float64(a.Feedback.TotalRatings)

		if a.IsPublished() {
			result.PublishedArticles++
		}
		all = append(all, a)
		if a.Feedback.TotalRatings > 0 {
			rated = append(rated, a)
		}
		if needsAttention(a) {
			attention = append(attention, a)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Analytics.TotalViews != all[j].Analytics.TotalViews {
			return all[i].Analytics.TotalViews > all[j].Analytics.TotalViews
		}
		return all[i].ID < all[j].ID
	})
	sort.Slice(rated, func(i, j int) bool {
		if rated[i].Feedback.AverageRating != rated[j].Feedback.AverageRating {
			return rated[i].Feedback.AverageRating > rated[j].Feedback.AverageRating
		}
		return rated[i].ID < rated[j].ID
	})
	sort.Slice(attention, func(i, j int) bool { return attention[i].ID < attention[j].ID })

	result.TopArticles = articleStats(all, topArticleStats)
	result.TopRated = articleStats(rated, topArticleStats)
	result.NeedsAttention = articleStats(attention, 0)
	s.mu.RUnlock()

	if result.TotalRatings > 0 {
		result.AverageRating = ratingSum / float64(result.TotalRatings)
	}
	result.Search = s.queries.stats(topQueryStats)
	return result
}

// needsAttention flags articles marked for update, rated poorly, or voted
// unhelpful more often than helpful.
func needsAttention(a *models.KnowledgeArticle) bool {
	if a.Status == models.ArticleStatusNeedsUpdate {
		return true
	}
	if a.Feedback.TotalRatings >= attentionMinRatings && a.Feedback.AverageRating < attentionMaxAverage {
		return true
	}
	return a.Feedback.NotHelpfulCount > a.Feedback.HelpfulCount
}

func articleStats(articles []*models.KnowledgeArticle, limit int) []models.ArticleStat {
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	out := make([]models.ArticleStat, 0, len(articles))
	for _, a := range articles {
		out = append(out, models.ArticleStat{
			ID:            a.ID,
			Title:         a.Title,
			Category:      a.Category,
			TotalViews:    a.Analytics.TotalViews,
			AverageRating: a.Feedback.AverageRating,
		})
	}
	return out
}

// published returns clones of the published articles accepted by keep,
// ordered by less and truncated to limit when limit > 0.
func (s *knowledgeBaseService) published(keep func(*models.KnowledgeArticle) bool, less func(x, y *models.KnowledgeArticle) bool, limit int) []*models.KnowledgeArticle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.KnowledgeArticle, 0)
	for _, a := range s.articles {
		if a.IsPublished() && (keep == nil || keep(a)) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*models.KnowledgeArticle, len(matched))
	for i, a := range matched {
		out[i] = a.Clone()
	}
	return out
}

func (s *knowledgeBaseService) clampLimit(limit int) int {
	if limit < 1 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

func publishedTime(a *models.KnowledgeArticle) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.UpdatedAt
}
