package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"plateau/cache"
	"plateau/logging"
	"plateau/models"
	"plateau/repository"
	"plateau/search"
	"plateau/utils"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

var (
	// ErrInvalidCategory is returned when an article names a category outside the fixed set.
	ErrInvalidCategory = errors.New("invalid article category")
	// ErrInvalidStatus is returned when an article names an unknown status.
	ErrInvalidStatus = errors.New("invalid article status")
)

// KnowledgeBaseService owns the article working set and its inverted index.
// Unknown article IDs never produce an error: writes report false, reads
// return nil or empty results, and RecordView is a no-op.
type KnowledgeBaseService interface {
	Load() error
	RebuildIndex() models.IndexStats

	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)

	CreateArticle(input models.ArticleInput) (string, error)
	UpdateArticle(id string, patch models.ArticlePatch) (bool, error)
	PublishArticle(id string) (bool, error)
	ArchiveArticle(id string) (bool, error)
	DeleteArticle(id string) (bool, error)
	RecordView(id string, event models.ViewEvent)
	RecordFeedback(id string, input models.FeedbackInput) (bool, error)

	GetArticleByID(id string) *models.KnowledgeArticle
	GetArticleVersions(id string) ([]*models.ArticleVersion, error)
	GetArticlesByCategory(category models.ArticleCategory, visibility models.ArticleVisibility) []*models.KnowledgeArticle
	GetPopularArticles(limit int) []*models.KnowledgeArticle
	GetRecentArticles(limit int) []*models.KnowledgeArticle
	GetSuggestedArticles(id string, limit int) []*models.KnowledgeArticle
	GetCategories() []models.CategoryInfo
	GetKnowledgeBaseAnalytics() models.KnowledgeBaseAnalytics
}

// KnowledgeBaseOptions tunes pagination limits. Summarizer is optional; when
// set, articles created without a summary get a generated one.
type KnowledgeBaseOptions struct {
	DefaultLimit int
	MaxLimit     int
	Summarizer   Summarizer
}

type knowledgeBaseService struct {
	repo  repository.ArticleRepository
	cache cache.SearchCache
	opts  KnowledgeBaseOptions
	log   zerolog.Logger

	// mu guards articles and keeps the index consistent with it: a search
	// never observes a half-applied write.
	mu       sync.RWMutex
	articles map[string]*models.KnowledgeArticle
	index    *search.Index

	// generation is bumped on every mutation and keys the search cache.
	generation atomic.Uint64

	queries *queryLog
}

// NewKnowledgeBaseService creates the service. searchCache may be nil, in
// which case results are not cached. Call Load before serving requests.
func NewKnowledgeBaseService(repo repository.ArticleRepository, searchCache cache.SearchCache, opts KnowledgeBaseOptions) KnowledgeBaseService {
	if searchCache == nil {
		searchCache = cache.NewNopSearchCache()
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &knowledgeBaseService{
		repo:     repo,
		cache:    searchCache,
		opts:     opts,
		log:      logging.Component("KnowledgeBaseService"),
		articles: make(map[string]*models.KnowledgeArticle),
		index:    search.NewIndex(),
		queries:  newQueryLog(),
	}
}

// Load replaces the working set with the repository contents and rebuilds the index.
func (s *knowledgeBaseService) Load() error {
	articles, err := s.repo.ListArticles()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load articles")
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = make(map[string]*models.KnowledgeArticle, len(articles))
	for _, a := range articles {
		s.articles[a.ID] = a
	}
	s.index.Rebuild(articles)
	s.generation.Add(1)

	tokens, docs, _ := s.index.Stats()
	s.log.Info().Int("articles", len(articles)).Int("indexed", docs).Int("tokens", tokens).Msg("knowledge base loaded")
	return nil
}

// RebuildIndex discards the index and regenerates it from the working set.
func (s *knowledgeBaseService) RebuildIndex() models.IndexStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.KnowledgeArticle, 0, len(s.articles))
	for _, a := range s.articles {
		all = append(all, a)
	}
	s.index.Rebuild(all)
	s.generation.Add(1)

	stats := s.indexStatsLocked()
	s.log.Info().Int("documents", stats.Documents).Int("tokens", stats.Tokens).Msg("index rebuilt")
	return stats
}

func (s *knowledgeBaseService) indexStatsLocked() models.IndexStats {
	tokens, docs, last := s.index.Stats()
	return models.IndexStats{
		Tokens:        tokens,
		Documents:     docs,
		LastRebuildAt: last,
		Generation:    s.generation.Load(),
	}
}

// CreateArticle validates the input and stores a new article. Articles start
// as drafts unless input names a status.
func (s *knowledgeBaseService) CreateArticle(input models.ArticleInput) (string, error) {
	if strings.TrimSpace(input.Title) == "" {
		return "", errors.New("article title cannot be empty")
	}
	if !validCategory(input.Category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, input.Category)
	}
	status := input.Status
	if status == "" {
		status = models.ArticleStatusDraft
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		summary = s.generateSummary(strings.TrimSpace(input.Title), input.Content)
	}

	now := time.Now()
	article := &models.KnowledgeArticle{
		ID:          utils.GenerateID(),
		Title:       strings.TrimSpace(input.Title),
		Summary:     summary,
		Content:     input.Content,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Tags:        normalizeTags(input.Tags),
		Status:      status,
		Visibility:  input.Visibility,
		Language:    input.Language,
		Metadata: models.ArticleMetadata{
			Difficulty:  input.Difficulty,
			Author:      input.Author,
			ReadingTime: readingTime(input.Content),
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if article.Visibility == "" {
		article.Visibility = models.VisibilityPublic
	}
	if article.Language == "" {
		article.Language = "en"
	}
	if article.Metadata.Difficulty == "" {
		article.Metadata.Difficulty = models.DifficultyBeginner
	}
	if article.IsPublished() {
		article.PublishedAt = &now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.CreateArticle(article); err != nil {
		s.log.Error().Err(err).Str("title", article.Title).Msg("failed to persist new article")
		return "", fmt.Errorf("failed to create article: %w", err)
	}
	s.articles[article.ID] = article
	s.index.Add(article)
	s.generation.Add(1)

	s.log.Info().Str("article_id", article.ID).Str("status", string(article.Status)).Msg("article created")
	return article.ID, nil
}

// generateSummary asks the configured Summarizer for a summary. Failures are
// logged and leave the summary empty.
func (s *knowledgeBaseService) generateSummary(title, content string) string {
	if s.opts.Summarizer == nil || strings.TrimSpace(content) == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()
	summary, err := s.opts.Summarizer.Summarize(ctx, title, content)
	if err != nil {
		s.log.Warn().Err(err).Str("title", title).Msg("summary generation failed, creating article without one")
		return ""
	}
	return summary
}

// UpdateArticle applies a partial update. When the title, summary or content
// change, the replaced state is kept as a version entry and the version
// number is bumped.
func (s *knowledgeBaseService) UpdateArticle(id string, patch models.ArticlePatch) (bool, error) {
	if patch.Category != nil && !validCategory(*patch.Category) {
		return false, fmt.Errorf("%w: %q", ErrInvalidCategory, *patch.Category)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.articles[id]
	if !ok {
		s.log.Warn().Str("article_id", id).Msg("update of unknown article ignored")
		return false, nil
	}

	next := current.Clone()
	contentChanged := applyPatch(next, patch)
	now := time.Now()
	next.UpdatedAt = now
	if next.IsPublished() && next.PublishedAt == nil {
		next.PublishedAt = &now
	}

	var version *models.ArticleVersion
	if contentChanged {
		version = snapshot(current, patch.EditedBy, patch.ChangeNote, now)
		next.Version = current.Version + 1
		next.Metadata.ReadingTime = readingTime(next.Content)
	}

	if err := s.commitLocked(next, version); err != nil {
		return false, err
	}
	s.log.Info().Str("article_id", id).Bool("new_version", contentChanged).Int("version", next.Version).Msg("article updated")
	return true, nil
}

// PublishArticle makes the article searchable.
func (s *knowledgeBaseService) PublishArticle(id string) (bool, error) {
	return s.transition(id, models.ArticleStatusPublished)
}

// ArchiveArticle removes the article from search without deleting it.
func (s *knowledgeBaseService) ArchiveArticle(id string) (bool, error) {
	return s.transition(id, models.ArticleStatusArchived)
}

func (s *knowledgeBaseService) transition(id string, status models.ArticleStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.articles[id]
	if !ok {
		s.log.Warn().Str("article_id", id).Str("status", string(status)).Msg("status change of unknown article ignored")
		return false, nil
	}

	next := current.Clone()
	now := time.Now()
	next.Status = status
	next.UpdatedAt = now
	if status == models.ArticleStatusPublished {
		next.PublishedAt = &now
	}
	if err := s.commitLocked(next, nil); err != nil {
		return false, err
	}
	s.log.Info().Str("article_id", id).Str("from", string(current.Status)).Str("to", string(status)).Msg("article status changed")
	return true, nil
}

// commitLocked persists next and swaps it into the working set and index.
// The working set is untouched when persistence fails.
func (s *knowledgeBaseService) commitLocked(next *models.KnowledgeArticle, version *models.ArticleVersion) error {
	if err := s.repo.SaveArticle(next, version); err != nil {
		s.log.Error().Err(err).Str("article_id", next.ID).Msg("failed to persist article")
		return fmt.Errorf("failed to save article %s: %w", next.ID, err)
	}
	s.articles[next.ID] = next
	s.index.Add(next)
	s.generation.Add(1)
	return nil
}

// DeleteArticle removes the article, its history and its engagement records.
func (s *knowledgeBaseService) DeleteArticle(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[id]; !ok {
		return false, nil
	}
	if err := s.repo.DeleteArticle(id); err != nil {
		s.log.Error().Err(err).Str("article_id", id).Msg("failed to delete article")
		return false, fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	delete(s.articles, id)
	s.index.Remove(id)
	s.generation.Add(1)

	s.log.Info().Str("article_id", id).Msg("article deleted")
	return true, nil
}

// RecordView bumps the view counter. Persistence failures are logged only:
// a lost view event must not fail the read that triggered it.
func (s *knowledgeBaseService) RecordView(id string, event models.ViewEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		s.log.Debug().Str("article_id", id).Msg("view of unknown article ignored")
		return
	}
	if event.Source == "" {
		event.Source = models.ViewSourceDirect
	}

	now := time.Now()
	view := &models.ArticleView{
		ArticleID: id,
		UserID:    event.UserID,
		SessionID: event.SessionID,
		Source:    event.Source,
		ViewedAt:  now,
	}
	if err := s.repo.RecordView(view); err != nil {
		s.log.Warn().Err(err).Str("article_id", id).Msg("failed to persist view")
	}

	article.Analytics.TotalViews++
	article.Analytics.LastViewedAt = &now
	s.generation.Add(1)
}

// RecordFeedback applies a helpful vote and/or a 1..5 rating. A rating
// outside that range is rejected with false.
func (s *knowledgeBaseService) RecordFeedback(id string, input models.FeedbackInput) (bool, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		s.log.Warn().Str("article_id", id).Int("rating", *input.Rating).Msg("rating out of range rejected")
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		s.log.Warn().Str("article_id", id).Msg("feedback for unknown article ignored")
		return false, nil
	}

	stats := applyFeedback(article.Feedback, input)
	feedback := &models.ArticleFeedback{
		ID:        utils.GenerateID(),
		ArticleID: id,
		UserID:    input.UserID,
		Helpful:   input.Helpful,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveFeedback(feedback, stats); err != nil {
		s.log.Error().Err(err).Str("article_id", id).Msg("failed to persist feedback")
		return false, fmt.Errorf("failed to record feedback for article %s: %w", id, err)
	}

	article.Feedback = stats
	s.generation.Add(1)
	s.log.Info().Str("article_id", id).Float64("average_rating", stats.AverageRating).Int("total_ratings", stats.TotalRatings).Msg("feedback recorded")
	return true, nil
}

// applyFeedback returns the stats after input. The average is a running one:
// newAvg = (oldAvg*(n-1) + rating) / n.
func applyFeedback(stats models.ArticleFeedbackStats, input models.FeedbackInput) models.ArticleFeedbackStats {
	if input.Helpful != nil {
		if *input.Helpful {
			stats.HelpfulCount++
		} else {
			stats.NotHelpfulCount++
		}
	}
	if input.Rating != nil {
		n := stats.TotalRatings + 1
		stats.AverageRating = (stats.AverageRating*float64(n-1) + float64(*input.Rating)) / float64(n)
		stats.TotalRatings = n
	}
	return stats
}

// GetArticleByID returns a copy of the article, or nil.
func (s *knowledgeBaseService) GetArticleByID(id string) *models.KnowledgeArticle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.articles[id].Clone()
}

// GetArticleVersions returns the stored history, newest first. Unknown
// articles have no history.
func (s *knowledgeBaseService) GetArticleVersions(id string) ([]*models.ArticleVersion, error) {
	s.mu.RLock()
	_, ok := s.articles[id]
	s.mu.RUnlock()
	if !ok {
		return []*models.ArticleVersion{}, nil
	}

	versions, err := s.repo.GetVersions(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get versions for article %s: %w", id, err)
	}
	if versions == nil {
		versions = []*models.ArticleVersion{}
	}
	return versions, nil
}

// applyPatch copies the set fields of patch onto a and reports whether the
// versioned text (title, summary, content) changed.
func applyPatch(a *models.KnowledgeArticle, patch models.ArticlePatch) bool {
	changed := false
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != a.Title {
		a.Title = strings.TrimSpace(*patch.Title)
		changed = true
	}
	if patch.Summary != nil && *patch.Summary != a.Summary {
		a.Summary = *patch.Summary
		changed = true
	}
	if patch.Content != nil && *patch.Content != a.Content {
		a.Content = *patch.Content
		changed = true
	}
	if patch.Category != nil {
		a.Category = *patch.Category
	}
	if patch.Subcategory != nil {
		a.Subcategory = *patch.Subcategory
	}
	if patch.Tags != nil {
		a.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Visibility != nil {
		a.Visibility = *patch.Visibility
	}
	if patch.Language != nil {
		a.Language = *patch.Language
	}
	if patch.Difficulty != nil {
		a.Metadata.Difficulty = *patch.Difficulty
	}
	if patch.Author != nil {
		a.Metadata.Author = *patch.Author
	}
	return changed
}

func snapshot(a *models.KnowledgeArticle, editedBy, note string, at time.Time) *models.ArticleVersion {
	return &models.ArticleVersion{
		ID:         utils.GenerateID(),
		ArticleID:  a.ID,
		Version:    a.Version,
		Title:      a.Title,
		Summary:    a.Summary,
		Content:    a.Content,
		EditedBy:   editedBy,
		ChangeNote: note,
		CreatedAt:  at,
	}
}

// normalizeTags lowercases and trims tags, dropping blanks and duplicates.
func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func validCategory(c models.ArticleCategory) bool {
	for _, def := range models.CategoryDefinitions {
		if def.ID == c {
			return true
		}
	}
	return false
}

// readingTime estimates minutes at 200 words per minute, at least one.
func readingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
