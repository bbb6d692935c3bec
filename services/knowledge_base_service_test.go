package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"plateau/models"
)

// MockArticleRepository is a mock type for the ArticleRepository interface
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) ListArticles() ([]*models.KnowledgeArticle, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KnowledgeArticle), args.Error(1)
}

func (m *MockArticleRepository) GetArticleByID(id string) (*models.KnowledgeArticle, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KnowledgeArticle), args.Error(1)
}

func (m *MockArticleRepository) CountArticles() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArticleRepository) CreateArticle(article *models.KnowledgeArticle) error {
	args := m.Called(article)
	return args.Error(0)
}

func (m *MockArticleRepository) SaveArticle(article *models.KnowledgeArticle, version *models.ArticleVersion) error {
	args := m.Called(article, version)
	return args.Error(0)
}

func (m *MockArticleRepository) DeleteArticle(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockArticleRepository) GetVersions(articleID string) ([]*models.ArticleVersion, error) {
	args := m.Called(articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ArticleVersion), args.Error(1)
}

func (m *MockArticleRepository) RecordView(view *models.ArticleView) error {
	args := m.Called(view)
	return args.Error(0)
}

func (m *MockArticleRepository) SaveFeedback(feedback *models.ArticleFeedback, stats models.ArticleFeedbackStats) error {
	args := m.Called(feedback, stats)
	return args.Error(0)
}

// MockSearchCache is a mock type for the cache.SearchCache interface
type MockSearchCache struct {
	mock.Mock
}

func (m *MockSearchCache) Get(ctx context.Context, generation uint64, req models.SearchRequest) (*models.SearchResult, bool, error) {
	args := m.Called(ctx, generation, req)
	var result *models.SearchResult
	if v := args.Get(0); v != nil {
		result = v.(*models.SearchResult)
	}
	return result, args.Bool(1), args.Error(2)
}

func (m *MockSearchCache) Set(ctx context.Context, generation uint64, req models.SearchRequest, result *models.SearchResult) error {
	args := m.Called(ctx, generation, req, result)
	return args.Error(0)
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newArticle(id, title string, category models.ArticleCategory, status models.ArticleStatus, tags ...string) *models.KnowledgeArticle {
	a := &models.KnowledgeArticle{
		ID:         id,
		Title:      title,
		Summary:    "Summary of " + title,
		Content:    "Body text for " + title + ".",
		Category:   category,
		Tags:       tags,
		Status:     status,
		Visibility: models.VisibilityPublic,
		Language:   "en",
		Metadata:   models.ArticleMetadata{Difficulty: models.DifficultyBeginner},
		Version:    1,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	if status == models.ArticleStatusPublished {
		published := baseTime
		a.PublishedAt = &published
	}
	return a
}

// fixtures returns a small corpus: two published billing articles, one
// published template article and unpublished billing articles that must
// never surface in search.
func fixtures() []*models.KnowledgeArticle {
	faq := newArticle("a1", "Billing FAQ", models.CategoryAccountBilling, models.ArticleStatusPublished, "billing", "invoices")
	faq.Feedback = models.ArticleFeedbackStats{AverageRating: 4.5, TotalRatings: 4, HelpfulCount: 6}
	faq.Analytics.TotalViews = 100

	refunds := newArticle("a2", "Refunds and billing cycles", models.CategoryAccountBilling, models.ArticleStatusPublished, "billing")
	refunds.Feedback = models.ArticleFeedbackStats{AverageRating: 2.0, TotalRatings: 3, NotHelpfulCount: 2}
	refunds.Analytics.TotalViews = 10
	refunds.Metadata.Difficulty = models.DifficultyIntermediate
	later := baseTime.Add(48 * time.Hour)
	refunds.PublishedAt = &later

	templates := newArticle("a3", "Prompt templates", models.CategoryTemplates, models.ArticleStatusPublished, "templates", "prompts")
	templates.Feedback = models.ArticleFeedbackStats{AverageRating: 3.5, TotalRatings: 2}
	templates.Analytics.TotalViews = 50

	draft := newArticle("a4", "Draft billing notes", models.CategoryAccountBilling, models.ArticleStatusDraft, "billing")
	archived := newArticle("a5", "Old billing guide", models.CategoryAccountBilling, models.ArticleStatusArchived, "billing")

	return []*models.KnowledgeArticle{faq, refunds, templates, draft, archived}
}

func newTestService(t *testing.T, articles []*models.KnowledgeArticle) (*knowledgeBaseService, *MockArticleRepository) {
	t.Helper()
	repo := new(MockArticleRepository)
	repo.On("ListArticles").Return(articles, nil)
	repo.On("CreateArticle", mock.Anything).Return(nil).Maybe()
	repo.On("SaveArticle", mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("DeleteArticle", mock.Anything).Return(nil).Maybe()
	repo.On("RecordView", mock.Anything).Return(nil).Maybe()
	repo.On("SaveFeedback", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewKnowledgeBaseService(repo, nil, KnowledgeBaseOptions{DefaultLimit: 10, MaxLimit: 100}).(*knowledgeBaseService)
	require.NoError(t, svc.Load())
	return svc, repo
}

func resultIDs(result *models.SearchResult) []string {
	ids := make([]string, 0, len(result.Articles))
	for _, item := range result.Articles {
		ids = append(ids, item.ID)
	}
	return ids
}

func mustSearch(t *testing.T, svc KnowledgeBaseService, req models.SearchRequest) *models.SearchResult {
	t.Helper()
	result, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestKnowledgeBaseService_Search(t *testing.T) {
	svc, _ := newTestService(t, fixtures())

	t.Run("title token finds published articles only", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "billing"})
		ids := resultIDs(result)
		assert.ElementsMatch(t, []string{"a1", "a2"}, ids)
		assert.NotContains(t, ids, "a4", "drafts are not searchable")
		assert.NotContains(t, ids, "a5", "archived articles are not searchable")
		for _, item := range result.Articles {
			assert.GreaterOrEqual(t, item.RelevanceScore, 1)
		}
	})

	t.Run("score counts distinct query tokens", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "billing faq billing"})
		require.NotEmpty(t, result.Articles)
		assert.Equal(t, "a1", result.Articles[0].ID)
		assert.Equal(t, 2, result.Articles[0].RelevanceScore)
	})

	t.Run("empty query matches nothing", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: ""})
		assert.Equal(t, 0, result.Total)
		assert.Empty(t, result.Articles)
		assert.NotNil(t, result.Articles)
	})

	t.Run("short tokens are dropped", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "a b c"})
		assert.Equal(t, 0, result.Total)
	})

	t.Run("tag filter", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{
			Query:   "billing templates",
			Filters: models.SearchFilters{Tags: []string{"billing"}},
		})
		assert.ElementsMatch(t, []string{"a1", "a2"}, resultIDs(result))

		result = mustSearch(t, svc, models.SearchRequest{
			Query:   "billing templates",
			Filters: models.SearchFilters{Tags: []string{"templates"}},
		})
		assert.Equal(t, []string{"a3"}, resultIDs(result))
	})

	t.Run("filters are ANDed", func(t *testing.T) {
		minRating := 4.0
		result := mustSearch(t, svc, models.SearchRequest{
			Query: "billing",
			Filters: models.SearchFilters{
				Categories: []models.ArticleCategory{models.CategoryAccountBilling},
				MinRating:  &minRating,
			},
		})
		assert.Equal(t, []string{"a1"}, resultIDs(result))
	})

	t.Run("unknown filter value matches nothing", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{
			Query:   "billing",
			Filters: models.SearchFilters{Categories: []models.ArticleCategory{"no_such_category"}},
		})
		assert.Equal(t, 0, result.Total)
	})

	t.Run("highlights mark the matched token", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "faq"})
		require.Len(t, result.Articles, 1)
		require.NotEmpty(t, result.Articles[0].Highlights)
		assert.Contains(t, result.Articles[0].Highlights[0], "<mark>FAQ</mark>")
	})

	t.Run("facet category counts sum to total", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{
			Query:      "billing templates",
			Pagination: models.Pagination{Page: 1, Limit: 1},
		})
		assert.Equal(t, 3, result.Total)
		assert.Len(t, result.Articles, 1)
		sum := 0
		for _, f := range result.Facets.Categories {
			sum += f.Count
		}
		assert.Equal(t, result.Total, sum)
	})

	t.Run("suggests a close indexed token", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "biling"})
		assert.Equal(t, 0, result.Total)
		assert.Contains(t, result.Suggestions, "billing")
		assert.LessOrEqual(t, len(result.Suggestions), 5)
	})

	t.Run("pagination is normalized", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{
			Query:      "billing",
			Pagination: models.Pagination{Page: -3, Limit: 1000},
		})
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 100, result.Limit)
		assert.Equal(t, 1, result.TotalPages)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Search(ctx, models.SearchRequest{Query: "billing"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKnowledgeBaseService_SearchPaginationAndSorting(t *testing.T) {
	var corpus []*models.KnowledgeArticle
	for i := 1; i <= 7; i++ {
		a := newArticle(fmt.Sprintf("w%d", i), fmt.Sprintf("Workflow tip %d", i), models.CategoryWorkflows, models.ArticleStatusPublished, "workflow")
		a.Feedback.AverageRating = float64((i*3)%5) + 0.5
		a.Feedback.TotalRatings = i
		a.Analytics.TotalViews = (i * 7) % 4
		a.UpdatedAt = baseTime.Add(time.Duration(i%3) * time.Hour)
		corpus = append(corpus, a)
	}
	svc, _ := newTestService(t, corpus)

	for _, sortField := range []models.SortField{models.SortByRelevance, models.SortByDate, models.SortByRating, models.SortByViews, models.SortByTitle} {
		t.Run(string(sortField), func(t *testing.T) {
			sortOpts := models.SortOptions{Field: sortField}
			full := mustSearch(t, svc, models.SearchRequest{Query: "workflow", Sort: sortOpts, Pagination: models.Pagination{Page: 1, Limit: 100}})
			require.Equal(t, 7, full.Total)

			var paged []string
			for page := 1; page <= 4; page++ {
				result := mustSearch(t, svc, models.SearchRequest{Query: "workflow", Sort: sortOpts, Pagination: models.Pagination{Page: page, Limit: 3}})
				assert.LessOrEqual(t, len(result.Articles), 3)
				assert.Equal(t, 3, result.TotalPages)
				paged = append(paged, resultIDs(result)...)
			}
			assert.Equal(t, resultIDs(full), paged, "pages concatenate to the full list exactly once")
		})
	}

	t.Run("rating desc is non-increasing", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{
			Query: "workflow",
			Sort:  models.SortOptions{Field: models.SortByRating, Order: models.SortDesc},
		})
		for i := 1; i < len(result.Articles); i++ {
			assert.GreaterOrEqual(t, result.Articles[i-1].AverageRating, result.Articles[i].AverageRating)
		}
	})

	t.Run("title defaults to ascending", func(t *testing.T) {
		result := mustSearch(t, svc, models.SearchRequest{Query: "workflow", Sort: models.SortOptions{Field: models.SortByTitle}})
		require.Len(t, result.Articles, 7)
		assert.Equal(t, "Workflow tip 1", result.Articles[0].Title)
		assert.Equal(t, "Workflow tip 7", result.Articles[6].Title)
	})
}

func TestKnowledgeBaseService_SearchHugePage(t *testing.T) {
	svc, _ := newTestService(t, fixtures())

	var result *models.SearchResult
	require.NotPanics(t, func() {
		result = mustSearch(t, svc, models.SearchRequest{Query: "billing", Pagination: models.Pagination{Page: 1<<60 + 1, Limit: 10}})
	})
	assert.Empty(t, result.Articles)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.TotalPages)

	// writers must still get the lock after a search
	done := make(chan struct{})
	go func() {
		defer close(done)
		ok, err := svc.PublishArticle("a4")
		assert.NoError(t, err)
		assert.True(t, ok)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after search")
	}
	assert.Equal(t, 3, mustSearch(t, svc, models.SearchRequest{Query: "billing"}).Total)
}

func TestKnowledgeBaseService_Lifecycle(t *testing.T) {
	t.Run("create starts as draft and is not searchable", func(t *testing.T) {
		svc, repo := newTestService(t, fixtures())
		id, err := svc.CreateArticle(models.ArticleInput{
			Title:    "Connecting Zapier",
			Content:  "Use the zapier integration.",
			Category: models.CategoryIntegrations,
			Tags:     []string{" Zapier ", "zapier", "Automation"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		created := svc.GetArticleByID(id)
		require.NotNil(t, created)
		assert.Equal(t, models.ArticleStatusDraft, created.Status)
		assert.Equal(t, []string{"zapier", "automation"}, []string(created.Tags))
		assert.Equal(t, "en", created.Language)
		assert.Equal(t, 1, created.Version)
		assert.Nil(t, created.PublishedAt)

		assert.Equal(t, 0, mustSearch(t, svc, models.SearchRequest{Query: "zapier"}).Total)
		repo.AssertCalled(t, "CreateArticle", mock.AnythingOfType("*models.KnowledgeArticle"))
	})

	t.Run("invalid category is rejected", func(t *testing.T) {
		svc, _ := newTestService(t, fixtures())
		_, err := svc.CreateArticle(models.ArticleInput{Title: "x", Category: "astrology"})
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("publish indexes and archive removes", func(t *testing.T) {
		svc, _ := newTestService(t, fixtures())

		ok, err := svc.PublishArticle("a4")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "notes"})), "a4")
		assert.NotNil(t, svc.GetArticleByID("a4").PublishedAt)

		ok, err = svc.ArchiveArticle("a4")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, mustSearch(t, svc, models.SearchRequest{Query: "notes"}).Total)
	})

	t.Run("content change writes a version", func(t *testing.T) {
		svc, repo := newTestService(t, fixtures())
		content := "Invoices are emailed monthly."
		ok, err := svc.UpdateArticle("a1", models.ArticlePatch{Content: &content, EditedBy: "editor", ChangeNote: "clarify"})
		require.NoError(t, err)
		assert.True(t, ok)

		repo.AssertCalled(t, "SaveArticle",
			mock.MatchedBy(func(a *models.KnowledgeArticle) bool { return a.ID == "a1" && a.Version == 2 && a.Content == content }),
			mock.MatchedBy(func(v *models.ArticleVersion) bool {
				return v != nil && v.ArticleID == "a1" && v.Version == 1 && v.EditedBy == "editor" && v.Content != content
			}),
		)
		assert.Equal(t, 2, svc.GetArticleByID("a1").Version)
		assert.Contains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "emailed"})), "a1")
	})

	t.Run("metadata change does not version", func(t *testing.T) {
		svc, repo := newTestService(t, fixtures())
		tags := []string{"payments"}
		ok, err := svc.UpdateArticle("a1", models.ArticlePatch{Tags: &tags})
		require.NoError(t, err)
		assert.True(t, ok)

		repo.AssertCalled(t, "SaveArticle", mock.Anything, (*models.ArticleVersion)(nil))
		assert.Equal(t, 1, svc.GetArticleByID("a1").Version)
		assert.Contains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "payments"})), "a1")
		assert.NotContains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "invoices"})), "a1")
	})

	t.Run("unpublishing through update removes from index", func(t *testing.T) {
		svc, _ := newTestService(t, fixtures())
		status := models.ArticleStatusNeedsUpdate
		ok, err := svc.UpdateArticle("a1", models.ArticlePatch{Status: &status})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotContains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "billing"})), "a1")
	})

	t.Run("persistence failure leaves the article untouched", func(t *testing.T) {
		repo := new(MockArticleRepository)
		repo.On("ListArticles").Return(fixtures(), nil)
		repo.On("SaveArticle", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		svc := NewKnowledgeBaseService(repo, nil, KnowledgeBaseOptions{})
		require.NoError(t, svc.Load())

		title := "Renamed"
		ok, err := svc.UpdateArticle("a1", models.ArticlePatch{Title: &title})
		assert.Error(t, err)
		assert.False(t, ok)
		assert.Equal(t, "Billing FAQ", svc.GetArticleByID("a1").Title)
	})

	t.Run("delete", func(t *testing.T) {
		svc, repo := newTestService(t, fixtures())
		ok, err := svc.DeleteArticle("a1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, svc.GetArticleByID("a1"))
		assert.NotContains(t, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "billing"})), "a1")
		repo.AssertCalled(t, "DeleteArticle", "a1")
	})
}

func TestKnowledgeBaseService_UnknownIDs(t *testing.T) {
	svc, repo := newTestService(t, fixtures())
	title := "x"
	rating := 4

	ok, err := svc.UpdateArticle("missing", models.ArticlePatch{Title: &title})
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.PublishArticle("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ArchiveArticle("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.DeleteArticle("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.RecordFeedback("missing", models.FeedbackInput{Rating: &rating})
	assert.NoError(t, err)
	assert.False(t, ok)

	svc.RecordView("missing", models.ViewEvent{Source: models.ViewSourceSearch})

	assert.Nil(t, svc.GetArticleByID("missing"))
	assert.Empty(t, svc.GetSuggestedArticles("missing", 5))
	versions, err := svc.GetArticleVersions("missing")
	assert.NoError(t, err)
	assert.Empty(t, versions)

	repo.AssertNotCalled(t, "SaveArticle", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "RecordView", mock.Anything)
	repo.AssertNotCalled(t, "SaveFeedback", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteArticle", mock.Anything)
}

func TestKnowledgeBaseService_Engagement(t *testing.T) {
	fresh := newArticle("f1", "Fresh article", models.CategoryGettingStarted, models.ArticleStatusPublished)

	t.Run("first rating sets the average", func(t *testing.T) {
		svc, _ := newTestService(t, []*models.KnowledgeArticle{fresh.Clone()})
		rating := 5
		ok, err := svc.RecordFeedback("f1", models.FeedbackInput{Rating: &rating})
		require.NoError(t, err)
		assert.True(t, ok)

		a := svc.GetArticleByID("f1")
		assert.Equal(t, 1, a.Feedback.TotalRatings)
		assert.Equal(t, 5.0, a.Feedback.AverageRating)
	})

	t.Run("running average", func(t *testing.T) {
		svc, repo := newTestService(t, []*models.KnowledgeArticle{fresh.Clone()})
		for _, r := range []int{5, 3, 4} {
			rating := r
			ok, err := svc.RecordFeedback("f1", models.FeedbackInput{Rating: &rating})
			require.NoError(t, err)
			require.True(t, ok)
		}
		a := svc.GetArticleByID("f1")
		assert.Equal(t, 3, a.Feedback.TotalRatings)
		assert.InDelta(t, 4.0, a.Feedback.AverageRating, 1e-9)
		repo.AssertNumberOfCalls(t, "SaveFeedback", 3)
	})

	t.Run("helpful votes", func(t *testing.T) {
		svc, _ := newTestService(t, []*models.KnowledgeArticle{fresh.Clone()})
		yes, no := true, false
		_, _ = svc.RecordFeedback("f1", models.FeedbackInput{Helpful: &yes})
		_, _ = svc.RecordFeedback("f1", models.FeedbackInput{Helpful: &yes, Comment: "great"})
		_, _ = svc.RecordFeedback("f1", models.FeedbackInput{Helpful: &no})

		a := svc.GetArticleByID("f1")
		assert.Equal(t, 2, a.Feedback.HelpfulCount)
		assert.Equal(t, 1, a.Feedback.NotHelpfulCount)
		assert.Equal(t, 0, a.Feedback.TotalRatings)
	})

	t.Run("rating out of range is rejected", func(t *testing.T) {
		svc, repo := newTestService(t, []*models.KnowledgeArticle{fresh.Clone()})
		for _, r := range []int{0, 6, -1} {
			rating := r
			ok, err := svc.RecordFeedback("f1", models.FeedbackInput{Rating: &rating})
			assert.NoError(t, err)
			assert.False(t, ok)
		}
		repo.AssertNotCalled(t, "SaveFeedback", mock.Anything, mock.Anything)
	})

	t.Run("views", func(t *testing.T) {
		svc, repo := newTestService(t, []*models.KnowledgeArticle{fresh.Clone()})
		svc.RecordView("f1", models.ViewEvent{UserID: "u1", SessionID: "s1", Source: models.ViewSourceSearch})
		svc.RecordView("f1", models.ViewEvent{SessionID: "s2"})

		a := svc.GetArticleByID("f1")
		assert.Equal(t, 2, a.Analytics.TotalViews)
		assert.NotNil(t, a.Analytics.LastViewedAt)
		repo.AssertCalled(t, "RecordView", mock.MatchedBy(func(v *models.ArticleView) bool {
			return v.ArticleID == "f1" && v.Source == models.ViewSourceDirect && v.SessionID == "s2"
		}))
	})

	t.Run("view persistence failure still counts", func(t *testing.T) {
		repo := new(MockArticleRepository)
		repo.On("ListArticles").Return([]*models.KnowledgeArticle{fresh.Clone()}, nil)
		repo.On("RecordView", mock.Anything).Return(errors.New("db down"))
		svc := NewKnowledgeBaseService(repo, nil, KnowledgeBaseOptions{})
		require.NoError(t, svc.Load())

		svc.RecordView("f1", models.ViewEvent{})
		assert.Equal(t, 1, svc.GetArticleByID("f1").Analytics.TotalViews)
	})
}

func TestKnowledgeBaseService_Listings(t *testing.T) {
	svc, _ := newTestService(t, fixtures())

	t.Run("by category is published only", func(t *testing.T) {
		articles := svc.GetArticlesByCategory(models.CategoryAccountBilling, "")
		var ids []string
		for _, a := range articles {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []string{"a1", "a2"}, ids)
		assert.Empty(t, svc.GetArticlesByCategory(models.CategoryAccountBilling, models.VisibilityPremium))
	})

	t.Run("popular", func(t *testing.T) {
		articles := svc.GetPopularArticles(2)
		require.Len(t, articles, 2)
		assert.Equal(t, "a1", articles[0].ID)
		assert.Equal(t, "a3", articles[1].ID)
	})

	t.Run("recent", func(t *testing.T) {
		articles := svc.GetRecentArticles(0)
		require.Len(t, articles, 3)
		assert.Equal(t, "a2", articles[0].ID)
	})

	t.Run("suggested", func(t *testing.T) {
		articles := svc.GetSuggestedArticles("a4", 5)
		var ids []string
		for _, a := range articles {
			ids = append(ids, a.ID)
		}
		// a1 and a2 share the category (+2) and the billing tag (+1); a1 wins on views.
		assert.Equal(t, []string{"a1", "a2"}, ids)
	})

	t.Run("categories", func(t *testing.T) {
		categories := svc.GetCategories()
		assert.Len(t, categories, len(models.CategoryDefinitions))
		counts := map[models.ArticleCategory]int{}
		for _, c := range categories {
			counts[c.ID] = c.ArticleCount
		}
		assert.Equal(t, 2, counts[models.CategoryAccountBilling])
		assert.Equal(t, 1, counts[models.CategoryTemplates])
		assert.Equal(t, 0, counts[models.CategoryWorkflows])
	})

	t.Run("returned articles are copies", func(t *testing.T) {
		a := svc.GetArticleByID("a1")
		a.Title = "mutated"
		a.Tags[0] = "mutated"
		assert.Equal(t, "Billing FAQ", svc.GetArticleByID("a1").Title)
		assert.Equal(t, "billing", svc.GetArticleByID("a1").Tags[0])
	})
}

func TestKnowledgeBaseService_Analytics(t *testing.T) {
	svc, _ := newTestService(t, fixtures())
	mustSearch(t, svc, models.SearchRequest{Query: "billing faq"})
	mustSearch(t, svc, models.SearchRequest{Query: "billing"})
	mustSearch(t, svc, models.SearchRequest{Query: "billing"})
	mustSearch(t, svc, models.SearchRequest{Query: "kubernetes"})

	stats := svc.GetKnowledgeBaseAnalytics()
	assert.Equal(t, 5, stats.TotalArticles)
	assert.Equal(t, 3, stats.PublishedArticles)
	assert.Equal(t, 1, stats.ByStatus[models.ArticleStatusDraft])
	assert.Equal(t, 4, stats.ByCategory[models.CategoryAccountBilling])
	assert.Equal(t, 160, stats.TotalViews)
	assert.Equal(t, 9, stats.TotalRatings)
	assert.InDelta(t, (4.5*4+2.0*3+3.5*2)/9, stats.AverageRating, 1e-9)
	require.NotEmpty(t, stats.TopArticles)
	assert.Equal(t, "a1", stats.TopArticles[0].ID)
	require.NotEmpty(t, stats.TopRated)
	assert.Equal(t, "a1", stats.TopRated[0].ID)
	require.Len(t, stats.NeedsAttention, 1)
	assert.Equal(t, "a2", stats.NeedsAttention[0].ID)

	assert.Equal(t, 4, stats.Search.TotalSearches)
	assert.Equal(t, 1, stats.Search.ZeroResultSearches)
	require.NotEmpty(t, stats.Search.TopQueries)
	assert.Equal(t, models.QueryStat{Query: "billing", Count: 2}, stats.Search.TopQueries[0])
	assert.Equal(t, []models.QueryStat{{Query: "kubernetes", Count: 1}}, stats.Search.TopZeroResultQueries)
	assert.Equal(t, 3, stats.Index.Documents)
}

func TestKnowledgeBaseService_RelatedQueries(t *testing.T) {
	svc, _ := newTestService(t, fixtures())
	mustSearch(t, svc, models.SearchRequest{Query: "billing faq"})
	mustSearch(t, svc, models.SearchRequest{Query: "kubernetes billing"})

	result := mustSearch(t, svc, models.SearchRequest{Query: "billing"})
	assert.LessOrEqual(t, len(result.RelatedQueries), 3)
	assert.Contains(t, result.RelatedQueries, "billing faq")
	assert.Contains(t, result.RelatedQueries, "kubernetes billing")
	assert.NotContains(t, result.RelatedQueries, "billing")

	fallback := mustSearch(t, svc, models.SearchRequest{Query: "templates"})
	assert.Equal(t, []string{"prompts"}, fallback.RelatedQueries)
}

func TestKnowledgeBaseService_RebuildIndex(t *testing.T) {
	svc, _ := newTestService(t, fixtures())
	before := svc.GetKnowledgeBaseAnalytics().Index

	stats := svc.RebuildIndex()
	assert.Equal(t, 3, stats.Documents)
	assert.Greater(t, stats.Generation, before.Generation)
	assert.False(t, stats.LastRebuildAt.Before(before.LastRebuildAt))
	assert.ElementsMatch(t, []string{"a1", "a2"}, resultIDs(mustSearch(t, svc, models.SearchRequest{Query: "billing"})))
}

func TestKnowledgeBaseService_Load(t *testing.T) {
	repo := new(MockArticleRepository)
	repo.On("ListArticles").Return(nil, errors.New("connection refused"))
	svc := NewKnowledgeBaseService(repo, nil, KnowledgeBaseOptions{})
	assert.Error(t, svc.Load())
}

func TestKnowledgeBaseService_SearchCache(t *testing.T) {
	t.Run("hit short-circuits the search", func(t *testing.T) {
		repo := new(MockArticleRepository)
		repo.On("ListArticles").Return(fixtures(), nil)
		searchCache := new(MockSearchCache)
		cached := &models.SearchResult{Total: 42, Articles: []models.SearchResultItem{}}
		searchCache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(cached, true, nil)

		svc := NewKnowledgeBaseService(repo, searchCache, KnowledgeBaseOptions{})
		require.NoError(t, svc.Load())

		result := mustSearch(t, svc, models.SearchRequest{Query: "billing"})
		assert.Same(t, cached, result)
		searchCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mutations change the cache generation", func(t *testing.T) {
		repo := new(MockArticleRepository)
		repo.On("ListArticles").Return(fixtures(), nil)
		repo.On("SaveArticle", mock.Anything, mock.Anything).Return(nil)
		searchCache := new(MockSearchCache)
		searchCache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, nil)
		searchCache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		svc := NewKnowledgeBaseService(repo, searchCache, KnowledgeBaseOptions{})
		require.NoError(t, svc.Load())

		mustSearch(t, svc, models.SearchRequest{Query: "notes"})
		_, err := svc.PublishArticle("a4")
		require.NoError(t, err)
		result := mustSearch(t, svc, models.SearchRequest{Query: "notes"})
		assert.Equal(t, 1, result.Total)

		var generations []uint64
		for _, call := range searchCache.Calls {
			if call.Method == "Set" {
				generations = append(generations, call.Arguments.Get(1).(uint64))
			}
		}
		require.Len(t, generations, 2)
		assert.NotEqual(t, generations[0], generations[1])
	})

	t.Run("cache errors fall back to computing", func(t *testing.T) {
		repo := new(MockArticleRepository)
		repo.On("ListArticles").Return(fixtures(), nil)
		searchCache := new(MockSearchCache)
		searchCache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
		searchCache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

		svc := NewKnowledgeBaseService(repo, searchCache, KnowledgeBaseOptions{})
		require.NoError(t, svc.Load())

		result := mustSearch(t, svc, models.SearchRequest{Query: "billing"})
		assert.Equal(t, 2, result.Total)
	})
}

func TestKnowledgeBaseService_ConcurrentSearchAndPublish(t *testing.T) {
	var corpus []*models.KnowledgeArticle
	for i := 0; i < 20; i++ {
		corpus = append(corpus, newArticle(fmt.Sprintf("c%02d", i), fmt.Sprintf("Concurrency note %d", i), models.CategoryBestPractices, models.ArticleStatusDraft, "concurrency"))
	}
	svc, _ := newTestService(t, corpus)

	var wg sync.WaitGroup
	for _, a := range corpus {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = svc.PublishArticle(id)
		}(a.ID)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				result, err := svc.Search(context.Background(), models.SearchRequest{Query: "concurrency", Pagination: models.Pagination{Limit: 100}})
				if assert.NoError(t, err) {
					assert.Equal(t, result.Total, len(result.Articles))
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, mustSearch(t, svc, models.SearchRequest{Query: "concurrency", Pagination: models.Pagination{Limit: 100}}).Total)
}
