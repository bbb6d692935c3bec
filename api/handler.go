package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"plateau/models"
	"plateau/services"
	"plateau/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	kb services.KnowledgeBaseService
	db *gorm.DB // optional, used by the health check
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(kb services.KnowledgeBaseService, db *gorm.DB) *APIHandler {
	return &APIHandler{kb: kb, db: db}
}

// ArticleDetail is an article with its markdown body rendered to HTML.
type ArticleDetail struct {
	*models.KnowledgeArticle
	ContentHTML string `json:"contentHtml"`
}

// SearchHandler runs a search described by query parameters:
// q, category, tags, difficulty (comma separated or repeated), visibility,
// minRating, sortBy, sortOrder, page and limit.
func (h *APIHandler) SearchHandler(c *gin.Context) {
	req := models.SearchRequest{
		Query: c.Query("q"),
		Filters: models.SearchFilters{
			Tags:       splitList(c.QueryArray("tags")),
			Visibility: models.ArticleVisibility(c.Query("visibility")),
		},
		Sort: models.SortOptions{
			Field: models.SortField(c.Query("sortBy")),
			Order: models.SortOrder(c.Query("sortOrder")),
		},
		Pagination: models.Pagination{
			Page:  utils.ParseIntDefault(c.Query("page"), 1),
			Limit: utils.ParseIntDefault(c.Query("limit"), 0),
		},
	}
	for _, v := range splitList(c.QueryArray("category")) {
		req.Filters.Categories = append(req.Filters.Categories, models.ArticleCategory(v))
	}
	for _, v := range splitList(c.QueryArray("difficulty")) {
		req.Filters.Difficulties = append(req.Filters.Difficulties, models.Difficulty(v))
	}
	if raw := c.Query("minRating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.SendJSONError(c, http.StatusBadRequest, "minRating must be a number.", err)
			return
		}
		req.Filters.MinRating = &minRating
	}
	h.search(c, req)
}

// SearchPostHandler runs a search described by a JSON SearchRequest body.
func (h *APIHandler) SearchPostHandler(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	h.search(c, req)
}

func (h *APIHandler) search(c *gin.Context, req models.SearchRequest) {
	result, err := h.kb.Search(c.Request.Context(), req)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Search failed.", err)
		return
	}
	utils.SendJSONSuccess(c, result)
}

// GetArticleHandler returns one article with rendered HTML.
func (h *APIHandler) GetArticleHandler(c *gin.Context) {
	article := h.kb.GetArticleByID(c.Param("id"))
	if article == nil {
		utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
		return
	}
	html, err := utils.RenderMarkdown(article.Content)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to render article.", err)
		return
	}
	utils.SendJSONSuccess(c, ArticleDetail{KnowledgeArticle: article, ContentHTML: html})
}

// GetArticleVersionsHandler returns the article's edit history, newest first.
func (h *APIHandler) GetArticleVersionsHandler(c *gin.Context) {
	id := c.Param("id")
	if h.kb.GetArticleByID(id) == nil {
		utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
		return
	}
	versions, err := h.kb.GetArticleVersions(id)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to load article history.", err)
		return
	}
	utils.SendJSONSuccess(c, versions)
}

// GetSuggestedArticlesHandler returns articles related to the given one.
func (h *APIHandler) GetSuggestedArticlesHandler(c *gin.Context) {
	id := c.Param("id")
	if h.kb.GetArticleByID(id) == nil {
		utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
		return
	}
	utils.SendJSONSuccess(c, h.kb.GetSuggestedArticles(id, utils.ParseIntDefault(c.Query("limit"), 0)))
}

// CreateArticleHandler creates a draft article (or one in the given status).
func (h *APIHandler) CreateArticleHandler(c *gin.Context) {
	var input models.ArticleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	id, err := h.kb.CreateArticle(input)
	if err != nil {
		if isValidationError(err) {
			utils.SendJSONError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to create article.", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "success",
		"data":    gin.H{"id": id},
	})
}

// UpdateArticleHandler applies a partial update.
func (h *APIHandler) UpdateArticleHandler(c *gin.Context) {
	var patch models.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	ok, err := h.kb.UpdateArticle(c.Param("id"), patch)
	h.respondMutation(c, ok, err)
}

// PublishArticleHandler makes an article searchable.
func (h *APIHandler) PublishArticleHandler(c *gin.Context) {
	ok, err := h.kb.PublishArticle(c.Param("id"))
	h.respondMutation(c, ok, err)
}

// ArchiveArticleHandler removes an article from search.
func (h *APIHandler) ArchiveArticleHandler(c *gin.Context) {
	ok, err := h.kb.ArchiveArticle(c.Param("id"))
	h.respondMutation(c, ok, err)
}

// DeleteArticleHandler deletes an article and its history.
func (h *APIHandler) DeleteArticleHandler(c *gin.Context) {
	ok, err := h.kb.DeleteArticle(c.Param("id"))
	h.respondMutation(c, ok, err)
}

// respondMutation maps a (success, error) pair from the service: false
// without an error means the article does not exist.
func (h *APIHandler) respondMutation(c *gin.Context, ok bool, err error) {
	if err != nil {
		if isValidationError(err) {
			utils.SendJSONError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to update article.", err)
		return
	}
	if !ok {
		utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
		return
	}
	utils.SendJSONSuccess(c, h.kb.GetArticleByID(c.Param("id")))
}

// RecordViewHandler counts a view. The body is optional.
func (h *APIHandler) RecordViewHandler(c *gin.Context) {
	var event models.ViewEvent
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&event); err != nil {
			utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
			return
		}
	}
	id := c.Param("id")
	if h.kb.GetArticleByID(id) == nil {
		utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
		return
	}
	h.kb.RecordView(id, event)
	utils.SendJSONSuccess(c, gin.H{"recorded": true})
}

// RecordFeedbackHandler applies a helpful vote and/or rating.
func (h *APIHandler) RecordFeedbackHandler(c *gin.Context) {
	var input models.FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Invalid request format.", err)
		return
	}
	id := c.Param("id")
	ok, err := h.kb.RecordFeedback(id, input)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, "Failed to record feedback.", err)
		return
	}
	if !ok {
		if h.kb.GetArticleByID(id) == nil {
			utils.SendJSONError(c, http.StatusNotFound, "Article not found.", nil)
			return
		}
		utils.SendJSONError(c, http.StatusBadRequest, "Rating must be between 1 and 5.", nil)
		return
	}
	article := h.kb.GetArticleByID(id)
	utils.SendJSONSuccess(c, article.Feedback)
}

// GetCategoriesHandler lists categories with published article counts.
func (h *APIHandler) GetCategoriesHandler(c *gin.Context) {
	utils.SendJSONSuccess(c, h.kb.GetCategories())
}

// GetArticlesByCategoryHandler lists the published articles of a category.
func (h *APIHandler) GetArticlesByCategoryHandler(c *gin.Context) {
	category := models.ArticleCategory(c.Param("category"))
	visibility := models.ArticleVisibility(c.Query("visibility"))
	utils.SendJSONSuccess(c, h.kb.GetArticlesByCategory(category, visibility))
}

// GetPopularArticlesHandler lists the most viewed articles.
func (h *APIHandler) GetPopularArticlesHandler(c *gin.Context) {
	utils.SendJSONSuccess(c, h.kb.GetPopularArticles(utils.ParseIntDefault(c.Query("limit"), 0)))
}

// GetRecentArticlesHandler lists the most recently published articles.
func (h *APIHandler) GetRecentArticlesHandler(c *gin.Context) {
	utils.SendJSONSuccess(c, h.kb.GetRecentArticles(utils.ParseIntDefault(c.Query("limit"), 0)))
}

// GetAnalyticsHandler returns the knowledge base dashboard summary.
func (h *APIHandler) GetAnalyticsHandler(c *gin.Context) {
	utils.SendJSONSuccess(c, h.kb.GetKnowledgeBaseAnalytics())
}

// RebuildIndexHandler forces a full index rebuild.
func (h *APIHandler) RebuildIndexHandler(c *gin.Context) {
	utils.SendJSONSuccess(c, h.kb.RebuildIndex())
}

// HealthHandler reports database reachability.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.SendJSONError(c, http.StatusServiceUnavailable, "Database unavailable.", err)
			return
		}
	}
	utils.SendJSONSuccess(c, gin.H{"status": "ok"})
}

func isValidationError(err error) bool {
	return errors.Is(err, services.ErrInvalidCategory) || errors.Is(err, services.ErrInvalidStatus)
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
