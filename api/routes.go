package api

import (
	"plateau/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middlewares and all routes.
func NewRouter(handler *APIHandler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.SetTrustedProxies(nil)
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Cors())
	RegisterRoutes(r, handler)
	return r
}

// RegisterRoutes mounts the knowledge base API under /api/kb.
func RegisterRoutes(r *gin.Engine, handler *APIHandler) {
	r.GET("/healthz", handler.HealthHandler)

	kb := r.Group("/api/kb")
	{
		kb.GET("/search", handler.SearchHandler)
		kb.POST("/search", handler.SearchPostHandler)

		articles := kb.Group("/articles")
		{
			articles.POST("", handler.CreateArticleHandler)
			articles.GET("/:id", handler.GetArticleHandler)
			articles.PATCH("/:id", handler.UpdateArticleHandler)
			articles.DELETE("/:id", handler.DeleteArticleHandler)
			articles.GET("/:id/versions", handler.GetArticleVersionsHandler)
			articles.GET("/:id/suggested", handler.GetSuggestedArticlesHandler)
			articles.POST("/:id/publish", handler.PublishArticleHandler)
			articles.POST("/:id/archive", handler.ArchiveArticleHandler)
			articles.POST("/:id/views", handler.RecordViewHandler)
			articles.POST("/:id/feedback", handler.RecordFeedbackHandler)
		}

		kb.GET("/categories", handler.GetCategoriesHandler)
		kb.GET("/categories/:category/articles", handler.GetArticlesByCategoryHandler)
		kb.GET("/popular", handler.GetPopularArticlesHandler)
		kb.GET("/recent", handler.GetRecentArticlesHandler)
		kb.GET("/analytics", handler.GetAnalyticsHandler)
		kb.POST("/index/rebuild", handler.RebuildIndexHandler)
	}
}
