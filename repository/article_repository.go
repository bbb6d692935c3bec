package repository

import (
	"errors"
	"fmt"
	"time"

	"plateau/logging"
	"plateau/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository defines the persistence operations for knowledge articles
// and their version history, views and feedback.
type ArticleRepository interface {
	ListArticles() ([]*models.KnowledgeArticle, error)
	GetArticleByID(id string) (*models.KnowledgeArticle, error)
	CountArticles() (int64, error)
	CreateArticle(article *models.KnowledgeArticle) error
	SaveArticle(article *models.KnowledgeArticle, version *models.ArticleVersion) error // version may be nil
	DeleteArticle(id string) error
	GetVersions(articleID string) ([]*models.ArticleVersion, error)
	RecordView(view *models.ArticleView) error
	SaveFeedback(feedback *models.ArticleFeedback, stats models.ArticleFeedbackStats) error
}

type articleRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewArticleRepository creates a new instance of ArticleRepository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db, log: logging.Component("ArticleRepository")}
}

// ListArticles loads every article regardless of status.
func (r *articleRepository) ListArticles() ([]*models.KnowledgeArticle, error) {
	var articles []*models.KnowledgeArticle
	if err := r.db.Order("created_at asc, id asc").Find(&articles).Error; err != nil {
		r.log.Error().Err(err).Msg("failed to list articles")
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	r.log.Debug().Int("count", len(articles)).Msg("listed articles")
	return articles, nil
}

// GetArticleByID returns (nil, nil) when the article does not exist.
func (r *articleRepository) GetArticleByID(id string) (*models.KnowledgeArticle, error) {
	var article models.KnowledgeArticle
	err := r.db.First(&article, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug().Str("article_id", id).Msg("article not found")
			return nil, nil
		}
		r.log.Error().Err(err).Str("article_id", id).Msg("failed to retrieve article")
		return nil, fmt.Errorf("failed to retrieve article %s: %w", id, err)
	}
	return &article, nil
}

func (r *articleRepository) CountArticles() (int64, error) {
	var count int64
	if err := r.db.Model(&models.KnowledgeArticle{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// CreateArticle inserts a new article.
func (r *articleRepository) CreateArticle(article *models.KnowledgeArticle) error {
	if article == nil {
		return errors.New("article cannot be nil")
	}
	if article.ID == "" {
		return errors.New("article ID must be set before create")
	}
	if err := r.db.Create(article).Error; err != nil {
		r.log.Error().Err(err).Str("article_id", article.ID).Msg("failed to create article")
		return fmt.Errorf("failed to create article %s: %w", article.ID, err)
	}
	r.log.Info().Str("article_id", article.ID).Str("title", article.Title).Msg("created article")
	return nil
}

// SaveArticle upserts the full article, and the version snapshot if given, in
// one transaction.
func (r *articleRepository) SaveArticle(article *models.KnowledgeArticle, version *models.ArticleVersion) error {
	if article == nil {
		return errors.New("article cannot be nil")
	}
	if article.ID == "" {
		return errors.New("article ID must be provided for update")
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(article).Error
		if err != nil {
			return err
		}
		if version != nil {
			if err := tx.Create(version).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Str("article_id", article.ID).Msg("failed to save article")
		return fmt.Errorf("failed to save article %s: %w", article.ID, err)
	}
	r.log.Debug().Str("article_id", article.ID).Bool("versioned", version != nil).Msg("saved article")
	return nil
}

// DeleteArticle removes the article together with its history and engagement rows.
func (r *articleRepository) DeleteArticle(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.ArticleVersion{}, &models.ArticleView{}, &models.ArticleFeedback{}} {
			if err := tx.Where("article_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.KnowledgeArticle{}, "id = ?", id).Error
	})
	if err != nil {
		r.log.Error().Err(err).Str("article_id", id).Msg("failed to delete article")
		return fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	r.log.Info().Str("article_id", id).Msg("deleted article")
	return nil
}

// GetVersions returns the article's history, newest first.
func (r *articleRepository) GetVersions(articleID string) ([]*models.ArticleVersion, error) {
	var versions []*models.ArticleVersion
	err := r.db.Where("article_id = ?", articleID).Order("version desc").Find(&versions).Error
	if err != nil {
		r.log.Error().Err(err).Str("article_id", articleID).Msg("failed to retrieve versions")
		return nil, fmt.Errorf("failed to retrieve versions for article %s: %w", articleID, err)
	}
	return versions, nil
}

// RecordView stores the view event and bumps the article's counters in place.
func (r *articleRepository) RecordView(view *models.ArticleView) error {
	if view == nil || view.ArticleID == "" {
		return errors.New("view must reference an article")
	}
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now()
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(view).Error; err != nil {
			return err
		}
		return tx.Model(&models.KnowledgeArticle{}).
			Where("id = ?", view.ArticleID).
			UpdateColumns(map[string]interface{}{
				"analytics_total_views":    gorm.Expr("analytics_total_views + 1"),
				"analytics_last_viewed_at": view.ViewedAt,
			}).Error
	})
	if err != nil {
		r.log.Error().Err(err).Str("article_id", view.ArticleID).Msg("failed to record view")
		return fmt.Errorf("failed to record view for article %s: %w", view.ArticleID, err)
	}
	return nil
}

// SaveFeedback stores the submission and overwrites the article's aggregated
// feedback columns with stats.
func (r *articleRepository) SaveFeedback(feedback *models.ArticleFeedback, stats models.ArticleFeedbackStats) error {
	if feedback == nil || feedback.ArticleID == "" {
		return errors.New("feedback must reference an article")
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(feedback).Error; err != nil {
			return err
		}
		return tx.Model(&models.KnowledgeArticle{}).
			Where("id = ?", feedback.ArticleID).
			UpdateColumns(map[string]interface{}{
				"feedback_average_rating":    stats.AverageRating,
				"feedback_total_ratings":     stats.TotalRatings,
				"feedback_helpful_count":     stats.HelpfulCount,
				"feedback_not_helpful_count": stats.NotHelpfulCount,
			}).Error
	})
	if err != nil {
		r.log.Error().Err(err).Str("article_id", feedback.ArticleID).Msg("failed to save feedback")
		return fmt.Errorf("failed to save feedback for article %s: %w", feedback.ArticleID, err)
	}
	return nil
}
