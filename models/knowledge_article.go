package models

import (
	"time"

	"gorm.io/datatypes"
)

// ArticleStatus defines the editorial state of a knowledge article.
type ArticleStatus string

const (
	ArticleStatusDraft       ArticleStatus = "draft"
	ArticleStatusInReview    ArticleStatus = "in_review"
	ArticleStatusPublished   ArticleStatus = "published" // Only published articles are indexed and searchable
	ArticleStatusArchived    ArticleStatus = "archived"
	ArticleStatusNeedsUpdate ArticleStatus = "needs_update"
)

// Valid reports whether s is one of the known statuses.
func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusInReview, ArticleStatusPublished, ArticleStatusArchived, ArticleStatusNeedsUpdate:
		return true
	}
	return false
}

// ArticleVisibility defines who may read an article.
type ArticleVisibility string

const (
	VisibilityPublic        ArticleVisibility = "public"
	VisibilityAuthenticated ArticleVisibility = "authenticated"
	VisibilityPremium       ArticleVisibility = "premium"
	VisibilityInternal      ArticleVisibility = "internal"
)

// Difficulty is the reading level of an article.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ArticleMetadata holds descriptive attributes that are not part of the body.
type ArticleMetadata struct {
	Difficulty  Difficulty `gorm:"type:varchar(20);default:'beginner'" json:"difficulty"`
	Author      string     `json:"author,omitempty"`
	ReadingTime int        `json:"readingTime"` // minutes
}

// ArticleFeedbackStats aggregates reader feedback. AverageRating is a running average.
type ArticleFeedbackStats struct {
	AverageRating   float64 `gorm:"default:0" json:"averageRating"`
	TotalRatings    int     `gorm:"default:0" json:"totalRatings"`
	HelpfulCount    int     `gorm:"default:0" json:"helpfulCount"`
	NotHelpfulCount int     `gorm:"default:0" json:"notHelpfulCount"`
}

// ArticleAnalytics holds view counters.
type ArticleAnalytics struct {
	TotalViews   int        `gorm:"default:0" json:"totalViews"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
}

// KnowledgeArticle represents an article in the knowledge base.
type KnowledgeArticle struct {
	ID          string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string                      `gorm:"not null" json:"title"`
	Summary     string                      `gorm:"type:text" json:"summary"`
	Content     string                      `gorm:"type:text" json:"content"`
	Category    ArticleCategory             `gorm:"type:varchar(50);index" json:"category"`
	Subcategory string                      `json:"subcategory,omitempty"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Status      ArticleStatus               `gorm:"type:varchar(20);index;default:'draft';not null" json:"status"`
	Visibility  ArticleVisibility           `gorm:"type:varchar(20);default:'public'" json:"visibility"`
	Language    string                      `gorm:"type:varchar(10);default:'en'" json:"language"`
	Metadata    ArticleMetadata             `gorm:"embedded;embeddedPrefix:meta_" json:"metadata"`
	Feedback    ArticleFeedbackStats        `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`
	Analytics   ArticleAnalytics            `gorm:"embedded;embeddedPrefix:analytics_" json:"analytics"`
	Version     int                         `gorm:"default:1" json:"version"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
	PublishedAt *time.Time                  `json:"publishedAt,omitempty"`
}

// TableName specifies the table name for the KnowledgeArticle model.
func (KnowledgeArticle) TableName() string {
	return "knowledge_articles"
}

// IsPublished reports whether the article is visible to search.
func (a *KnowledgeArticle) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// Clone returns a deep copy so callers never share the tag slice or timestamps
// with the service's working set.
func (a *KnowledgeArticle) Clone() *KnowledgeArticle {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tags != nil {
		c.Tags = append(datatypes.JSONSlice[string]{}, a.Tags...)
	}
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		c.PublishedAt = &t
	}
	if a.Analytics.LastViewedAt != nil {
		t := *a.Analytics.LastViewedAt
		c.Analytics.LastViewedAt = &t
	}
	return &c
}

// ArticleInput is the payload for creating an article.
type ArticleInput struct {
	Title       string            `json:"title" binding:"required"`
	Summary     string            `json:"summary"`
	Content     string            `json:"content"`
	Category    ArticleCategory   `json:"category" binding:"required"`
	Subcategory string            `json:"subcategory"`
	Tags        []string          `json:"tags"`
	Status      ArticleStatus     `json:"status"`
	Visibility  ArticleVisibility `json:"visibility"`
	Language    string            `json:"language"`
	Difficulty  Difficulty        `json:"difficulty"`
	Author      string            `json:"author"`
}

// ArticlePatch is a partial update. Nil fields are left untouched.
type ArticlePatch struct {
	Title       *string            `json:"title"`
	Summary     *string            `json:"summary"`
	Content     *string            `json:"content"`
	Category    *ArticleCategory   `json:"category"`
	Subcategory *string            `json:"subcategory"`
	Tags        *[]string          `json:"tags"`
	Status      *ArticleStatus     `json:"status"`
	Visibility  *ArticleVisibility `json:"visibility"`
	Language    *string            `json:"language"`
	Difficulty  *Difficulty        `json:"difficulty"`
	Author      *string            `json:"author"`
	EditedBy    string             `json:"editedBy"`
	ChangeNote  string             `json:"changeNote"`
}
