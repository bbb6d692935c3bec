package models

import "time"

// ViewSource identifies where a reader opened an article from.
type ViewSource string

const (
	ViewSourceSearch    ViewSource = "search"
	ViewSourceDirect    ViewSource = "direct"
	ViewSourceCategory  ViewSource = "category"
	ViewSourceSuggested ViewSource = "suggested"
)

// ViewEvent is the input to RecordView.
type ViewEvent struct {
	UserID    string     `json:"userId"`
	Source    ViewSource `json:"source"`
	SessionID string     `json:"sessionId"`
}

// ArticleView is a persisted view event.
type ArticleView struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	ArticleID string     `gorm:"type:varchar(36);index;not null" json:"articleId"`
	UserID    string     `gorm:"index" json:"userId,omitempty"`
	SessionID string     `json:"sessionId"`
	Source    ViewSource `gorm:"type:varchar(20)" json:"source"`
	ViewedAt  time.Time  `gorm:"autoCreateTime" json:"viewedAt"`
}

// TableName specifies the table name for the ArticleView model.
func (ArticleView) TableName() string {
	return "article_views"
}

// FeedbackInput is the input to RecordFeedback. All fields are optional.
type FeedbackInput struct {
	Helpful *bool  `json:"helpful"`
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
	UserID  string `json:"userId"`
}

// ArticleFeedback is a persisted feedback submission.
type ArticleFeedback struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ArticleID string    `gorm:"type:varchar(36);index;not null" json:"articleId"`
	UserID    string    `json:"userId,omitempty"`
	Helpful   *bool     `json:"helpful,omitempty"`
	Rating    *int      `json:"rating,omitempty"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for the ArticleFeedback model.
func (ArticleFeedback) TableName() string {
	return "article_feedback"
}
