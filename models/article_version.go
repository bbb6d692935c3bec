package models

import "time"

// ArticleVersion is a snapshot written whenever an article's body changes.
type ArticleVersion struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ArticleID  string    `gorm:"type:varchar(36);index;not null" json:"articleId"`
	Version    int       `gorm:"not null" json:"version"`
	Title      string    `json:"title"`
	Summary    string    `gorm:"type:text" json:"summary"`
	Content    string    `gorm:"type:text" json:"content"`
	EditedBy   string    `json:"editedBy,omitempty"`
	ChangeNote string    `json:"changeNote,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for the ArticleVersion model.
func (ArticleVersion) TableName() string {
	return "article_versions"
}
