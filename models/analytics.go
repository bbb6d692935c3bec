package models

import "time"

// ArticleStat is a compact article reference used in analytics listings.
type ArticleStat struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Category      ArticleCategory `json:"category"`
	TotalViews    int             `json:"totalViews"`
	AverageRating float64         `json:"averageRating"`
}

// QueryStat counts how often a query was issued.
type QueryStat struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// SearchStats summarises the search log.
type SearchStats struct {
	TotalSearches        int         `json:"totalSearches"`
	ZeroResultSearches   int         `json:"zeroResultSearches"`
	TopQueries           []QueryStat `json:"topQueries"`
	TopZeroResultQueries []QueryStat `json:"topZeroResultQueries"`
}

// IndexStats describes the inverted index.
type IndexStats struct {
	Tokens        int       `json:"tokens"`
	Documents     int       `json:"documents"`
	LastRebuildAt time.Time `json:"lastRebuildAt"`
	Generation    uint64    `json:"generation"`
}

// KnowledgeBaseAnalytics is the dashboard summary of the knowledge base.
type KnowledgeBaseAnalytics struct {
	TotalArticles     int                     `json:"totalArticles"`
	PublishedArticles int                     `json:"publishedArticles"`
	ByStatus          map[ArticleStatus]int   `json:"byStatus"`
	ByCategory        map[ArticleCategory]int `json:"byCategory"`
	TotalViews        int                     `json:"totalViews"`
	TotalRatings      int                     `json:"totalRatings"`
	AverageRating     float64                 `json:"averageRating"`
	HelpfulCount      int                     `json:"helpfulCount"`
	NotHelpfulCount   int                     `json:"notHelpfulCount"`
	TopArticles       []ArticleStat           `json:"topArticles"`
	TopRated          []ArticleStat           `json:"topRated"`
	NeedsAttention    []ArticleStat           `json:"needsAttention"`
	Search            SearchStats             `json:"search"`
	Index             IndexStats              `json:"index"`
}
