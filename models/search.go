package models

import "time"

// SortField selects the ordering of search results.
type SortField string

const (
	SortByRelevance SortField = "relevance"
	SortByDate      SortField = "date"
	SortByRating    SortField = "rating"
	SortByViews     SortField = "views"
	SortByTitle     SortField = "title"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// SearchFilters narrows a search. Every field is optional; set fields are ANDed.
type SearchFilters struct {
	Categories   []ArticleCategory `json:"categories,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Difficulties []Difficulty      `json:"difficulties,omitempty"`
	Visibility   ArticleVisibility `json:"visibility,omitempty"`
	MinRating    *float64          `json:"minRating,omitempty"`
}

// SortOptions selects the result ordering. An empty Order means the field's default.
type SortOptions struct {
	Field SortField `json:"field"`
	Order SortOrder `json:"order,omitempty"`
}

// Pagination is 1-indexed.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// SearchRequest bundles the arguments of a search.
type SearchRequest struct {
	Query      string        `json:"query"`
	Filters    SearchFilters `json:"filters"`
	Sort       SortOptions   `json:"sort"`
	Pagination Pagination    `json:"pagination"`
}

// SearchResultItem is a trimmed article plus match information.
type SearchResultItem struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Summary        string            `json:"summary"`
	Category       ArticleCategory   `json:"category"`
	Subcategory    string            `json:"subcategory,omitempty"`
	Tags           []string          `json:"tags"`
	Difficulty     Difficulty        `json:"difficulty"`
	Visibility     ArticleVisibility `json:"visibility"`
	Language       string            `json:"language"`
	AverageRating  float64           `json:"averageRating"`
	TotalViews     int               `json:"totalViews"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	PublishedAt    *time.Time        `json:"publishedAt,omitempty"`
	RelevanceScore int               `json:"relevanceScore"`
	Highlights     []string          `json:"highlights"`
}

// FacetCount is one bucket of a facet.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchFacets are count breakdowns over the filtered, pre-pagination result set.
type SearchFacets struct {
	Categories   []FacetCount `json:"categories"`
	Tags         []FacetCount `json:"tags"`
	Difficulties []FacetCount `json:"difficulties"`
	Languages    []FacetCount `json:"languages"`
}

// SearchResult is the response of a search.
type SearchResult struct {
	Articles       []SearchResultItem `json:"articles"`
	Total          int                `json:"total"`
	Page           int                `json:"page"`
	Limit          int                `json:"limit"`
	TotalPages     int                `json:"totalPages"`
	SearchTimeMs   float64            `json:"searchTime"`
	Suggestions    []string           `json:"suggestions"`
	Facets         SearchFacets       `json:"facets"`
	RelatedQueries []string           `json:"relatedQueries"`
}
