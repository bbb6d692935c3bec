package search

import (
	"sort"

	"plateau/models"
)

// MaxTagFacets caps the tag facet to the most frequent tags.
const MaxTagFacets = 10

// Facets counts categories, tags, difficulties and languages over articles.
func Facets(articles []*models.KnowledgeArticle) models.SearchFacets {
	categories := make(map[string]int)
	tags := make(map[string]int)
	difficulties := make(map[string]int)
	languages := make(map[string]int)

	for _, a := range articles {
		categories[string(a.Category)]++
		for _, t := range a.Tags {
			tags[t]++
		}
		difficulties[string(a.Metadata.Difficulty)]++
		languages[a.Language]++
	}

	return models.SearchFacets{
		Categories:   rankFacet(categories, 0),
		Tags:         rankFacet(tags, MaxTagFacets),
		Difficulties: rankFacet(difficulties, 0),
		Languages:    rankFacet(languages, 0),
	}
}

// FacetsForHits is Facets over the articles of hits.
func FacetsForHits(hits []Hit) models.SearchFacets {
	articles := make([]*models.KnowledgeArticle, len(hits))
	for i, h := range hits {
		articles[i] = h.Article
	}
	return Facets(articles)
}

// rankFacet orders buckets by count desc then value asc; limit <= 0 keeps all.
func rankFacet(counts map[string]int, limit int) []models.FacetCount {
	out := make([]models.FacetCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, models.FacetCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
