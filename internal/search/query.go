package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a catalog search.
type Params struct {
	Query string // User's search text

	// Filters
	Categories      []string // Exact category names, OR across values
	MinYear         int
	MaxYear         int
	IncludeArchived bool

	// Pagination
	Limit  int
	Offset int

	// Sorting: "relevance", "title", "author", "recent"
	SortBy    string
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool
	Highlight     bool
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// Result represents one page of search results.
type Result struct {
	Query  string  `json:"query"`
	Total  uint64  `json:"total"`
	TookMs int64   `json:"took_ms"`
	Hits   []Hit   `json:"hits"`
	Facets *Facets `json:"facets,omitempty"`
}

// Hit represents a single matched book.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author,omitempty"`
	Publisher  string            `json:"publisher,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Year       int               `json:"year,omitempty"`
	PageCount  int               `json:"page_count,omitempty"`
	Archived   bool              `json:"archived"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Facets contains facet counts for the result set.
type Facets struct {
	Categories []FacetCount `json:"categories,omitempty"`
	Authors    []FacetCount `json:"authors,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a catalog search.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("categories", bleve.NewFacetRequest("categories", 20))
		searchRequest.AddFacet("author", bleve.NewFacetRequest("author", 20))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{
		"id", "title", "author", "publisher", "categories",
		"year", "page_count", "archived",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if a, ok := hit.Fields["author"].(string); ok {
			h.Author = a
		}
		if p, ok := hit.Fields["publisher"].(string); ok {
			h.Publisher = p
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			h.Year = int(y)
		}
		if pc, ok := hit.Fields["page_count"].(float64); ok {
			h.PageCount = int(pc)
		}
		if arch, ok := hit.Fields["archived"].(bool); ok {
			h.Archived = arch
		}
		// Stored multi-value fields come back as string or []interface{}
		// depending on cardinality.
		switch cats := hit.Fields["categories"].(type) {
		case string:
			h.Categories = []string{cats}
		case []interface{}:
			for _, c := range cats {
				if cs, ok := c.(string); ok {
					h.Categories = append(h.Categories, cs)
				}
			}
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		publisherMatch := bleve.NewMatchQuery(params.Query)
		publisherMatch.SetField("publisher")
		textQueries = append(textQueries, publisherMatch)

		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)
		textQueries = append(textQueries, descMatch)

		// Typo tolerance on the title.
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for find-as-you-type (minimum 2 chars).
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Categories) > 0 {
		categoryQueries := make([]query.Query, len(params.Categories))
		for i, cat := range params.Categories {
			cq := bleve.NewTermQuery(cat)
			cq.SetField("categories")
			categoryQueries[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(categoryQueries...))
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		min := float64(params.MinYear)
		max := float64(params.MaxYear)
		if params.MaxYear == 0 {
			max = 3000
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("year")
		queries = append(queries, rangeQuery)
	}

	// Archived books stay out of results unless asked for.
	if !params.IncludeArchived {
		archived := false
		archivedQuery := bleve.NewBoolFieldQuery(archived)
		archivedQuery.SetField("archived")
		queries = append(queries, archivedQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "author":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-author", "-title"})
		} else {
			req.SortBy([]string{"author", "title"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) *Facets {
	facets := &Facets{}

	if catFacet, ok := result.Facets["categories"]; ok {
		for _, term := range catFacet.Terms.Terms() {
			facets.Categories = append(facets.Categories, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if authorFacet, ok := result.Facets["author"]; ok {
		for _, term := range authorFacet.Terms.Terms() {
			facets.Authors = append(facets.Authors, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}
