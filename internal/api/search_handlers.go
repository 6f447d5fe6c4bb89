package api

import (
	"net/http"
	"strconv"

	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/normalize"
	"github.com/openarklib/openark-server/internal/search"
)

// handleSearch runs a catalog search.
//
// Query parameters: q (text), categories (comma separated), min_year,
// max_year, include_archived, limit, offset, sort (relevance, title,
// author, recent), order (asc, desc).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := search.DefaultParams()
	params.Query = q.Get("q")
	params.Categories = normalize.SplitCategories(q.Get("categories"))

	if raw := q.Get("min_year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			params.MinYear = year
		}
	}
	if raw := q.Get("max_year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			params.MaxYear = year
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 100 {
			params.Limit = limit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}
	if sortBy := q.Get("sort"); sortBy != "" {
		params.SortBy = sortBy
	}
	if order := q.Get("order"); order != "" {
		params.SortOrder = order
	}

	// Only roles that can list archived books may search them.
	if q.Get("include_archived") == "true" {
		user := currentUser(r.Context())
		params.IncludeArchived = allowed(opBookListArchived, user.Role)
	}

	result, err := s.searchService.Search(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
