package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openarklib/openark-server/internal/search"
	"github.com/openarklib/openark-server/internal/store"
)

// SearchService fronts the Bleve index. Incremental updates flow in from
// the store as books change; ReindexAll exists for startup and recovery.
type SearchService struct {
	index  *search.Index
	store  *store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.Index, store *store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a catalog query.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return s.index.Search(ctx, params)
}

// ReindexAll rebuilds the index from every book in the store. Run at
// startup so the index survives being deleted or falling out of sync.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	books, err := s.store.ListBooks(ctx, true)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	if err := s.index.IndexBooks(books); err != nil {
		return fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("Search index rebuilt", "books", len(books))
	return nil
}
