package search

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarklib/openark-server/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx, err := NewIndex(Options{Path: filepath.Join(t.TempDir(), "search.bleve"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func catalogBook(id, title, author string, categories []string, archived bool) *domain.Book {
	b := &domain.Book{
		Entity:     domain.Entity{ID: id},
		Title:      title,
		Author:     author,
		Categories: categories,
		Archived:   archived,
		Pages:      []domain.Page{{Text: "body"}},
	}
	b.InitTimestamps()
	return b
}

func seedCatalog(t *testing.T, idx *Index) {
	t.Helper()

	require.NoError(t, idx.IndexBooks([]*domain.Book{
		catalogBook("bk-tidal", "A Field Guide to Tidal Pools", "M. Okafor", []string{"Nature"}, false),
		catalogBook("bk-stars", "Letters from the Observatory", "E. Castellan", []string{"Science"}, false),
		catalogBook("bk-atlas", "Withdrawn Atlas of the Coast", "M. Okafor", []string{"Maps"}, true),
	}))
}

func TestIndex_SearchByTitle(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Query: "tidal", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "bk-tidal", result.Hits[0].ID)
	assert.Equal(t, "A Field Guide to Tidal Pools", result.Hits[0].Title)
}

func TestIndex_SearchByAuthor(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Query: "Castellan", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "bk-stars", result.Hits[0].ID)
}

func TestIndex_FuzzyMatchToleratesTypo(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Query: "tidel", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits, "one-character typos still find the book")
	assert.Equal(t, "bk-tidal", result.Hits[0].ID)
}

func TestIndex_ArchivedExcludedByDefault(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Query: "Okafor", Limit: 10})
	require.NoError(t, err)
	for _, hit := range result.Hits {
		assert.NotEqual(t, "bk-atlas", hit.ID)
	}

	t.Run("included when asked", func(t *testing.T) {
		result, err := idx.Search(context.Background(), Params{Query: "Okafor", Limit: 10, IncludeArchived: true})
		require.NoError(t, err)

		var ids []string
		for _, hit := range result.Hits {
			ids = append(ids, hit.ID)
		}
		assert.Contains(t, ids, "bk-atlas")
	})
}

func TestIndex_CategoryFilter(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Categories: []string{"Science"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "bk-stars", result.Hits[0].ID)
}

func TestIndex_EmptyQueryMatchesAll(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total, "archived book stays hidden")
}

func TestIndex_Facets(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	result, err := idx.Search(context.Background(), Params{Limit: 10, IncludeFacets: true})
	require.NoError(t, err)
	require.NotNil(t, result.Facets)

	var values []string
	for _, f := range result.Facets.Categories {
		values = append(values, f.Value)
	}
	assert.Contains(t, values, "Nature")
	assert.Contains(t, values, "Science")
}

func TestIndex_DeleteBook(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	require.NoError(t, idx.DeleteBook(context.Background(), "bk-tidal"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndex_IndexBookReplaces(t *testing.T) {
	idx := newTestIndex(t)

	book := catalogBook("bk-1", "Old Title", "A", nil, false)
	require.NoError(t, idx.IndexBook(context.Background(), book))

	book.Title = "Completely New Title"
	require.NoError(t, idx.IndexBook(context.Background(), book))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := idx.Search(context.Background(), Params{Query: "completely", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)
}

func TestIndex_RebuildStartsEmpty(t *testing.T) {
	idx := newTestIndex(t)
	seedCatalog(t, idx)

	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_MappingVersionForcesRebuild(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	path := filepath.Join(dir, "search.bleve")

	idx, err := NewIndex(Options{Path: path, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, idx.IndexBook(context.Background(), catalogBook("bk-1", "Kept", "A", nil, false)))
	require.NoError(t, idx.Close())

	// Pretend the index was built with an older mapping.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0o644))

	idx, err = NewIndex(Options{Path: path, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count, "stale mapping versions start over")

	version, err := os.ReadFile(filepath.Join(dir, "search.version"))
	require.NoError(t, err)
	assert.Equal(t, mappingVersion, string(version))
}

func TestBookToDocument(t *testing.T) {
	book := catalogBook("bk-1", "Tidal Pools", "M. Okafor", []string{"Nature"}, false)
	book.Year = 1998
	book.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := BookToDocument(book)
	assert.Equal(t, "bk-1", doc.ID)
	assert.Equal(t, 1, doc.PageCount)
	assert.Equal(t, 1998, doc.Year)
	assert.Equal(t, book.CreatedAt.UnixMilli(), doc.CreatedAt)

	m := doc.ToMap()
	assert.Equal(t, "Tidal Pools", m["title"])
	_, hasPublisher := m["publisher"]
	assert.False(t, hasPublisher, "empty optional fields stay out of the map")
}
