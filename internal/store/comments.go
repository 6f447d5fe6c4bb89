package store

import (
	"context"

	"github.com/openarklib/openark-server/internal/domain"
)

// initComments initializes the Comments entity on the store.
// The book index value is suffixed with the comment ID so multiple comments
// on the same book never collide on a single index key; lookups go through
// a prefix scan on the book ID.
func (s *Store) initComments() {
	s.Comments = NewEntity[domain.Comment](s, "comment:").
		WithIndex("book", func(c *domain.Comment) []string {
			return []string{c.BookID + ":" + c.ID}
		})
}

// ListCommentsByBook returns all comments attached to a book.
func (s *Store) ListCommentsByBook(ctx context.Context, bookID string) ([]*domain.Comment, error) {
	return s.Comments.ListByIndex(ctx, "book", bookID+":")
}
