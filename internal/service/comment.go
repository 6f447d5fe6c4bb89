package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/id"
	"github.com/openarklib/openark-server/internal/normalize"
	"github.com/openarklib/openark-server/internal/sse"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/validation"
)

// CommentService handles reader comments on books. Comments are broadcast
// to the book's SSE room so readers on the same page see them live.
type CommentService struct {
	store     *store.Store
	events    store.EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCommentService creates a new comment service.
func NewCommentService(store *store.Store, events store.EventEmitter, validator *validation.Validator, logger *slog.Logger) *CommentService {
	return &CommentService{
		store:     store,
		events:    events,
		validator: validator,
		logger:    logger,
	}
}

// CreateCommentRequest carries a new comment's text.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// Create attaches a comment to a book. The author's display name is
// denormalized onto the comment so listing never needs user lookups.
func (s *CommentService) Create(ctx context.Context, actor *domain.User, bookID string, req CreateCommentRequest) (*domain.Comment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	text := normalize.String(req.Text)
	if text == "" {
		return nil, domainerrors.Validation("comment text must not be empty")
	}

	// The book must exist; commenting on archived books is allowed since
	// they remain readable.
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %s not found", bookID)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	comment := &domain.Comment{
		Entity: domain.Entity{
			ID: id.MustGenerate(id.PrefixComment),
		},
		BookID:   bookID,
		UserID:   actor.ID,
		UserName: actor.Name,
		Text:     text,
	}
	comment.InitTimestamps()

	if err := s.store.Comments.Create(ctx, comment.ID, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.events.Emit(sse.NewCommentCreatedEvent(bookID, comment))

	s.logger.Info("Comment created",
		"comment_id", comment.ID,
		"book_id", bookID,
		"user_id", actor.ID,
	)
	return comment, nil
}

// ListByBook returns a book's comments oldest first, the order a
// conversation reads in.
func (s *CommentService) ListByBook(ctx context.Context, bookID string) ([]*domain.Comment, error) {
	comments, err := s.store.ListCommentsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// Delete removes a comment. Authors may delete their own; librarians and
// admins may delete anyone's.
func (s *CommentService) Delete(ctx context.Context, actor *domain.User, commentID string) error {
	comment, err := s.store.Comments.Get(ctx, commentID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			// Idempotent; the end state is the same.
			return nil
		}
		return fmt.Errorf("get comment: %w", err)
	}

	if comment.UserID != actor.ID && !actor.CanManageBooks() && !actor.IsAdmin() {
		return domainerrors.Forbidden("you may only delete your own comments")
	}

	if err := s.store.Comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	s.events.Emit(sse.NewCommentDeletedEvent(comment.BookID, commentID))

	s.logger.Info("Comment deleted",
		"comment_id", commentID,
		"book_id", comment.BookID,
		"deleted_by", actor.ID,
	)
	return nil
}
