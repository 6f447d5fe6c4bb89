package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/store"
)

// UserService handles account administration and per-user reading state.
type UserService struct {
	store    *store.Store
	activity *ActivityService
	reports  *ReportService
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store *store.Store, activity *ActivityService, reports *ReportService, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		activity: activity,
		reports:  reports,
		logger:   logger,
	}
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, id)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("user %s not found", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all users sorted by registration time, newest first.
// Pass pendingOnly to see just the approval queue.
func (s *UserService) List(ctx context.Context, pendingOnly bool) ([]*domain.User, error) {
	var users []*domain.User
	for user, err := range s.store.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		if pendingOnly && user.Active {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// Approve activates a pending account. Approving an already active account
// is a no-op, not an error.
func (s *UserService) Approve(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domainerrors.Forbidden("only admins may approve accounts")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Active {
		return user, nil
	}

	user.Active = true
	user.ApprovedBy = actor.ID
	user.ApprovedAt = time.Now()
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionApprovedUser, user.Name)
	s.reports.ScheduleRecompute()

	s.logger.Info("User approved", "user_id", user.ID, "approved_by", actor.ID)
	return user, nil
}

// SetRole changes a user's role. Admins cannot demote themselves; losing the
// last admin would lock the instance.
func (s *UserService) SetRole(ctx context.Context, actor *domain.User, userID string, role domain.Role) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domainerrors.Forbidden("only admins may change roles")
	}
	if !role.Valid() {
		return nil, domainerrors.Validationf("unknown role %q", role)
	}
	if actor.ID == userID && role != domain.RoleAdmin {
		return nil, domainerrors.Validation("admins cannot demote themselves")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User role changed", "user_id", user.ID, "role", role, "changed_by", actor.ID)
	return user, nil
}

// Deactivate suspends an account without deleting it. The user's tokens stop
// working on their next request.
func (s *UserService) Deactivate(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domainerrors.Forbidden("only admins may deactivate accounts")
	}
	if actor.ID == userID {
		return nil, domainerrors.Validation("admins cannot deactivate themselves")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Active = false
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User deactivated", "user_id", user.ID, "deactivated_by", actor.ID)
	return user, nil
}

// Delete permanently removes an account. Idempotent.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, userID string) error {
	if !actor.IsAdmin() {
		return domainerrors.Forbidden("only admins may delete accounts")
	}
	if actor.ID == userID {
		return domainerrors.Validation("admins cannot delete themselves")
	}

	if err := s.store.Users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.reports.ScheduleRecompute()
	s.logger.Info("User deleted", "user_id", userID, "deleted_by", actor.ID)
	return nil
}

// SetReadingPosition records where a user left off in a book.
func (s *UserService) SetReadingPosition(ctx context.Context, user *domain.User, bookID string, pageIndex int) error {
	if pageIndex < 0 {
		return domainerrors.Validation("page index must not be negative")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		return fmt.Errorf("get book: %w", err)
	}
	if !book.PageInRange(pageIndex) && pageIndex != 0 {
		return domainerrors.Validationf("page index %d out of range, book has %d pages", pageIndex, book.PageCount())
	}

	user.SetPosition(bookID, pageIndex)
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// AddBookmark marks a page the user wants to return to. Bookmarking the
// same page twice is a no-op.
func (s *UserService) AddBookmark(ctx context.Context, user *domain.User, bookID string, pageIndex int) error {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("book %s not found", bookID)
		}
		return fmt.Errorf("get book: %w", err)
	}
	if !book.PageInRange(pageIndex) {
		return domainerrors.Validationf("page index %d out of range, book has %d pages", pageIndex, book.PageCount())
	}

	for _, b := range user.Bookmarks {
		if b.BookID == bookID && b.PageIndex == pageIndex {
			return nil
		}
	}

	user.Bookmarks = append(user.Bookmarks, domain.Bookmark{
		BookID:    bookID,
		PageIndex: pageIndex,
		CreatedAt: time.Now(),
	})
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// RemoveBookmark removes a bookmark. Idempotent.
func (s *UserService) RemoveBookmark(ctx context.Context, user *domain.User, bookID string, pageIndex int) error {
	kept := user.Bookmarks[:0]
	for _, b := range user.Bookmarks {
		if b.BookID == bookID && b.PageIndex == pageIndex {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == len(user.Bookmarks) {
		return nil
	}
	user.Bookmarks = kept
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
