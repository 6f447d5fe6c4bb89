// Package service contains the application services that sit between the
// HTTP handlers and the stores. Services own validation, role checks, and
// side effects; handlers only translate HTTP to service calls.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/id"
	"github.com/openarklib/openark-server/internal/store/sqlite"
	"github.com/openarklib/openark-server/internal/tasks"
)

// ActivityService records and serves the append-only activity log.
//
// Recording is fire-and-forget: a failed write is logged and swallowed so an
// audit hiccup can never fail the user action that triggered it. Records are
// immutable once written; the only removal path is a date-range prune.
type ActivityService struct {
	db         *sqlite.Store
	dispatcher *tasks.Dispatcher
	logger     *slog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(db *sqlite.Store, dispatcher *tasks.Dispatcher, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		db:         db,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Record queues an activity write in the background. The caller's request
// never waits on it and never sees its error.
func (s *ActivityService) Record(userName, action, details string) {
	activity := &domain.Activity{
		ID:      id.MustGenerate(id.PrefixActivity),
		User:    userName,
		Action:  action,
		Details: details,
		Date:    time.Now(),
	}

	s.dispatcher.Enqueue("record-activity", func(ctx context.Context) {
		if err := s.db.CreateActivity(ctx, activity); err != nil {
			s.logger.Warn("Failed to record activity",
				"action", action,
				"user", userName,
				"error", err,
			)
			return
		}
		s.logger.Debug("Activity recorded", "action", action, "user", userName)
	})
}

// ListParams controls activity log pagination.
type ListParams struct {
	Limit    int
	Before   *time.Time // Cursor: Date of the last item on the previous page
	BeforeID string     // Tie-breaker when activities share a timestamp
}

// List returns activities newest first.
func (s *ActivityService) List(ctx context.Context, params ListParams) ([]*domain.Activity, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	activities, err := s.db.ListActivities(ctx, limit, params.Before, params.BeforeID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// Prune deletes all activities recorded before the cutoff and records the
// prune itself as a new activity. Returns the number of deleted records.
func (s *ActivityService) Prune(ctx context.Context, actorName string, before time.Time) (int64, error) {
	deleted, err := s.db.PruneActivities(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("prune activities: %w", err)
	}

	s.logger.Info("Activity log pruned",
		"before", before.Format(time.RFC3339),
		"deleted", deleted,
	)

	s.Record(actorName, domain.ActionPrunedActivity,
		fmt.Sprintf("Removed %d records older than %s", deleted, before.Format("2006-01-02")))

	return deleted, nil
}
