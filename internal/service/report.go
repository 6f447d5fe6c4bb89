package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainerrors "github.com/openarklib/openark-server/internal/errors"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/store/sqlite"
	"github.com/openarklib/openark-server/internal/tasks"
)

// ReportService maintains the library summary snapshot.
//
// Every recompute rebuilds the snapshot from scratch by scanning the store,
// so a lost or duplicated trigger can never skew the numbers. Recomputes are
// serialized; a trigger arriving while one is running is coalesced into the
// run already in flight rather than queued behind it.
type ReportService struct {
	store      *store.Store
	db         *sqlite.Store
	dispatcher *tasks.Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	pending bool
}

// NewReportService creates a new report service.
func NewReportService(store *store.Store, db *sqlite.Store, dispatcher *tasks.Dispatcher, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:      store,
		db:         db,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Get returns the current snapshot. When no recompute has run yet an empty
// snapshot is returned rather than an error; a fresh library has a report,
// it just says zero everywhere.
func (s *ReportService) Get(ctx context.Context) (*domain.ReportSnapshot, error) {
	snap, err := s.db.GetReportSnapshot(ctx)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return &domain.ReportSnapshot{}, nil
		}
		return nil, fmt.Errorf("get report snapshot: %w", err)
	}
	return snap, nil
}

// ScheduleRecompute queues a background recompute. Safe to call on every
// mutation; concurrent triggers collapse into at most one queued run.
func (s *ReportService) ScheduleRecompute() {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	// A dropped enqueue must release the in-flight marker or every future
	// trigger would coalesce into a run that never happens.
	if !s.dispatcher.Enqueue("recompute-report", s.recomputeTask) {
		s.mu.Lock()
		s.running = false
		s.pending = false
		s.mu.Unlock()
	}
}

// recomputeTask runs one recompute, then reruns if triggers arrived meanwhile.
func (s *ReportService) recomputeTask(ctx context.Context) {
	for {
		if err := s.Recompute(ctx); err != nil {
			s.logger.Warn("Report recompute failed", "error", err)
		}

		s.mu.Lock()
		if !s.pending {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
	}
}

// Recompute rebuilds the snapshot from the store and overwrites the stored
// one. Exposed for the startup recompute and tests; normal operation goes
// through ScheduleRecompute.
func (s *ReportService) Recompute(ctx context.Context) error {
	started := time.Now()

	totalUsers, err := s.store.Users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	books, err := s.store.ListBooks(ctx, true)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	snap := &domain.ReportSnapshot{
		TotalUsers:  totalUsers,
		LastUpdated: time.Now(),
	}

	// Top category by book count, top book by page count. Archived books
	// count toward their own total but stay out of both rankings.
	categoryCounts := make(map[string]int)
	categoryNames := make(map[string]string) // first-seen casing per key
	topPages := -1

	for _, book := range books {
		if book.Archived {
			snap.TotalArchivedBooks++
			continue
		}
		snap.TotalBooks++

		for _, cat := range book.Categories {
			key := strings.ToLower(cat)
			categoryCounts[key]++
			if _, seen := categoryNames[key]; !seen {
				categoryNames[key] = cat
			}
		}

		if book.PageCount() > topPages {
			topPages = book.PageCount()
			snap.TopBookID = book.ID
			snap.TopBookTitle = book.Title
		}
	}

	topCount := 0
	for key, count := range categoryCounts {
		name := categoryNames[key]
		// Ties break alphabetically so the answer is stable across runs.
		if count > topCount || (count == topCount && name < snap.TopCategory) {
			topCount = count
			snap.TopCategory = name
		}
	}

	if err := s.db.SaveReportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save report snapshot: %w", err)
	}

	s.logger.Info("Report snapshot recomputed",
		"total_users", snap.TotalUsers,
		"total_books", snap.TotalBooks,
		"total_archived", snap.TotalArchivedBooks,
		"top_category", snap.TopCategory,
		"duration", time.Since(started),
	)
	return nil
}
