package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/store"
)

// SaveReportSnapshot overwrites the singleton report snapshot.
// The fixed row ID makes the write idempotent: concurrent recomputes race
// only on which complete snapshot lands last.
func (s *Store) SaveReportSnapshot(ctx context.Context, snap *domain.ReportSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO report_snapshot (
			id, total_users, total_books, total_archived_books,
			top_category, top_book_id, top_book_title, last_updated
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		snap.TotalUsers,
		snap.TotalBooks,
		snap.TotalArchivedBooks,
		nullString(snap.TopCategory),
		nullString(snap.TopBookID),
		nullString(snap.TopBookTitle),
		formatTime(snap.LastUpdated),
	)
	return err
}

// GetReportSnapshot retrieves the current report snapshot.
// Returns store.ErrNotFound if no recompute has run yet.
func (s *Store) GetReportSnapshot(ctx context.Context) (*domain.ReportSnapshot, error) {
	var (
		snap         domain.ReportSnapshot
		topCategory  sql.NullString
		topBookID    sql.NullString
		topBookTitle sql.NullString
		lastUpdated  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT total_users, total_books, total_archived_books,
			top_category, top_book_id, top_book_title, last_updated
		FROM report_snapshot WHERE id = 1`).Scan(
		&snap.TotalUsers,
		&snap.TotalBooks,
		&snap.TotalArchivedBooks,
		&topCategory,
		&topBookID,
		&topBookTitle,
		&lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if topCategory.Valid {
		snap.TopCategory = topCategory.String
	}
	if topBookID.Valid {
		snap.TopBookID = topBookID.String
	}
	if topBookTitle.Valid {
		snap.TopBookTitle = topBookTitle.String
	}

	snap.LastUpdated, err = parseTime(lastUpdated)
	if err != nil {
		return nil, err
	}

	return &snap, nil
}
