package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/store"
)

// activityColumns is the ordered list of columns selected in activity queries.
// Must match the scan order in scanActivity.
const activityColumns = `id, user, action, details, date`

// scanActivity scans a sql.Row (or sql.Rows via its Scan method) into a domain.Activity.
func scanActivity(scanner interface{ Scan(dest ...any) error }) (*domain.Activity, error) {
	var (
		a       domain.Activity
		details sql.NullString
		date    string
	)

	if err := scanner.Scan(&a.ID, &a.User, &a.Action, &details, &date); err != nil {
		return nil, err
	}

	if details.Valid {
		a.Details = details.String
	}

	var err error
	a.Date, err = parseTime(date)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateActivity inserts a new activity into the database.
// Returns store.ErrAlreadyExists if the activity ID already exists.
func (s *Store) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, user, action, details, date)
		VALUES (?, ?, ?, ?, ?)`,
		activity.ID,
		activity.User,
		activity.Action,
		nullString(activity.Details),
		formatTime(activity.Date),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ListActivities retrieves activities sorted newest first.
// Use 'before' for cursor-based pagination (pass the Date of the last item);
// 'beforeID' keeps the cursor deterministic when activities share a timestamp.
// Returns up to 'limit' activities.
func (s *Store) ListActivities(ctx context.Context, limit int, before *time.Time, beforeID string) ([]*domain.Activity, error) {
	var query string
	var args []any

	switch {
	case before != nil && beforeID != "":
		query = `SELECT ` + activityColumns + ` FROM activities
			WHERE (date < ? OR (date = ? AND id < ?))
			ORDER BY date DESC, id DESC
			LIMIT ?`
		ts := formatTime(*before)
		args = append(args, ts, ts, beforeID, limit)
	case before != nil:
		query = `SELECT ` + activityColumns + ` FROM activities
			WHERE date < ?
			ORDER BY date DESC
			LIMIT ?`
		args = append(args, formatTime(*before), limit)
	default:
		query = `SELECT ` + activityColumns + ` FROM activities
			ORDER BY date DESC
			LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivity retrieves a single activity by ID.
// Returns store.ErrNotFound if the activity does not exist.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// PruneActivities deletes all activities recorded strictly before the cutoff.
// Returns the number of deleted records.
func (s *Store) PruneActivities(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activities WHERE date < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
