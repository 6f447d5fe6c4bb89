package domain

import "time"

// ReportSnapshot is the recomputed library summary. There is exactly one
// snapshot; every recompute overwrites it from scratch, so stale increments
// can never accumulate.
type ReportSnapshot struct {
	TotalUsers         int       `json:"total_users"`
	TotalBooks         int       `json:"total_books"` // Non-archived only
	TotalArchivedBooks int       `json:"total_archived_books"`
	TopCategory        string    `json:"top_category,omitempty"`
	TopBookID          string    `json:"top_book_id,omitempty"`
	TopBookTitle       string    `json:"top_book_title,omitempty"`
	LastUpdated        time.Time `json:"last_updated"`
}
