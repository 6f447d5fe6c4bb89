package domain

import "time"

// Canonical activity action strings. Clients filter and render on these
// exact values, so they are part of the API contract.
const (
	ActionAddedBook          = "Added Book"
	ActionAddedBookPages     = "Added Book Pages with OCR"
	ActionEditedBookPageText = "Edited Book Page Text"
	ActionEditedBookDesc     = "Edited Book Description"
	ActionArchivedBook       = "Archived Book"
	ActionRestoredBook       = "Restored Book"
	ActionDeletedBook        = "Deleted Book"
	ActionApprovedUser       = "Approved User"
	ActionRegisteredAccount  = "Registered Account"
	ActionLoggedIn           = "Logged In"
	ActionPrunedActivity     = "Pruned Activity Log"
)

// Activity is one append-only audit record. Activities are immutable once
// created and are never updated or individually deleted; the only removal
// path is a date-range prune.
type Activity struct {
	ID      string    `json:"id"`
	User    string    `json:"user"` // Display name at the time of the action
	Action  string    `json:"action"`
	Details string    `json:"details,omitempty"`
	Date    time.Time `json:"date"`
}
