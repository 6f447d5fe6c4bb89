package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants full administrative access: user approval and reports.
	RoleAdmin Role = "admin"
	// RoleLibrarian grants catalog management: publishing and editing books.
	RoleLibrarian Role = "librarian"
	// RoleStudent grants read access: browsing, reading, and commenting.
	RoleStudent Role = "student"
)

// Valid reports whether the role is a recognized value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleStudent:
		return true
	default:
		return false
	}
}

// Bookmark marks a page a user wants to return to.
type Bookmark struct {
	BookID    string    `json:"book_id"`
	PageIndex int       `json:"page_index"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadingPosition tracks where a user left off in a book.
type ReadingPosition struct {
	BookID    string    `json:"book_id"`
	PageIndex int       `json:"page_index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an authenticated account in the system.
// New signups start inactive until an admin approves them.
type User struct {
	Entity
	Email        string            `json:"email"`
	PasswordHash string            `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	Name         string            `json:"name"`
	AvatarColor  string            `json:"avatar_color,omitempty"`
	Role         Role              `json:"role"`
	Active       bool              `json:"active"`
	ApprovedBy   string            `json:"approved_by,omitempty"`
	ApprovedAt   time.Time         `json:"approved_at,omitzero"`
	LastLoginAt  time.Time         `json:"last_login_at,omitzero"`
	Bookmarks    []Bookmark        `json:"bookmarks,omitempty"`
	Positions    []ReadingPosition `json:"positions,omitempty"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanManageBooks returns true if the user may publish and edit books.
func (u *User) CanManageBooks() bool {
	return u.Role == RoleLibrarian
}

// CanCurate returns true if the user may archive, restore, or delete books.
// Librarians curate as part of catalog management; admins as part of cleanup.
func (u *User) CanCurate() bool {
	return u.Role == RoleLibrarian || u.Role == RoleAdmin
}

// Position returns the user's reading position for a book, if any.
func (u *User) Position(bookID string) (ReadingPosition, bool) {
	for _, p := range u.Positions {
		if p.BookID == bookID {
			return p, true
		}
	}
	return ReadingPosition{}, false
}

// SetPosition records where the user left off in a book, replacing any
// previous position for the same book.
func (u *User) SetPosition(bookID string, pageIndex int) {
	now := time.Now()
	for i := range u.Positions {
		if u.Positions[i].BookID == bookID {
			u.Positions[i].PageIndex = pageIndex
			u.Positions[i].UpdatedAt = now
			return
		}
	}
	u.Positions = append(u.Positions, ReadingPosition{
		BookID:    bookID,
		PageIndex: pageIndex,
		UpdatedAt: now,
	})
}
