package domain

// Comment is a reader comment attached to a book. Comments reference books
// by ID only; deleting a book leaves its comments orphaned, which readers
// of the book list never see.
type Comment struct {
	Entity
	BookID   string `json:"book_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}
