// Package domain contains the core business entities and domain logic for the OpenArk digital library.
package domain

// DefaultCoverURL is the placeholder cover used when a publish carries no
// cover image. Clients resolve it against their own static assets.
const DefaultCoverURL = "img/default-book.png"

// Page is one scanned page of a book: the uploaded image plus the text
// extracted from it. Pages are addressed by their position in the book's
// page slice; they carry no ID of their own.
type Page struct {
	ImageURL string `json:"image_url"`
	Text     string `json:"text"`
	BlurHash string `json:"blurhash,omitempty"`
}

// Book represents a scanned book in the library. The whole aggregate,
// pages included, is persisted as a single record.
type Book struct {
	Entity
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Publisher   string   `json:"publisher"`
	Year        int      `json:"year"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url"`
	CoverHash   string   `json:"cover_blurhash,omitempty"`
	Categories  []string `json:"categories"`
	Pages       []Page   `json:"pages"`
	Archived    bool     `json:"archived"`
	AddedBy     string   `json:"added_by,omitempty"`
}

// PageCount returns the number of pages the book currently holds.
func (b *Book) PageCount() int {
	return len(b.Pages)
}

// PageInRange reports whether index addresses an existing page.
func (b *Book) PageInRange(index int) bool {
	return index >= 0 && index < len(b.Pages)
}

// AppendPages adds pages to the end of the book, preserving their order.
// Existing pages are never replaced.
func (b *Book) AppendPages(pages []Page) {
	b.Pages = append(b.Pages, pages...)
}
