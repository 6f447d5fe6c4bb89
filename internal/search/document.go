// Package search provides full-text search over the book catalog using
// Bleve. Books are indexed by title, author, publisher, description, and
// category, with fuzzy matching and category facets.
package search

import (
	"github.com/openarklib/openark-server/internal/domain"
)

// Document is the indexed representation of a book.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Publisher   string   `json:"publisher,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Year        int      `json:"year,omitempty"`
	PageCount   int      `json:"page_count"`
	Archived    bool     `json:"archived"`
	CreatedAt   int64    `json:"created_at"` // Unix millis
	UpdatedAt   int64    `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names so they
// match the index mapping. Bleve would otherwise index Go field names.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"page_count": d.PageCount,
		"archived":   d.Archived,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}

	return m
}

// BookToDocument converts a domain Book to its indexed form.
func BookToDocument(book *domain.Book) *Document {
	return &Document{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Publisher:   book.Publisher,
		Description: book.Description,
		Categories:  book.Categories,
		Year:        book.Year,
		PageCount:   book.PageCount(),
		Archived:    book.Archived,
		CreatedAt:   book.CreatedAt.UnixMilli(),
		UpdatedAt:   book.UpdatedAt.UnixMilli(),
	}
}
