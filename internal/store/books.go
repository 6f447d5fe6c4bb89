package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/openarklib/openark-server/internal/domain"
)

const bookPrefix = "book:"

// Book Operations
//
// Books are written as one JSON value per aggregate, pages included. Every
// mutation is a single atomic Update, so readers never observe a book with
// half its pages.

// CreateBook creates a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrAlreadyExists
	}

	if err := s.set(key, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	s.indexBookAsync(book)

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.Int("pages", book.PageCount()),
		)
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(bookPrefix, id)
	defer releaseKey(key)

	var book domain.Book
	if err := s.get(key, &book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// UpdateBook replaces an existing book aggregate.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	book.Touch()
	if err := s.set(key, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	s.indexBookAsync(book)
	return nil
}

// DeleteBook permanently removes a book.
// Idempotent - deleting a missing book is not an error.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(bookPrefix, id)
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteBook(context.Background(), id); err != nil && s.logger != nil {
				s.logger.Warn("Failed to remove book from search index", "id", id, "error", err)
			}
		}()
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book deleted", slog.String("id", id))
	}
	return nil
}

// ListBooks returns all books, optionally including archived ones.
func (s *Store) ListBooks(ctx context.Context, includeArchived bool) ([]*domain.Book, error) {
	books, err := s.listBooks(ctx, func(b *domain.Book) bool {
		return includeArchived || !b.Archived
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// ListArchivedBooks returns only archived books.
func (s *Store) ListArchivedBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.listBooks(ctx, func(b *domain.Book) bool {
		return b.Archived
	})
}

// listBooks iterates the book prefix, keeping books that pass the filter.
func (s *Store) listBooks(ctx context.Context, keep func(*domain.Book) bool) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var books []*domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return fmt.Errorf("unmarshal book: %w", err)
			}

			if keep(&book) {
				books = append(books, &book)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// indexBookAsync pushes a book into the search index without blocking the write path.
func (s *Store) indexBookAsync(book *domain.Book) {
	if s.searchIndexer == nil {
		return
	}
	b := *book
	go func() {
		if err := s.searchIndexer.IndexBook(context.Background(), &b); err != nil && s.logger != nil {
			s.logger.Warn("Failed to index book", "id", b.ID, "error", err)
		}
	}()
}
