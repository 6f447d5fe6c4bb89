// Command dbinspect prints a read-only summary of an OpenArk library store.
// Useful for poking at a data directory without starting the server.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/ocr"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, "OpenArk", "data", "library")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Library Store Inspection ===")
	fmt.Println()

	inspectBooks(db)
	fmt.Println()
	inspectUsers(db)
	fmt.Println()
	countPrefix(db, "comment:", "Comments")
}

func inspectBooks(db *badger.DB) {
	bookCount := 0
	archivedCount := 0
	totalPages := 0
	failedPages := 0

	err := forEachValue(db, "book:", func(val []byte) error {
		var book domain.Book
		if err := json.Unmarshal(val, &book); err != nil {
			return err
		}
		bookCount++
		if book.Archived {
			archivedCount++
		}
		totalPages += len(book.Pages)
		for _, page := range book.Pages {
			if page.Text == ocr.FailureMarker {
				failedPages++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan books: %v", err)
	}

	fmt.Printf("Books: %d (%d archived)\n", bookCount, archivedCount)
	fmt.Printf("Pages: %d (%d with failed OCR)\n", totalPages, failedPages)
}

func inspectUsers(db *badger.DB) {
	byRole := map[domain.Role]int{}
	pending := 0

	err := forEachValue(db, "user:", func(val []byte) error {
		var user domain.User
		if err := json.Unmarshal(val, &user); err != nil {
			return err
		}
		byRole[user.Role]++
		if !user.Active {
			pending++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan users: %v", err)
	}

	fmt.Printf("Users: admins=%d librarians=%d students=%d (pending approval: %d)\n",
		byRole[domain.RoleAdmin], byRole[domain.RoleLibrarian], byRole[domain.RoleStudent], pending)
}

func countPrefix(db *badger.DB, prefix, label string) {
	count := 0
	err := forEachValue(db, prefix, func([]byte) error {
		count++
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", strings.ToLower(label), err)
	}
	fmt.Printf("%s: %d\n", label, count)
}

// forEachValue iterates the entity records under a prefix, skipping the
// secondary index keys interleaved with them.
func forEachValue(db *badger.DB, prefix string, fn func(val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(prefix):], "idx:") {
				continue
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
