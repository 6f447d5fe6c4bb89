// Command seed populates a fresh OpenArk data directory with demo accounts
// and a small catalog, enough to click around a development client.
//
// Run it against a stopped server; it opens the library store directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openarklib/openark-server/internal/auth"
	"github.com/openarklib/openark-server/internal/color"
	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/id"
	"github.com/openarklib/openark-server/internal/store"
)

const demoPassword = "password1234"

func main() {
	dataPath := flag.String("data-path", "", "Base path for server data storage")
	flag.Parse()

	path := *dataPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		path = filepath.Join(home, "OpenArk", "data")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := store.New(filepath.Join(path, "library"), logger, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open library store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	librarian := seedUser(ctx, db, "librarian@openark.local", "Lena Ortiz", domain.RoleLibrarian)
	student := seedUser(ctx, db, "student@openark.local", "Sam Whitfield", domain.RoleStudent)

	books := []*domain.Book{
		makeBook(librarian.ID, "A Field Guide to Tidal Pools", "M. R. Castellan", "Harbor Press", 1987,
			"Intertidal life of the northern Pacific coast, with collecting notes.",
			[]string{"Nature", "Reference"}, 3),
		makeBook(librarian.ID, "Letters from the Observatory", "Ines Okafor", "Meridian Books", 1954,
			"Correspondence between two astronomers across twenty years.",
			[]string{"Science", "History"}, 5),
		makeBook(librarian.ID, "The Apprentice Binder", "T. Halloway", "", 2003,
			"", []string{"Crafts"}, 2),
	}

	for _, book := range books {
		if err := db.CreateBook(ctx, book); err != nil {
			log.Fatalf("Failed to seed book %q: %v", book.Title, err)
		}
		fmt.Printf("seeded book  %s  %q\n", book.ID, book.Title)
	}

	comment := &domain.Comment{
		Entity:   domain.Entity{ID: id.MustGenerate(id.PrefixComment)},
		BookID:   books[0].ID,
		UserID:   student.ID,
		UserName: student.Name,
		Text:     "The chapter on anemones is my favorite.",
	}
	comment.InitTimestamps()
	if err := db.Comments.Create(ctx, comment.ID, comment); err != nil {
		log.Fatalf("Failed to seed comment: %v", err)
	}

	fmt.Printf("\nDemo accounts (password %q):\n", demoPassword)
	fmt.Printf("  librarian@openark.local\n  student@openark.local\n")
}

func seedUser(ctx context.Context, db *store.Store, email, name string, role domain.Role) *domain.User {
	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		log.Fatalf("Failed to hash demo password: %v", err)
	}

	user := &domain.User{
		Entity:       domain.Entity{ID: id.MustGenerate(id.PrefixUser)},
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Active:       true,
	}
	user.AvatarColor = color.ForUser(user.ID)
	user.InitTimestamps()

	if err := db.Users.Create(ctx, user.ID, user); err != nil {
		log.Fatalf("Failed to seed user %s: %v", email, err)
	}
	fmt.Printf("seeded user  %s  %s (%s)\n", user.ID, email, role)
	return user
}

func makeBook(addedBy, title, author, publisher string, year int, description string, categories []string, pages int) *domain.Book {
	book := &domain.Book{
		Entity:      domain.Entity{ID: id.MustGenerate(id.PrefixBook)},
		Title:       title,
		Author:      author,
		Publisher:   publisher,
		Year:        year,
		Description: description,
		CoverURL:    domain.DefaultCoverURL,
		Categories:  categories,
		AddedBy:     addedBy,
	}
	for i := 0; i < pages; i++ {
		book.Pages = append(book.Pages, domain.Page{
			ImageURL: fmt.Sprintf("https://cdn.example.com/seed/%s/page-%03d.jpg", book.ID, i+1),
			Text:     fmt.Sprintf("Seed text for page %d of %s.", i+1, title),
		})
	}
	book.InitTimestamps()
	return book
}
