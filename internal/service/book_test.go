package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/ingest"
)

// publishReq returns a minimally valid publish request.
func publishReq(title string) PublishRequest {
	return PublishRequest{
		Title:      title,
		Author:     "M. Okafor",
		Publisher:  "Seabright Press",
		Year:       2024,
		Categories: []string{"Nature"},
	}
}

func TestBookService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("librarian publishes with pages", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		result, err := env.books.Publish(ctx, librarian, PublishRequest{
			Title:      "  A Field Guide to Tidal Pools  ",
			Author:     "M. Okafor",
			Publisher:  "Seabright Press",
			Year:       2024,
			Categories: []string{"Nature", "nature", "Reference"},
		}, nil, []ingest.PageFile{pagePNG(t, "p1.png"), pagePNG(t, "p2.png")})
		require.NoError(t, err)
		assert.Empty(t, result.PageErrors)

		book := result.Book
		assert.Equal(t, "A Field Guide to Tidal Pools", book.Title)
		assert.Equal(t, []string{"Nature", "Reference"}, book.Categories)
		assert.Equal(t, domain.DefaultCoverURL, book.CoverURL)
		assert.Equal(t, 2, book.PageCount())
		assert.Equal(t, librarian.ID, book.AddedBy)
		assert.True(t, strings.HasPrefix(book.ID, "bk-"))

		stored, err := env.books.Get(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.PageCount())
	})

	t.Run("student and admin are refused", func(t *testing.T) {
		env := newTestEnv(t)
		for _, role := range []domain.Role{domain.RoleStudent, domain.RoleAdmin} {
			actor := makeUser("usr-"+string(role), role)
			_, err := env.books.Publish(ctx, actor, PublishRequest{Title: "T", Author: "A"}, nil, nil)
			assert.ErrorIs(t, err, domainerrors.ErrForbidden, "role %s", role)
		}
	})

	t.Run("missing metadata is a validation error", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		t.Run("no author", func(t *testing.T) {
			req := publishReq("No Author")
			req.Author = ""
			_, err := env.books.Publish(ctx, librarian, req, nil, nil)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})

		t.Run("no publisher", func(t *testing.T) {
			req := publishReq("No Publisher")
			req.Publisher = ""
			_, err := env.books.Publish(ctx, librarian, req, nil, nil)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})

		t.Run("no year", func(t *testing.T) {
			req := publishReq("No Year")
			req.Year = 0
			_, err := env.books.Publish(ctx, librarian, req, nil, nil)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	})

	t.Run("categories that normalize away are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		for _, categories := range [][]string{nil, {}, {"  ", ""}} {
			req := publishReq("Uncategorized")
			req.Categories = categories
			_, err := env.books.Publish(ctx, librarian, req, nil, nil)
			assert.ErrorIs(t, err, domainerrors.ErrValidation, "categories %q", categories)
		}

		books, err := env.books.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, books, "nothing is stored without a category")
	})

	t.Run("cover upload failure aborts the publish", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.media.failAll = true

		cover := pagePNG(t, "cover.png")
		_, err := env.books.Publish(ctx, librarian, publishReq("With Cover"), &cover, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrMediaUpload)

		books, err := env.books.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, books, "nothing is stored when the cover fails")
	})

	t.Run("undecodable cover is a validation error", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		cover := ingest.PageFile{Name: "cover.txt", Reader: strings.NewReader("not an image")}
		_, err := env.books.Publish(ctx, librarian, publishReq("Bad Cover"), &cover, nil)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("failed pages are reported, publish still succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		files := []ingest.PageFile{
			pagePNG(t, "good.png"),
			{Name: "bad.txt", Reader: strings.NewReader("nope")},
		}
		result, err := env.books.Publish(ctx, librarian, publishReq("Mixed Batch"), nil, files)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Book.PageCount())
		require.Len(t, result.PageErrors, 1)
		assert.Equal(t, "bad.txt", result.PageErrors[0].Name)
	})

	t.Run("transport failure stores the failure marker", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.extractor.err = errors.New("provider down")

		result, err := env.books.Publish(ctx, librarian, publishReq("Provider Down"), nil,
			[]ingest.PageFile{pagePNG(t, "p1.png")})
		require.NoError(t, err)
		require.Equal(t, 1, result.Book.PageCount())
		assert.Contains(t, result.Book.Pages[0].Text, "OCR failed")
	})
}

func TestBookService_AppendPages(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to the end", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 2))

		result, err := env.books.AppendPages(ctx, librarian, "bk-1", []ingest.PageFile{pagePNG(t, "p3.png")})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Book.PageCount())
		assert.Equal(t, "page 0", result.Book.Pages[0].Text, "existing pages never move")
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 1))

		_, err := env.books.AppendPages(ctx, librarian, "bk-1", nil)
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})

	t.Run("missing book", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

		_, err := env.books.AppendPages(ctx, librarian, "bk-ghost", []ingest.PageFile{pagePNG(t, "p.png")})
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("student refused", func(t *testing.T) {
		env := newTestEnv(t)
		student := makeUser("usr-stu", domain.RoleStudent)

		_, err := env.books.AppendPages(ctx, student, "bk-1", []ingest.PageFile{pagePNG(t, "p.png")})
		assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	})
}

func TestBookService_EditPageText(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the page text", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 3))

		book, err := env.books.EditPageText(ctx, librarian, "bk-1", 1, "  corrected text  ")
		require.NoError(t, err)
		assert.Equal(t, "corrected text", book.Pages[1].Text)
		assert.Equal(t, "page 0", book.Pages[0].Text)
		assert.Equal(t, "page 2", book.Pages[2].Text)
	})

	t.Run("out of range index", func(t *testing.T) {
		env := newTestEnv(t)
		librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
		env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 2))

		for _, idx := range []int{-1, 2, 99} {
			_, err := env.books.EditPageText(ctx, librarian, "bk-1", idx, "text")
			assert.ErrorIs(t, err, domainerrors.ErrValidation, "index %d", idx)
		}
	})
}

func TestBookService_EditDescription(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
	env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 1))

	book, err := env.books.EditDescription(ctx, librarian, "bk-1", "<p>About <strong>tide pools</strong>.</p>")
	require.NoError(t, err)
	assert.NotContains(t, book.Description, "<p>")
	assert.Contains(t, book.Description, "**tide pools**")

	t.Run("oversized description rejected", func(t *testing.T) {
		_, err := env.books.EditDescription(ctx, librarian, "bk-1", strings.Repeat("x", 20001))
		assert.ErrorIs(t, err, domainerrors.ErrValidation)
	})
}

func TestBookService_ArchiveLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
	env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 1))

	book, err := env.books.Archive(ctx, librarian, "bk-1")
	require.NoError(t, err)
	assert.True(t, book.Archived)

	t.Run("archived book stays readable", func(t *testing.T) {
		got, err := env.books.Get(ctx, "bk-1")
		require.NoError(t, err)
		assert.True(t, got.Archived)
	})

	t.Run("hidden from the default listing", func(t *testing.T) {
		books, err := env.books.List(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, books)

		archived, err := env.books.ListArchived(ctx)
		require.NoError(t, err)
		assert.Len(t, archived, 1)
	})

	t.Run("archive twice is a no-op", func(t *testing.T) {
		again, err := env.books.Archive(ctx, librarian, "bk-1")
		require.NoError(t, err)
		assert.True(t, again.Archived)
	})

	t.Run("restore brings it back", func(t *testing.T) {
		restored, err := env.books.Restore(ctx, librarian, "bk-1")
		require.NoError(t, err)
		assert.False(t, restored.Archived)

		books, err := env.books.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("student cannot archive", func(t *testing.T) {
		student := makeUser("usr-stu", domain.RoleStudent)
		_, err := env.books.Archive(ctx, student, "bk-1")
		assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	})

	t.Run("admin archives and restores", func(t *testing.T) {
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))

		book, err := env.books.Archive(ctx, admin, "bk-1")
		require.NoError(t, err)
		assert.True(t, book.Archived)

		book, err = env.books.Restore(ctx, admin, "bk-1")
		require.NoError(t, err)
		assert.False(t, book.Archived)
	})
}

func TestBookService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))
	env.addBook(t, bookWithPages("bk-1", "Tidal Pools", 1))

	require.NoError(t, env.books.Delete(ctx, librarian, "bk-1"))

	_, err := env.books.Get(ctx, "bk-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	t.Run("deleting a missing book succeeds quietly", func(t *testing.T) {
		assert.NoError(t, env.books.Delete(ctx, librarian, "bk-1"))
		assert.NoError(t, env.books.Delete(ctx, librarian, "bk-never-existed"))
	})

	t.Run("student cannot delete", func(t *testing.T) {
		student := makeUser("usr-stu", domain.RoleStudent)
		assert.ErrorIs(t, env.books.Delete(ctx, student, "bk-1"), domainerrors.ErrForbidden)
	})

	t.Run("admin deletes", func(t *testing.T) {
		admin := env.addUser(t, makeUser("usr-adm", domain.RoleAdmin))
		env.addBook(t, bookWithPages("bk-2", "Cleanup Target", 1))

		require.NoError(t, env.books.Delete(ctx, admin, "bk-2"))
		_, err := env.books.Get(ctx, "bk-2")
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})
}

func TestBookService_List_NewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"bk-a", "bk-b", "bk-c"} {
		b := bookWithPages(id, "Book "+id, 1)
		b.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		b.UpdatedAt = b.CreatedAt
		env.addBook(t, b)
	}

	books, err := env.books.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "bk-c", books[0].ID)
	assert.Equal(t, "bk-a", books[2].ID)
}

func TestBookService_Categories(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := bookWithPages("bk-a", "A", 1)
	a.Categories = []string{"Science", "Nature"}
	b := bookWithPages("bk-b", "B", 1)
	b.Categories = []string{"science", "History"}
	archived := bookWithPages("bk-c", "C", 1)
	archived.Categories = []string{"Maps"}
	archived.Archived = true

	env.addBook(t, a)
	env.addBook(t, b)
	env.addBook(t, archived)

	categories, err := env.books.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"History", "Nature", "Science"}, categories)
}

func TestBookService_ExtractPreview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	librarian := env.addUser(t, makeUser("usr-lib", domain.RoleLibrarian))

	preview, err := env.books.ExtractPreview(ctx, librarian, pagePNG(t, "check.png"))
	require.NoError(t, err)
	assert.Equal(t, "extracted text", preview.Text)

	t.Run("student refused", func(t *testing.T) {
		student := makeUser("usr-stu", domain.RoleStudent)
		_, err := env.books.ExtractPreview(ctx, student, pagePNG(t, "check.png"))
		assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	})
}
