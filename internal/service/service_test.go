package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openarklib/openark-server/internal/auth"
	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/store/sqlite"
	"github.com/openarklib/openark-server/internal/tasks"
	"github.com/openarklib/openark-server/internal/uploads"
	"github.com/openarklib/openark-server/internal/validation"
)

// testKeyHex is a fixed 32-byte PASETO key for tests.
const testKeyHex = "abababababababababababababababababababababababababababababababab"

// stubExtractor returns a fixed text, or fails when err is set.
type stubExtractor struct {
	mu   sync.Mutex
	text string
	err  error
}

func (s *stubExtractor) ExtractText(context.Context, []byte, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.err
}

// stubMedia counts uploads and can be told to fail them.
type stubMedia struct {
	mu      sync.Mutex
	uploads int
	failAll bool
}

func (s *stubMedia) Upload(_ context.Context, _, folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", domainerrors.MediaUpload("upload rejected", nil)
	}
	s.uploads++
	return fmt.Sprintf("https://cdn.example.com/%s/%d.png", folder, s.uploads), nil
}

func (s *stubMedia) Delete(context.Context, string) error { return nil }

// testEnv wires the full service graph against temp stores.
type testEnv struct {
	store     *store.Store
	db        *sqlite.Store
	media     *stubMedia
	extractor *stubExtractor

	activity *ActivityService
	reports  *ReportService
	books    *BookService
	users    *UserService
	comments *CommentService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	db, err := store.New(filepath.Join(dir, "library"), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	activityDB, err := sqlite.Open(filepath.Join(dir, "activity.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = activityDB.Close() })

	dispatcher := tasks.NewDispatcher(1, 64, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		dispatcher.Shutdown(ctx)
	})

	spool, err := uploads.NewSpool(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	media := &stubMedia{}
	extractor := &stubExtractor{text: "extracted text"}
	assembler := ingest.NewAssembler(spool, extractor, media, "openark", 2, logger)

	validator := validation.New()
	tokens, err := auth.NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	env := &testEnv{store: db, db: activityDB, media: media, extractor: extractor}
	env.activity = NewActivityService(activityDB, dispatcher, logger)
	env.reports = NewReportService(db, activityDB, dispatcher, logger)
	env.books = NewBookService(db, assembler, spool, media, "openark", env.activity, env.reports, store.NewNoopEmitter(), validator, logger)
	env.users = NewUserService(db, env.activity, env.reports, logger)
	env.comments = NewCommentService(db, store.NewNoopEmitter(), validator, logger)
	env.auth = NewAuthService(db, tokens, env.activity, validator, logger)
	return env
}

func makeUser(id string, role domain.Role) *domain.User {
	u := &domain.User{
		Entity: domain.Entity{ID: id},
		Email:  id + "@example.com",
		Name:   "User " + id,
		Role:   role,
		Active: true,
	}
	u.InitTimestamps()
	return u
}

func (e *testEnv) addUser(t *testing.T, u *domain.User) *domain.User {
	t.Helper()
	require.NoError(t, e.store.Users.Create(context.Background(), u.ID, u))
	return u
}

func (e *testEnv) addBook(t *testing.T, book *domain.Book) *domain.Book {
	t.Helper()
	require.NoError(t, e.store.CreateBook(context.Background(), book))
	return book
}

func bookWithPages(id, title string, pages int) *domain.Book {
	b := &domain.Book{
		Entity:   domain.Entity{ID: id},
		Title:    title,
		Author:   "Author",
		CoverURL: domain.DefaultCoverURL,
	}
	for i := 0; i < pages; i++ {
		b.Pages = append(b.Pages, domain.Page{
			ImageURL: fmt.Sprintf("https://cdn.example.com/%s/%d.png", id, i),
			Text:     fmt.Sprintf("page %d", i),
		})
	}
	b.InitTimestamps()
	return b
}

func pagePNG(t *testing.T, name string) ingest.PageFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return ingest.PageFile{Name: name, Reader: bytes.NewReader(buf.Bytes())}
}
