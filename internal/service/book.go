package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/id"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/media/cdn"
	"github.com/openarklib/openark-server/internal/media/images"
	"github.com/openarklib/openark-server/internal/normalize"
	"github.com/openarklib/openark-server/internal/sse"
	"github.com/openarklib/openark-server/internal/store"
	"github.com/openarklib/openark-server/internal/uploads"
	"github.com/openarklib/openark-server/internal/validation"
)

// BookService owns the book aggregate: publishing, page ingestion, edits,
// and the archive lifecycle. Publishing and editing are librarian-only;
// archive, restore, and delete extend to admins. The archive flag only
// hides a book from the default listing, it never blocks reads.
type BookService struct {
	store     *store.Store
	assembler *ingest.Assembler
	spool     *uploads.Spool
	media     cdn.Store
	folder    string
	activity  *ActivityService
	reports   *ReportService
	events    store.EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(
	store *store.Store,
	assembler *ingest.Assembler,
	spool *uploads.Spool,
	media cdn.Store,
	folder string,
	activity *ActivityService,
	reports *ReportService,
	events store.EventEmitter,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:     store,
		assembler: assembler,
		spool:     spool,
		media:     media,
		folder:    folder,
		activity:  activity,
		reports:   reports,
		events:    events,
		validator: validator,
		logger:    logger,
	}
}

// PublishRequest carries a new book's metadata. Cover and page files arrive
// separately as multipart streams.
type PublishRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Author      string   `json:"author" validate:"required,max=500"`
	Publisher   string   `json:"publisher" validate:"required,max=500"`
	Year        int      `json:"year" validate:"required,gte=1,lte=2100"`
	Description string   `json:"description" validate:"max=20000"`
	Categories  []string `json:"categories" validate:"max=20,dive,max=100"`
}

// PublishResult is the outcome of a publish: the stored book plus the pages
// that had to be dropped along the way.
type PublishResult struct {
	Book       *domain.Book       `json:"book"`
	PageErrors []ingest.PageError `json:"page_errors,omitempty"`
}

// Publish creates a new book. Metadata is validated up front; the cover,
// when present, must upload successfully or the whole publish fails. Page
// files are best effort: a failed page is dropped and reported while the
// rest of the batch goes through.
func (s *BookService) Publish(ctx context.Context, actor *domain.User, req PublishRequest, cover *ingest.PageFile, pages []ingest.PageFile) (*PublishResult, error) {
	if !actor.CanManageBooks() {
		return nil, domainerrors.Forbidden("only librarians may publish books")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	book := &domain.Book{
		Entity: domain.Entity{
			ID: id.MustGenerate(id.PrefixBook),
		},
		Title:       normalize.String(req.Title),
		Author:      normalize.String(req.Author),
		Publisher:   normalize.String(req.Publisher),
		Year:        req.Year,
		Description: normalize.Description(req.Description),
		CoverURL:    domain.DefaultCoverURL,
		Categories:  normalize.Categories(req.Categories),
		AddedBy:     actor.ID,
	}
	book.InitTimestamps()

	// Normalization drops empty and duplicate entries, so a request can pass
	// the tag validation and still end up with no categories at all.
	if len(book.Categories) == 0 {
		return nil, domainerrors.Validation("at least one category is required")
	}

	// The cover is all-or-nothing. A book without its cover is presentable
	// with the default image, but a librarian who sent one expects it to be
	// there; failing loudly here beats publishing a half-finished book.
	if cover != nil {
		coverURL, coverHash, err := s.uploadCover(ctx, *cover)
		if err != nil {
			return nil, err
		}
		book.CoverURL = coverURL
		book.CoverHash = coverHash
	}

	assembled, pageErrors := s.assembler.Assemble(ctx, pages)
	book.Pages = assembled

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionAddedBook, book.Title)
	s.reports.ScheduleRecompute()

	s.logger.Info("Book published",
		"book_id", book.ID,
		"title", book.Title,
		"pages", book.PageCount(),
		"page_errors", len(pageErrors),
		"added_by", actor.ID,
	)

	return &PublishResult{Book: book, PageErrors: pageErrors}, nil
}

// uploadCover spools, inspects, and uploads a cover image. Unlike page
// ingestion every failure here is fatal and surfaces as MEDIA_UPLOAD or
// VALIDATION to the caller.
func (s *BookService) uploadCover(ctx context.Context, cover ingest.PageFile) (url, blurHash string, err error) {
	path, err := s.spool.Save(cover.Reader, cover.Name)
	if err != nil {
		return "", "", domainerrors.MediaUpload("failed to store cover image", err)
	}

	data, err := s.spool.Read(path)
	if err != nil {
		return "", "", domainerrors.MediaUpload("failed to read cover image", err)
	}

	info, err := images.Inspect(data)
	if err != nil {
		_ = s.media.Delete(ctx, path)
		return "", "", domainerrors.Validation("cover is not a supported image format").WithCause(err)
	}

	url, err = s.media.Upload(ctx, path, s.folder)
	if err != nil {
		return "", "", err
	}
	return url, info.BlurHash, nil
}

// AppendPages runs new scans through the ingestion pipeline and appends the
// surviving pages to the end of the book. Existing pages never move.
func (s *BookService) AppendPages(ctx context.Context, actor *domain.User, bookID string, pages []ingest.PageFile) (*PublishResult, error) {
	if !actor.CanManageBooks() {
		return nil, domainerrors.Forbidden("only librarians may add pages")
	}
	if len(pages) == 0 {
		return nil, domainerrors.Validation("no page files provided")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	assembled, pageErrors := s.assembler.Assemble(ctx, pages)
	book.AppendPages(assembled)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionAddedBookPages,
		fmt.Sprintf("%s (%d pages)", book.Title, len(assembled)))
	s.events.Emit(sse.NewBookUpdatedEvent(book.ID))

	s.logger.Info("Pages appended",
		"book_id", book.ID,
		"added", len(assembled),
		"page_errors", len(pageErrors),
		"total", book.PageCount(),
	)

	return &PublishResult{Book: book, PageErrors: pageErrors}, nil
}

// EditPageText replaces the extracted text of one page, typically to fix
// OCR mistakes or fill in a failure marker by hand.
func (s *BookService) EditPageText(ctx context.Context, actor *domain.User, bookID string, pageIndex int, text string) (*domain.Book, error) {
	if !actor.CanManageBooks() {
		return nil, domainerrors.Forbidden("only librarians may edit page text")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if !book.PageInRange(pageIndex) {
		return nil, domainerrors.Validationf("page index %d out of range, book has %d pages", pageIndex, book.PageCount())
	}

	book.Pages[pageIndex].Text = normalize.String(text)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionEditedBookPageText,
		fmt.Sprintf("%s (page %d)", book.Title, pageIndex+1))
	s.events.Emit(sse.NewBookUpdatedEvent(book.ID))

	return book, nil
}

// EditDescription replaces the book's description.
func (s *BookService) EditDescription(ctx context.Context, actor *domain.User, bookID, description string) (*domain.Book, error) {
	if !actor.CanManageBooks() {
		return nil, domainerrors.Forbidden("only librarians may edit book details")
	}
	if len(description) > 20000 {
		return nil, domainerrors.Validation("description must not exceed 20000 characters")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.Description = normalize.Description(description)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionEditedBookDesc, book.Title)
	s.events.Emit(sse.NewBookUpdatedEvent(book.ID))

	return book, nil
}

// Archive hides a book from the default listing. Idempotent; archiving an
// archived book changes nothing and records nothing.
func (s *BookService) Archive(ctx context.Context, actor *domain.User, bookID string) (*domain.Book, error) {
	return s.setArchived(ctx, actor, bookID, true)
}

// Restore brings an archived book back into the default listing. Idempotent.
func (s *BookService) Restore(ctx context.Context, actor *domain.User, bookID string) (*domain.Book, error) {
	return s.setArchived(ctx, actor, bookID, false)
}

func (s *BookService) setArchived(ctx context.Context, actor *domain.User, bookID string, archived bool) (*domain.Book, error) {
	if !actor.CanCurate() {
		return nil, domainerrors.Forbidden("only librarians and admins may archive books")
	}

	book, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if book.Archived == archived {
		return book, nil
	}

	book.Archived = archived
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	action := domain.ActionArchivedBook
	if !archived {
		action = domain.ActionRestoredBook
	}
	s.activity.Record(actor.Name, action, book.Title)
	s.reports.ScheduleRecompute()
	s.events.Emit(sse.NewBookUpdatedEvent(book.ID))

	return book, nil
}

// Delete permanently removes a book, archived or not. Idempotent; deleting
// a missing book succeeds quietly. Comments referencing the book are left
// behind as orphans.
func (s *BookService) Delete(ctx context.Context, actor *domain.User, bookID string) error {
	if !actor.CanCurate() {
		return domainerrors.Forbidden("only librarians and admins may delete books")
	}

	// Fetch first so the activity record can carry the title. A missing
	// book still deletes cleanly, just without one.
	title := bookID
	if book, err := s.store.GetBook(ctx, bookID); err == nil {
		title = book.Title
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	s.activity.Record(actor.Name, domain.ActionDeletedBook, title)
	s.reports.ScheduleRecompute()
	s.events.Emit(sse.NewBookUpdatedEvent(bookID))

	return nil
}

// Get returns a book by ID. Archived books are readable by anyone who has
// the ID; archiving only affects listings.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %s not found", bookID)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// List returns the catalog sorted by most recently added. Archived books
// are excluded unless includeArchived is set.
func (s *BookService) List(ctx context.Context, includeArchived bool) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	sortBooksNewestFirst(books)
	return books, nil
}

// ListArchived returns only archived books, most recently added first.
func (s *BookService) ListArchived(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListArchivedBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archived books: %w", err)
	}
	sortBooksNewestFirst(books)
	return books, nil
}

// ExtractPreview runs a single image through text extraction without
// attaching it to any book. Librarians use this to check scan quality
// before committing a batch.
func (s *BookService) ExtractPreview(ctx context.Context, actor *domain.User, file ingest.PageFile) (*ingest.Preview, error) {
	if !actor.CanManageBooks() {
		return nil, domainerrors.Forbidden("only librarians may run text extraction")
	}
	return s.assembler.ExtractPreview(ctx, file)
}

// Categories returns every category in use across non-archived books,
// sorted alphabetically.
func (s *BookService) Categories(ctx context.Context) ([]string, error) {
	books, err := s.store.ListBooks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	var all []string
	for _, book := range books {
		all = append(all, book.Categories...)
	}
	categories := normalize.Categories(all)
	sort.Strings(categories)
	return categories, nil
}

func sortBooksNewestFirst(books []*domain.Book) {
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID > books[j].ID
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
}
