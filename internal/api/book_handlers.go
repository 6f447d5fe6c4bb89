package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/normalize"
	"github.com/openarklib/openark-server/internal/service"
)

// maxMultipartMemory is how much of a multipart upload is held in memory
// before spilling to temp files. Page scans routinely exceed this; the
// overflow path is the normal path.
const maxMultipartMemory = 32 << 20

// handleListBooks returns the catalog. Archived books are hidden unless
// the caller is staff and asks with ?include_archived=true; anonymous
// callers always get the default listing.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	if includeArchived {
		user := currentUser(r.Context())
		if user == nil || !allowed(opBookListArchived, user.Role) {
			includeArchived = false
		}
	}

	books, err := s.bookService.List(r.Context(), includeArchived)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleListArchivedBooks returns only archived books.
func (s *Server) handleListArchivedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.bookService.ListArchived(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleGetBook returns a single book with all its pages.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.bookService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handlePublishBook creates a book from a multipart upload: metadata
// fields, an optional "cover" file, and zero or more "pages" files in
// reading order.
func (s *Server) handlePublishBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.HandleError(w, domainerrors.Validation("invalid multipart form").WithCause(err), s.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	year := 0
	if raw := r.FormValue("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.HandleError(w, domainerrors.Validation("year must be a number"), s.logger)
			return
		}
		year = parsed
	}

	req := service.PublishRequest{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		Publisher:   r.FormValue("publisher"),
		Year:        year,
		Description: r.FormValue("description"),
		Categories:  normalize.SplitCategories(r.FormValue("categories")),
	}

	cover, closeCover, err := s.singleFile(r, "cover")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer closeCover()

	pages, closePages, err := s.fileList(r, "pages")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer closePages()

	result, err := s.bookService.Publish(r.Context(), currentUser(r.Context()), req, cover, pages)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, result, s.logger)
}

// handleAppendPages runs uploaded scans through the pipeline and appends
// the results to an existing book.
func (s *Server) handleAppendPages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.HandleError(w, domainerrors.Validation("invalid multipart form").WithCause(err), s.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	pages, closePages, err := s.fileList(r, "pages")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	defer closePages()

	result, err := s.bookService.AppendPages(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), pages)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// editTextRequest carries replacement page text.
type editTextRequest struct {
	Text string `json:"text"`
}

// handleEditPageText replaces one page's extracted text.
func (s *Server) handleEditPageText(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.HandleError(w, domainerrors.Validation("page index must be a number"), s.logger)
		return
	}

	var req editTextRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.bookService.EditPageText(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), index, req.Text)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// editDescriptionRequest carries a replacement description.
type editDescriptionRequest struct {
	Description string `json:"description"`
}

// handleEditDescription replaces a book's description.
func (s *Server) handleEditDescription(w http.ResponseWriter, r *http.Request) {
	var req editDescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.bookService.EditDescription(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleArchiveBook hides a book from the default listing.
func (s *Server) handleArchiveBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.bookService.Archive(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleRestoreBook returns an archived book to the default listing.
func (s *Server) handleRestoreBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.bookService.Restore(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleDeleteBook permanently removes a book.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.bookService.Delete(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleOCRPreview extracts text from a single image without storing it.
func (s *Server) handleOCRPreview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.HandleError(w, domainerrors.Validation("invalid multipart form").WithCause(err), s.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, closeFile, err := s.singleFile(r, "image")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if file == nil {
		response.HandleError(w, domainerrors.Validation("an image file is required"), s.logger)
		return
	}
	defer closeFile()

	preview, err := s.bookService.ExtractPreview(r.Context(), currentUser(r.Context()), *file)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, preview, s.logger)
}

// handleListCategories returns every category in use.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.bookService.Categories(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, categories, s.logger)
}

// singleFile opens the first file under a multipart field name. Returns nil
// when the field is absent; the returned closer is always safe to call.
func (s *Server) singleFile(r *http.Request, field string) (*ingest.PageFile, func(), error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, func() {}, nil
	}

	f, err := headers[0].Open()
	if err != nil {
		return nil, func() {}, domainerrors.Validationf("failed to open uploaded file %q", headers[0].Filename).WithCause(err)
	}

	return &ingest.PageFile{Name: headers[0].Filename, Reader: f}, func() { _ = f.Close() }, nil
}

// fileList opens every file under a multipart field name, preserving the
// order the client sent them in. Page order comes from exactly this.
func (s *Server) fileList(r *http.Request, field string) ([]ingest.PageFile, func(), error) {
	headers := r.MultipartForm.File[field]

	files := make([]ingest.PageFile, 0, len(headers))
	closers := make([]func() error, 0, len(headers))
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, domainerrors.Validationf("failed to open uploaded file %q", h.Filename).WithCause(err)
		}
		closers = append(closers, f.Close)
		files = append(files, ingest.PageFile{Name: h.Filename, Reader: f})
	}

	return files, closeAll, nil
}
