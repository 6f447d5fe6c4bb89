package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/service"
)

// handleSignup registers a new student account.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	resp, err := s.authService.Signup(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin authenticates a user and returns an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	// The password hash never leaves the server, even to its owner.
	resp.User.PasswordHash = ""
	response.Success(w, resp, s.logger)
}

// handleGetCurrentUser returns the authenticated user's own record.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	user.PasswordHash = ""
	response.Success(w, user, s.logger)
}

// positionRequest carries a reading position update.
type positionRequest struct {
	PageIndex int `json:"page_index"`
}

// handleSetReadingPosition saves where the user left off in a book.
func (s *Server) handleSetReadingPosition(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	bookID := chi.URLParam(r, "bookID")

	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.userService.SetReadingPosition(r.Context(), user, bookID, req.PageIndex); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// bookmarkRequest identifies a page to bookmark or unbookmark.
type bookmarkRequest struct {
	BookID    string `json:"book_id"`
	PageIndex int    `json:"page_index"`
}

// handleAddBookmark marks a page for later.
func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	var req bookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.userService.AddBookmark(r.Context(), user, req.BookID, req.PageIndex); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRemoveBookmark removes a bookmark.
func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	var req bookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.userService.RemoveBookmark(r.Context(), user, req.BookID, req.PageIndex); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
