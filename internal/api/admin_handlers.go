package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openarklib/openark-server/internal/domain"
	domainerrors "github.com/openarklib/openark-server/internal/errors"
	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/service"
)

// handleListUsers returns all users, or just the approval queue with
// ?pending=true.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	pendingOnly := r.URL.Query().Get("pending") == "true"

	users, err := s.userService.List(r.Context(), pendingOnly)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	for _, u := range users {
		u.PasswordHash = ""
	}
	response.Success(w, users, s.logger)
}

// handleApproveUser activates a pending account.
func (s *Server) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Approve(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user.PasswordHash = ""
	response.Success(w, user, s.logger)
}

// roleRequest carries a role assignment.
type roleRequest struct {
	Role domain.Role `json:"role"`
}

// handleSetUserRole changes a user's role.
func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user, err := s.userService.SetRole(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user.PasswordHash = ""
	response.Success(w, user, s.logger)
}

// handleDeactivateUser suspends an account.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.userService.Deactivate(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	user.PasswordHash = ""
	response.Success(w, user, s.logger)
}

// handleDeleteUser permanently removes an account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.userService.Delete(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleListActivity returns the activity log, newest first. Cursor
// pagination via ?before=<RFC3339>&before_id=<id>&limit=<n>.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	params := service.ListParams{}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.HandleError(w, domainerrors.Validation("before must be an RFC3339 timestamp"), s.logger)
			return
		}
		params.Before = &before
		params.BeforeID = r.URL.Query().Get("before_id")
	}

	activities, err := s.activityService.List(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, activities, s.logger)
}

// pruneRequest carries the prune cutoff.
type pruneRequest struct {
	Before time.Time `json:"before"`
}

// handlePruneActivity deletes activity records older than the cutoff.
func (s *Server) handlePruneActivity(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.Before.IsZero() {
		response.HandleError(w, domainerrors.Validation("before cutoff is required"), s.logger)
		return
	}

	deleted, err := s.activityService.Prune(r.Context(), currentUser(r.Context()).Name, req.Before)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]int64{"deleted": deleted}, s.logger)
}

// handleGetReport returns the library summary snapshot.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reportService.Get(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, snap, s.logger)
}

// handleListBackups returns all library store snapshots, newest first.
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.backupService.List()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, snapshots, s.logger)
}

// handleCreateBackup writes a new library store snapshot.
func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backupService.Create(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, snap, s.logger)
}
