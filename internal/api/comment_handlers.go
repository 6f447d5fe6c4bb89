package api

import (
	"encoding/json/v2"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/service"
)

// handleListComments returns a book's comments, oldest first.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.commentService.ListByBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, comments, s.logger)
}

// handleCreateComment attaches a comment to a book.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	comment, err := s.commentService.Create(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, comment, s.logger)
}

// handleDeleteComment removes a comment.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.commentService.Delete(r.Context(), currentUser(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleBookEvents streams a book's events over Server-Sent Events. The
// connection stays open until the client disconnects; heartbeats keep
// intermediaries from timing it out.
func (s *Server) handleBookEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming not supported", s.logger)
		return
	}

	client, err := s.sseManager.AddClient(chi.URLParam(r, "id"))
	if err != nil {
		response.InternalError(w, "event stream unavailable", s.logger)
		return
	}
	defer s.sseManager.RemoveClient(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case event, open := <-client.EventChan:
			if !open {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("Failed to encode SSE event", "error", err)
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
