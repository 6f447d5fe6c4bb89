// Package api provides the HTTP API server and handlers for OpenArk.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openarklib/openark-server/internal/backup"
	"github.com/openarklib/openark-server/internal/http/response"
	"github.com/openarklib/openark-server/internal/observability"
	"github.com/openarklib/openark-server/internal/ratelimit"
	"github.com/openarklib/openark-server/internal/service"
	"github.com/openarklib/openark-server/internal/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService     *service.AuthService
	userService     *service.UserService
	bookService     *service.BookService
	commentService  *service.CommentService
	activityService *service.ActivityService
	reportService   *service.ReportService
	searchService   *service.SearchService
	backupService   *backup.Service
	sseManager      *sse.Manager
	authLimiter     *ratelimit.Limiter
	router          *chi.Mux
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	authService *service.AuthService,
	userService *service.UserService,
	bookService *service.BookService,
	commentService *service.CommentService,
	activityService *service.ActivityService,
	reportService *service.ReportService,
	searchService *service.SearchService,
	backupService *backup.Service,
	sseManager *sse.Manager,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:     authService,
		userService:     userService,
		bookService:     bookService,
		commentService:  commentService,
		activityService: activityService,
		reportService:   reportService,
		searchService:   searchService,
		backupService:   backupService,
		sseManager:      sseManager,
		authLimiter:     ratelimit.New(1, 5), // Per-IP: 1 req/s sustained, burst of 5
		router:          chi.NewRouter(),
		logger:          logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(observability.HTTPMiddleware(func(r *http.Request) string {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			return rctx.RoutePattern()
		}
		return r.URL.Path
	}))
}

// setupRoutes configures all HTTP routes. Role requirements live in the
// policy table; this function only says which operation each route is.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited per IP).
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.limitByIP)
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
		})

		// Catalog reads are public so the library can be browsed without an
		// account. A token still changes behavior: staff may ask the listing
		// to include archived books.
		r.With(s.optionalAuth).Get("/books", s.handleListBooks)
		r.With(s.optionalAuth).Get("/books/{id}", s.handleGetBook)

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// Current user.
			r.With(s.authorize(opProfileRead)).Get("/me", s.handleGetCurrentUser)
			r.With(s.authorize(opProfileWrite)).Put("/me/positions/{bookID}", s.handleSetReadingPosition)
			r.With(s.authorize(opProfileWrite)).Post("/me/bookmarks", s.handleAddBookmark)
			r.With(s.authorize(opProfileWrite)).Delete("/me/bookmarks", s.handleRemoveBookmark)

			// Catalog mutations and staff listings. Registered flat rather
			// than as a /books subrouter so the public reads above can share
			// the path prefix.
			r.With(s.authorize(opBookListArchived)).Get("/books/archived", s.handleListArchivedBooks)
			r.With(s.authorize(opBookPublish)).Post("/books", s.handlePublishBook)
			r.With(s.authorize(opBookAddPages)).Post("/books/{id}/pages", s.handleAppendPages)
			r.With(s.authorize(opBookEditPage)).Put("/books/{id}/pages/{index}/text", s.handleEditPageText)
			r.With(s.authorize(opBookEditDesc)).Put("/books/{id}/description", s.handleEditDescription)
			r.With(s.authorize(opBookArchive)).Post("/books/{id}/archive", s.handleArchiveBook)
			r.With(s.authorize(opBookRestore)).Post("/books/{id}/restore", s.handleRestoreBook)
			r.With(s.authorize(opBookDelete)).Delete("/books/{id}", s.handleDeleteBook)

			// Comments live under their book.
			r.With(s.authorize(opCommentRead)).Get("/books/{id}/comments", s.handleListComments)
			r.With(s.authorize(opCommentWrite)).Post("/books/{id}/comments", s.handleCreateComment)
			r.With(s.authorize(opCommentRead)).Get("/books/{id}/events", s.handleBookEvents)

			r.With(s.authorize(opCommentDelete)).Delete("/comments/{id}", s.handleDeleteComment)

			// Text extraction preview, no book attached.
			r.With(s.authorize(opBookPreviewOCR)).Post("/ocr/preview", s.handleOCRPreview)

			// Search and browsing helpers.
			r.With(s.authorize(opSearch)).Get("/search", s.handleSearch)
			r.With(s.authorize(opBookRead)).Get("/categories", s.handleListCategories)

			// Administration.
			r.Route("/admin", func(r chi.Router) {
				r.With(s.authorize(opUserList)).Get("/users", s.handleListUsers)
				r.With(s.authorize(opUserApprove)).Post("/users/{id}/approve", s.handleApproveUser)
				r.With(s.authorize(opUserSetRole)).Put("/users/{id}/role", s.handleSetUserRole)
				r.With(s.authorize(opUserDeactivate)).Post("/users/{id}/deactivate", s.handleDeactivateUser)
				r.With(s.authorize(opUserDelete)).Delete("/users/{id}", s.handleDeleteUser)

				r.With(s.authorize(opActivityRead)).Get("/activity", s.handleListActivity)
				r.With(s.authorize(opActivityPrune)).Post("/activity/prune", s.handlePruneActivity)

				r.With(s.authorize(opReportRead)).Get("/reports/summary", s.handleGetReport)

				r.With(s.authorize(opBackupRead)).Get("/backups", s.handleListBackups)
				r.With(s.authorize(opBackupCreate)).Post("/backups", s.handleCreateBackup)
			})
		})
	})
}

// limitByIP rejects clients that hammer the auth endpoints. Keyed on the
// RealIP-resolved remote address.
func (s *Server) limitByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow(r.RemoteAddr) {
			response.Error(w, http.StatusTooManyRequests, "too many requests, slow down", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
