package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/openarklib/openark-server/internal/domain"
	"github.com/openarklib/openark-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyUser contextKey = "user"

// requireAuth validates the Bearer token and attaches the current user to
// the request context. The user record is loaded fresh from the store on
// every request, so deactivation and role changes apply immediately.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header", s.logger)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "invalid authorization header format", s.logger)
			return
		}

		user, err := s.authService.VerifyToken(r.Context(), parts[1])
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth attaches the current user when a valid Bearer token is
// present and continues anonymously otherwise. Used on public reads whose
// behavior is richer for staff (archived listings).
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if user, err := s.authService.VerifyToken(r.Context(), parts[1]); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), contextKeyUser, user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authorize gates a route on the policy table. Must run after requireAuth.
func (s *Server) authorize(op operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r.Context())
			if user == nil {
				response.Unauthorized(w, "authentication required", s.logger)
				return
			}
			if !allowed(op, user.Role) {
				response.Forbidden(w, "insufficient permissions", s.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentUser returns the authenticated user from context, or nil.
func currentUser(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}
