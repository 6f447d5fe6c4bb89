package response

import (
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestJSON_WrapsDataInEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"id": "bk-1", "title": "Tidal Pools"}, discardLogger())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bk-1", data["id"])
	assert.Equal(t, "Tidal Pools", data["title"])
}

func TestJSON_SuccessFollowsStatusCode(t *testing.T) {
	tests := []struct {
		status      int
		wantSuccess bool
	}{
		{http.StatusOK, true},
		{http.StatusCreated, true},
		{http.StatusAccepted, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		JSON(w, tt.status, nil, discardLogger())

		env := decode(t, w)
		assert.Equal(t, tt.wantSuccess, env.Success, "status %d", tt.status)
	}
}

func TestJSON_NilLoggerIsSafe(t *testing.T) {
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		JSON(w, http.StatusOK, map[string]string{"id": "usr-1"}, nil)
	})
	assert.True(t, decode(t, w).Success)
}

func TestSuccessAndCreated(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]int{"total_books": 42}, discardLogger())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)

	w = httptest.NewRecorder()
	Created(w, map[string]string{"id": "cmt-9"}, discardLogger())
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter)
		wantStatus int
		wantError  string
	}{
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter) { BadRequest(w, "title is required", discardLogger()) },
			wantStatus: http.StatusBadRequest,
			wantError:  "title is required",
		},
		{
			name:       "unauthorized",
			write:      func(w http.ResponseWriter) { Unauthorized(w, "invalid or expired token", discardLogger()) },
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid or expired token",
		},
		{
			name:       "forbidden",
			write:      func(w http.ResponseWriter) { Forbidden(w, "only librarians may publish books", discardLogger()) },
			wantStatus: http.StatusForbidden,
			wantError:  "only librarians may publish books",
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) { NotFound(w, "book not found", discardLogger()) },
			wantStatus: http.StatusNotFound,
			wantError:  "book not found",
		},
		{
			name:       "internal",
			write:      func(w http.ResponseWriter) { InternalError(w, "internal server error", discardLogger()) },
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantStatus, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
			assert.Nil(t, env.Data)
		})
	}
}

func TestError_NilLoggerIsSafe(t *testing.T) {
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		Error(w, http.StatusBadRequest, "bad request", nil)
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnvelope_EmptyFieldsAreOmitted(t *testing.T) {
	t.Run("success omits error fields", func(t *testing.T) {
		raw, err := json.Marshal(Envelope{Success: true, Data: "x"})
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"success":true`)
		assert.NotContains(t, string(raw), `"error"`)
		assert.NotContains(t, string(raw), `"code"`)
	})

	t.Run("error omits data", func(t *testing.T) {
		raw, err := json.Marshal(Envelope{Success: false, Error: "book not found", Code: "NOT_FOUND"})
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"error":"book not found"`)
		assert.Contains(t, string(raw), `"code":"NOT_FOUND"`)
		assert.NotContains(t, string(raw), `"data"`)
	})
}
