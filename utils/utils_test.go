package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead/apperr"
	"trailhead/globals"
)

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?page=3&limit=20", nil)
	skip, limit := ParsePagination(r, 10, 50)
	assert.Equal(t, int64(40), skip)
	assert.Equal(t, int64(20), limit)

	r = httptest.NewRequest(http.MethodGet, "/x?limit=500", nil)
	skip, limit = ParsePagination(r, 10, 50)
	assert.Equal(t, int64(0), skip)
	assert.Equal(t, int64(50), limit)

	r = httptest.NewRequest(http.MethodGet, "/x?page=-1&limit=abc", nil)
	skip, limit = ParsePagination(r, 10, 50)
	assert.Equal(t, int64(0), skip)
	assert.Equal(t, int64(10), limit)

	r = httptest.NewRequest(http.MethodGet, "/x?page=9223372036854775807&limit=50", nil)
	skip, limit = ParsePagination(r, 10, 50)
	assert.Equal(t, int64((MaxPage-1)*50), skip)
	assert.Equal(t, int64(50), limit)
}

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"not found", apperr.NotFound("Booking"), http.StatusNotFound, "Booking not found"},
		{"forbidden", apperr.Forbidden("Not authorized to view this booking"), http.StatusForbidden, "Not authorized to view this booking"},
		{"raw error", errors.New("mongo: socket closed"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithAppError(w, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["message"])
			assert.NotContains(t, w.Body.String(), "socket closed")
		})
	}
}

func TestRespondWithAppError_Stack(t *testing.T) {
	globals.ExposeErrorStack = true
	defer func() { globals.ExposeErrorStack = false }()

	w := httptest.NewRecorder()
	RespondWithAppError(w, apperr.Conflict("cannot cancel"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["stack"])
}

func TestContextHelpers(t *testing.T) {
	ctx := context.WithValue(context.Background(), globals.UserIDKey, "u1")
	ctx = context.WithValue(ctx, globals.RoleKey, globals.RoleAdmin)

	assert.Equal(t, "u1", UserIDFromContext(ctx))
	assert.True(t, IsAdmin(ctx))
	assert.Equal(t, "", UserIDFromContext(context.Background()))
	assert.False(t, IsAdmin(context.Background()))
}
