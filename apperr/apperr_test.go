package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("Booking")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", Conflict("nope"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("raw")))
	assert.True(t, Is(Forbidden("x"), KindForbidden))
	assert.False(t, Is(nil, KindForbidden))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindForbidden:    http.StatusForbidden,
		KindConflict:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "failed to load booking")

	assert.Equal(t, "failed to load booking", PublicMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", PublicMessage(cause))
}

func TestMessagesAndStack(t *testing.T) {
	err := NotFound("Package")
	assert.Equal(t, "Package not found", err.Error())
	assert.Contains(t, StackOf(err), "TestMessagesAndStack")
	assert.Empty(t, StackOf(errors.New("plain")))
}
