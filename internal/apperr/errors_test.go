package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"login required", LoginRequired("log in"), http.StatusUnauthorized},
		{"forbidden", Unauthorized("no"), http.StatusForbidden},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"invalid state", InvalidState("already"), http.StatusConflict},
		{"bad request", BadRequest("nope"), http.StatusBadRequest},
		{"fatal", Fatal(errors.New("boom"), "failed"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", errors.Wrap(NotFound("gone"), "load order"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestKindsAreDistinct(t *testing.T) {
	err := InvalidState("Recurring contribution already canceled")
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Recurring contribution already canceled", PublicMessage(err))
}

func TestFatalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Fatal(cause, "card setup failed")

	assert.True(t, errors.Is(err, ErrFatal))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "card setup failed: connection reset", err.Error())
	assert.Equal(t, "card setup failed", PublicMessage(err))
	assert.Equal(t, "internal error", PublicMessage(errors.New("raw")))
}
