package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

func TestHTTPStatusForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", core.ErrValidation(core.CodeEmptyID, "empty"), http.StatusBadRequest},
		{"not found", core.ErrNotFound("document", "x"), http.StatusNotFound},
		{"already exists", core.ErrAlreadyExists("analysis", "x"), http.StatusConflict},
		{"gateway", core.ErrGateway(core.CodeEngineFailed, "boom"), http.StatusBadGateway},
		{"rate limit", core.ErrRateLimit("429"), http.StatusBadGateway},
		{"prompt missing", core.ErrPromptMissing("analyst", "system"), http.StatusInternalServerError},
		{"plain error", errors.New("surprise"), http.StatusInternalServerError},
		{"wrapped domain error", wrap(core.ErrNotFound("deck", "x")), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := httpStatusForError(tc.err); got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func wrap(err error) error {
	return &wrappedError{err}
}

type wrappedError struct{ err error }

func (w *wrappedError) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrappedError) Unwrap() error { return w.err }
