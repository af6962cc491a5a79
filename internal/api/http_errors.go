package api

import (
	"net/http"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

// httpStatusForError maps every domain error category onto a status code.
// The mapping is total: an unrecognized error is an internal server error.
func httpStatusForError(err error) int {
	switch core.GetCategory(err) {
	case core.ErrCatValidation:
		return http.StatusBadRequest
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatAlreadyExists:
		return http.StatusConflict
	case core.ErrCatGateway, core.ErrCatRateLimit:
		return http.StatusBadGateway
	case core.ErrCatPrompt:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
