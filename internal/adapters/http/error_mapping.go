package httpadapter

import (
	"errors"
	"net/http"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/core/schema"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrExtraction):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)

	var validationErr *schema.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, status, map[string]any{
			"error":  validationErr.Error(),
			"fields": validationErr.Fields,
		})
		return
	}

	writeJSON(w, status, errorBody(err.Error()))
}
