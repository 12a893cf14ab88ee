// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Sentinel errors for the HTTP layer.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

type detailed interface {
	Details() []string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var details []string
	var d detailed
	if errors.As(err, &d) {
		details = d.Details()
	}
	switch {
	case errors.Is(err, shared.ErrNotFound):
		ProblemWithErrors(w, http.StatusNotFound, "Not Found", err.Error(), details)
	case errors.Is(err, shared.ErrValidation), errors.Is(err, ErrBadRequest):
		ProblemWithErrors(w, http.StatusBadRequest, "Validation Failed", err.Error(), details)
	case errors.Is(err, shared.ErrConflict):
		ProblemWithErrors(w, http.StatusConflict, "Conflict", err.Error(), details)
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
