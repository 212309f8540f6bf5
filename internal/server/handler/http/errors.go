package http

import (
	"errors"
	"net/http"

	"github.com/atinyakov/GophLedger/internal/models"
)

// statusFor maps the error kinds of the models package to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Internal failures are not echoed.
func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	http.Error(w, msg, code)
}
