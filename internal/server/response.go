package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/driveclone/internal/shared"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps sentinel errors onto HTTP statuses.
// Validation errors surface their message; anything unrecognized is a 500.
func writeError(w http.ResponseWriter, err error) {
	status, message := mapError(err)
	writeJSON(w, status, ErrorResponse{Error: message})
}

func mapError(err error) (int, string) {
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, validationErr.Message
	}

	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidLink):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, shared.ErrJobNotFound), errors.Is(err, shared.ErrFileNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shared.ErrJobActive),
		errors.Is(err, shared.ErrBusy),
		errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrJobFinalized):
		return http.StatusConflict, err.Error()
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrNetwork):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
