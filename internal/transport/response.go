// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the enrollment API.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrNotFound:                http.StatusNotFound,
	model.ErrDuplicateValues:         http.StatusConflict,
	model.ErrMissingValues:           http.StatusUnprocessableEntity,
	model.ErrInvalidValues:           http.StatusUnprocessableEntity,
	model.ErrInsufficientPermissions: http.StatusForbidden,
	model.ErrGone:                    http.StatusGone,
	model.ErrUnauthorized:            http.StatusUnauthorized,
	model.ErrInternalError:           http.StatusInternalServerError,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an ErrorEnvelope as a JSON response with the correct
// HTTP status code. If err is not an *ErrorEnvelope, a generic 500 is
// returned.
func WriteError(w http.ResponseWriter, err error) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		ee = model.NewInternalError()
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}
