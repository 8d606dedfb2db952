package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != 200 {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if xct := w.Header().Get("X-Content-Type-Options"); xct != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", xct)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteError_envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewNotFoundError("Appointment not found"))

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}

	var resp struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", resp.Error.Code)
	}
}

func TestWriteError_non_envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("something went wrong"))

	if w.Code != 500 {
		t.Errorf("status = %d, want 500 for non-envelope error", w.Code)
	}
}

func TestWriteError_wrappedEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, fmt.Errorf("update appointment: %w", model.NewInsufficientPermissionsError()))

	if w.Code != 403 {
		t.Errorf("status = %d, want 403 for wrapped envelope", w.Code)
	}
}

func TestStatusForCode_coverage(t *testing.T) {
	codes := []struct {
		code   string
		status int
	}{
		{model.ErrNotFound, 404},
		{model.ErrDuplicateValues, 409},
		{model.ErrMissingValues, 422},
		{model.ErrInvalidValues, 422},
		{model.ErrInsufficientPermissions, 403},
		{model.ErrGone, 410},
		{model.ErrUnauthorized, 401},
		{model.ErrInternalError, 500},
	}
	for _, tc := range codes {
		if got := statusForCode[tc.code]; got != tc.status {
			t.Errorf("statusForCode[%s] = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestWriteError_detailsPreserved(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, model.NewMissingValuesError("title", "deadline"))

	var resp struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Error.Details) != 2 {
		t.Fatalf("details = %v, want [title deadline]", resp.Error.Details)
	}
	if resp.Error.Details[0] != "title" || resp.Error.Details[1] != "deadline" {
		t.Errorf("details = %v, want [title deadline]", resp.Error.Details)
	}
}
