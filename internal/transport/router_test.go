package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/access"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/config"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/directory"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/mail"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/service"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/store"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/token"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// headerAuth authenticates requests carrying an X-Test-Subject header by
// injecting a matching claim set, standing in for the JWT middleware.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub := r.Header.Get("X-Test-Subject"); sub != "" {
			r = r.WithContext(WithClaims(r.Context(), map[string]any{"sub": sub}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(t *testing.T) (http.Handler, *directory.StaticDirectory) {
	t.Helper()

	st := store.NewMemoryStore()
	dir := directory.NewStaticDirectory()
	tokens := token.NewCodec("router-test-salt")
	resolver := access.NewResolver(tokens)

	appointments := service.NewAppointmentService(st, dir, resolver)
	enrollments := service.NewEnrollmentService(st, resolver, tokens, mail.NewLogMailer(zap.NewNop()), zap.NewNop(), "https://frontend.example")

	return NewRouter(Dependencies{
		Config:       config.Defaults(),
		Appointments: appointments,
		Enrollments:  enrollments,
		Authenticate: headerAuth,
	}), dir
}

func doJSON(t *testing.T, h http.Handler, method, target, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if subject != "" {
		req.Header.Set("X-Test-Subject", subject)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createTestAppointment(t *testing.T, h http.Handler, subject, link string) {
	t.Helper()
	deadline := time.Now().Add(24 * time.Hour)
	rec := doJSON(t, h, http.MethodPost, "/appointments", subject, map[string]any{
		"title":    "Team outing",
		"link":     link,
		"deadline": deadline,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create appointment: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_healthEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_createAppointment_requiresAuth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/appointments", "", map[string]any{
		"title":    "Team outing",
		"deadline": time.Now().Add(time.Hour),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_createAppointment(t *testing.T) {
	h, _ := newTestRouter(t)

	deadline := time.Now().Add(24 * time.Hour)
	rec := doJSON(t, h, http.MethodPost, "/appointments", "user-1", map[string]any{
		"title":    "Team outing",
		"link":     "outing",
		"deadline": deadline,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/appointments/outing" {
		t.Errorf("Location = %q, want /appointments/outing", loc)
	}

	var body struct {
		Link      string   `json:"link"`
		Relations []string `json:"relations"`
	}
	decodeBody(t, rec, &body)
	if body.Link != "outing" {
		t.Errorf("link = %q, want outing", body.Link)
	}
	if len(body.Relations) != 1 || body.Relations[0] != "CREATOR" {
		t.Errorf("relations = %v, want [CREATOR]", body.Relations)
	}
}

func TestRouter_createAppointment_badBody(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
	req.Header.Set("X-Test-Subject", "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestRouter_getAppointment_notFound(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/appointments/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRouter_anonymousEnrollmentLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)
	createTestAppointment(t, h, "owner-1", "outing")

	// Anonymous enrollment returns a one-time capability token.
	rec := doJSON(t, h, http.MethodPost, "/appointments/outing/enrollments", "", map[string]any{
		"name": "Berta",
		"mail": "berta@example.org",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create enrollment: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	decodeBody(t, rec, &created)
	if created.Token == "" {
		t.Fatal("anonymous enrollment should return a token")
	}

	// Without the token the enrollment cannot be edited.
	rec = doJSON(t, h, http.MethodPut, "/appointments/outing/enrollments/"+created.ID, "", map[string]any{
		"comment": "late arrival",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("update without token: status = %d, want 403", rec.Code)
	}

	// With the token the edit goes through.
	rec = doJSON(t, h, http.MethodPut, "/appointments/outing/enrollments/"+created.ID+"?token="+created.Token, "", map[string]any{
		"comment": "late arrival",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update with token: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// And so does the delete.
	rec = doJSON(t, h, http.MethodDelete, "/appointments/outing/enrollments/"+created.ID+"?token="+created.Token, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete with token: status = %d", rec.Code)
	}
}

func TestRouter_authenticatedEnrollment_hasNoToken(t *testing.T) {
	h, _ := newTestRouter(t)
	createTestAppointment(t, h, "owner-1", "outing")

	rec := doJSON(t, h, http.MethodPost, "/appointments/outing/enrollments", "user-2", map[string]any{
		"name": "Carla",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Token         string `json:"token"`
		CreatedByUser bool   `json:"createdByUser"`
	}
	decodeBody(t, rec, &created)
	if created.Token != "" {
		t.Error("authenticated enrollment should not return a token")
	}
	if !created.CreatedByUser {
		t.Error("createdByUser should be true")
	}
}

func TestRouter_enrollmentAfterDeadline_gone(t *testing.T) {
	h, _ := newTestRouter(t)

	past := time.Now().Add(-time.Hour)
	rec := doJSON(t, h, http.MethodPost, "/appointments", "owner-1", map[string]any{
		"title":    "Closed event",
		"link":     "closed",
		"deadline": past,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create appointment: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/appointments/closed/enrollments", "user-2", map[string]any{
		"name": "Late",
	})
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
}

func TestRouter_administratorManagement(t *testing.T) {
	h, dir := newTestRouter(t)
	dir.Add(model.Account{SubjectID: "admin-sub", Username: "berta", DisplayName: "Berta B."})
	createTestAppointment(t, h, "owner-1", "outing")

	// Only the creator may appoint administrators.
	rec := doJSON(t, h, http.MethodPost, "/appointments/outing/administrators", "user-2", map[string]any{
		"username": "berta",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-creator add: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/appointments/outing/administrators", "owner-1", map[string]any{
		"username": "berta",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("creator add: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Unknown usernames are rejected by the directory lookup.
	rec = doJSON(t, h, http.MethodPost, "/appointments/outing/administrators", "owner-1", map[string]any{
		"username": "nobody",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user add: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/appointments/outing/administrators/berta", "owner-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: status = %d", rec.Code)
	}
}

func TestRouter_hiddenRosterFiltering(t *testing.T) {
	h, _ := newTestRouter(t)

	deadline := time.Now().Add(24 * time.Hour)
	rec := doJSON(t, h, http.MethodPost, "/appointments", "owner-1", map[string]any{
		"title":    "Hidden event",
		"link":     "hidden",
		"deadline": deadline,
		"hidden":   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create appointment: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/appointments/hidden/enrollments", "user-2", map[string]any{"name": "Mine"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll user-2: status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/appointments/hidden/enrollments", "user-3", map[string]any{"name": "Other"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll user-3: status = %d", rec.Code)
	}

	var view struct {
		Enrollments []struct {
			Name string `json:"name"`
		} `json:"enrollments"`
	}

	// The creator sees the full roster.
	rec = doJSON(t, h, http.MethodGet, "/appointments/hidden", "owner-1", nil)
	decodeBody(t, rec, &view)
	if len(view.Enrollments) != 2 {
		t.Errorf("creator sees %d enrollments, want 2", len(view.Enrollments))
	}

	// An enrolled user sees only their own entry.
	rec = doJSON(t, h, http.MethodGet, "/appointments/hidden", "user-2", nil)
	decodeBody(t, rec, &view)
	if len(view.Enrollments) != 1 || view.Enrollments[0].Name != "Mine" {
		t.Errorf("user-2 sees %v, want only their own enrollment", view.Enrollments)
	}

	// A stranger sees an empty roster.
	rec = doJSON(t, h, http.MethodGet, "/appointments/hidden", "", nil)
	decodeBody(t, rec, &view)
	if len(view.Enrollments) != 0 {
		t.Errorf("stranger sees %d enrollments, want 0", len(view.Enrollments))
	}
}

func TestRouter_pinAndRelevant(t *testing.T) {
	h, _ := newTestRouter(t)
	createTestAppointment(t, h, "owner-1", "outing")

	rec := doJSON(t, h, http.MethodPost, "/appointments/outing/pin", "user-2", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("pin: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/appointments", "user-2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("relevant: status = %d", rec.Code)
	}
	var list []struct {
		Link      string   `json:"link"`
		Relations []string `json:"relations"`
	}
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Link != "outing" {
		t.Fatalf("relevant = %v, want just outing", list)
	}
	if len(list[0].Relations) != 1 || list[0].Relations[0] != "PINNED" {
		t.Errorf("relations = %v, want [PINNED]", list[0].Relations)
	}

	// Unpin removes it from the relevant list.
	rec = doJSON(t, h, http.MethodDelete, "/appointments/outing/pin", "user-2", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unpin: status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/appointments", "user-2", nil)
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Errorf("relevant after unpin = %v, want empty", list)
	}
}

func TestRouter_anonymousRelevant_byPinQuery(t *testing.T) {
	h, _ := newTestRouter(t)
	createTestAppointment(t, h, "owner-1", "outing")

	rec := doJSON(t, h, http.MethodGet, "/appointments?pin=outing", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []struct {
		Link string `json:"link"`
	}
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Link != "outing" {
		t.Errorf("relevant = %v, want outing via pin query", list)
	}
}
