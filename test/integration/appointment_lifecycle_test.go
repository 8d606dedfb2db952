package integration

import (
	"net/http"
	"testing"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

func TestAppointmentLifecycle(t *testing.T) {
	h := NewTestHarness(t)
	creator := h.GenerateToken(CreatorClaims())

	// Create.
	var created struct {
		Link      string   `json:"link"`
		Title     string   `json:"title"`
		Relations []string `json:"relations"`
	}
	resp := h.POST("/appointments", AppointmentFixture("sommerfest"), creator)
	h.AssertJSON(t, resp, http.StatusCreated, &created)
	if created.Link != "sommerfest" {
		t.Fatalf("link = %q, want sommerfest", created.Link)
	}
	if len(created.Relations) != 1 || created.Relations[0] != "CREATOR" {
		t.Errorf("relations = %v, want [CREATOR]", created.Relations)
	}

	// Read back anonymously.
	var fetched struct {
		Title     string   `json:"title"`
		Location  string   `json:"location"`
		Relations []string `json:"relations"`
	}
	resp = h.GET("/appointments/sommerfest", "")
	h.AssertJSON(t, resp, http.StatusOK, &fetched)
	if fetched.Title != "Sommerfest" {
		t.Errorf("title = %q, want Sommerfest", fetched.Title)
	}
	if len(fetched.Relations) != 0 {
		t.Errorf("anonymous relations = %v, want none", fetched.Relations)
	}

	// Update by the creator.
	var updated struct {
		Title    string `json:"title"`
		Location string `json:"location"`
	}
	resp = h.PUT("/appointments/sommerfest", map[string]any{"location": "Stadtpark"}, creator)
	h.AssertJSON(t, resp, http.StatusOK, &updated)
	if updated.Location != "Stadtpark" {
		t.Errorf("location = %q, want Stadtpark", updated.Location)
	}
	if updated.Title != "Sommerfest" {
		t.Errorf("partial update must not clear the title, got %q", updated.Title)
	}

	// A stranger may not update.
	stranger := h.GenerateToken(EnrolleeClaims())
	resp = h.PUT("/appointments/sommerfest", map[string]any{"title": "Hijacked"}, stranger)
	h.AssertStatus(t, resp, http.StatusForbidden)
}

func TestAdministratorLifecycle(t *testing.T) {
	h := NewTestHarness(t)
	h.AddAccount(model.Account{SubjectID: "user-admin", Username: "berta", DisplayName: "Berta B."})

	creator := h.GenerateToken(CreatorClaims())
	admin := h.GenerateToken(AdminClaims())

	resp := h.POST("/appointments", AppointmentFixture("sommerfest"), creator)
	h.AssertStatus(t, resp, http.StatusCreated)

	// Before being appointed, the admin-to-be cannot update.
	resp = h.PUT("/appointments/sommerfest", map[string]any{"title": "Changed"}, admin)
	h.AssertStatus(t, resp, http.StatusForbidden)

	// Only the creator may appoint.
	resp = h.POST("/appointments/sommerfest/administrators", map[string]any{"username": "berta"}, admin)
	h.AssertStatus(t, resp, http.StatusForbidden)

	resp = h.POST("/appointments/sommerfest/administrators", map[string]any{"username": "berta"}, creator)
	h.AssertStatus(t, resp, http.StatusNoContent)

	// Appointing the same user twice conflicts.
	resp = h.POST("/appointments/sommerfest/administrators", map[string]any{"username": "berta"}, creator)
	h.AssertStatus(t, resp, http.StatusConflict)

	// The administrator may now manage the appointment, but not appoint others.
	resp = h.PUT("/appointments/sommerfest", map[string]any{"title": "Changed"}, admin)
	h.AssertStatus(t, resp, http.StatusOK)
	resp = h.POST("/appointments/sommerfest/administrators", map[string]any{"username": "berta"}, admin)
	h.AssertStatus(t, resp, http.StatusForbidden)

	// Revocation restores the old state.
	resp = h.DELETE("/appointments/sommerfest/administrators/berta", creator)
	h.AssertStatus(t, resp, http.StatusNoContent)
	resp = h.PUT("/appointments/sommerfest", map[string]any{"title": "Again"}, admin)
	h.AssertStatus(t, resp, http.StatusForbidden)
}

func TestRelevantAppointments_relations(t *testing.T) {
	h := NewTestHarness(t)
	creator := h.GenerateToken(CreatorClaims())
	enrollee := h.GenerateToken(EnrolleeClaims())

	resp := h.POST("/appointments", AppointmentFixture("sommerfest"), creator)
	h.AssertStatus(t, resp, http.StatusCreated)
	resp = h.POST("/appointments", AppointmentFixture("wandertag"), creator)
	h.AssertStatus(t, resp, http.StatusCreated)

	resp = h.POST("/appointments/sommerfest/enrollments", map[string]any{"name": "Emil"}, enrollee)
	h.AssertStatus(t, resp, http.StatusCreated)
	resp = h.POST("/appointments/wandertag/pin", nil, enrollee)
	h.AssertStatus(t, resp, http.StatusNoContent)

	var list []struct {
		Link      string   `json:"link"`
		Relations []string `json:"relations"`
	}
	resp = h.GET("/appointments", enrollee)
	h.AssertJSON(t, resp, http.StatusOK, &list)

	if len(list) != 2 {
		t.Fatalf("relevant count = %d, want 2", len(list))
	}
	relations := make(map[string][]string, len(list))
	for _, item := range list {
		relations[item.Link] = item.Relations
	}
	if got := relations["sommerfest"]; len(got) != 1 || got[0] != "ENROLLED" {
		t.Errorf("sommerfest relations = %v, want [ENROLLED]", got)
	}
	if got := relations["wandertag"]; len(got) != 1 || got[0] != "PINNED" {
		t.Errorf("wandertag relations = %v, want [PINNED]", got)
	}
}
