package access

import (
	"testing"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/token"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

const testSalt = "test-salt"

func testResolver() (*Resolver, *token.Codec) {
	codec := token.NewCodec(testSalt)
	return NewResolver(codec), codec
}

func appointment(creatorID string, adminIDs ...string) *model.Appointment {
	return &model.Appointment{
		ID:               "appt-1",
		Link:             "summer-party",
		CreatorID:        creatorID,
		AdministratorIDs: adminIDs,
	}
}

func TestIsCreator(t *testing.T) {
	r, _ := testResolver()
	a := appointment("u1")

	if !r.IsCreator(a, model.NewIdentity("u1")) {
		t.Error("IsCreator(creator) = false, want true")
	}
	if r.IsCreator(a, model.NewIdentity("u2")) {
		t.Error("IsCreator(other) = true, want false")
	}
	if r.IsCreator(a, model.Anonymous) {
		t.Error("IsCreator(Anonymous) = true, want false")
	}
}

func TestIsAdministrator(t *testing.T) {
	r, _ := testResolver()

	if !r.IsAdministrator(appointment("u1", "u2", "u3"), model.NewIdentity("u2")) {
		t.Error("IsAdministrator(listed admin) = false, want true")
	}
	if r.IsAdministrator(appointment("u1", "u2"), model.NewIdentity("u1")) {
		t.Error("IsAdministrator(creator only) = true, want false")
	}
	if r.IsAdministrator(appointment("u1"), model.NewIdentity("u2")) {
		t.Error("IsAdministrator with empty set = true, want false")
	}
	if r.IsAdministrator(appointment("u1", "u2"), model.Anonymous) {
		t.Error("IsAdministrator(Anonymous) = true, want false")
	}
}

func TestCanManageAppointment_EitherAlone(t *testing.T) {
	r, _ := testResolver()
	a := appointment("u1", "u2")

	// Creator alone suffices.
	if !r.CanManageAppointment(a, model.NewIdentity("u1")) {
		t.Error("creator cannot manage")
	}
	// Administrator alone suffices.
	if !r.CanManageAppointment(a, model.NewIdentity("u2")) {
		t.Error("administrator cannot manage")
	}
	if r.CanManageAppointment(a, model.NewIdentity("u3")) {
		t.Error("unrelated identity can manage")
	}
	if r.CanManageAppointment(a, model.Anonymous) {
		t.Error("Anonymous can manage")
	}
}

func TestCanManageEnrollment(t *testing.T) {
	r, codec := testResolver()
	a := appointment("owner", "admin")
	e := &model.Enrollment{ID: "e1", Name: "Alice", CreatorID: "author"}

	tests := []struct {
		name     string
		identity model.Identity
		token    string
		want     bool
	}{
		{"appointment creator", model.NewIdentity("owner"), "", true},
		{"appointment administrator", model.NewIdentity("admin"), "", true},
		{"enrollment creator", model.NewIdentity("author"), "", true},
		{"stranger without token", model.NewIdentity("stranger"), "", false},
		{"stranger with valid token", model.NewIdentity("stranger"), codec.Derive("e1"), true},
		{"anonymous with valid token", model.Anonymous, codec.Derive("e1"), true},
		{"anonymous with wrong token", model.Anonymous, codec.Derive("e2"), false},
		{"anonymous without token", model.Anonymous, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.CanManageEnrollment(a, e, tt.identity, tt.token)
			if got != tt.want {
				t.Errorf("CanManageEnrollment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanManageEnrollment_AnonymousEnrollment(t *testing.T) {
	// An enrollment created without a login has no creator; the capability
	// token is the only non-administrative way in.
	r, codec := testResolver()
	a := appointment("owner")
	e := &model.Enrollment{ID: "e1", Name: "Ghost"}

	if !r.CanManageEnrollment(a, e, model.Anonymous, codec.Derive("e1")) {
		t.Error("correct token rejected for anonymous enrollment")
	}
	if r.CanManageEnrollment(a, e, model.Anonymous, "wrong") {
		t.Error("wrong token accepted for anonymous enrollment")
	}
}

func TestCanManageEnrollment_NoIDSkipsToken(t *testing.T) {
	r, codec := testResolver()
	a := appointment("owner")
	e := &model.Enrollment{Name: "unsaved"}

	// Without an id there is nothing to derive a token from; even the token
	// for the empty string must not verify.
	if r.CanManageEnrollment(a, e, model.Anonymous, codec.Derive("")) {
		t.Error("token check ran for enrollment without id")
	}
}
