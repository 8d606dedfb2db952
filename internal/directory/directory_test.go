package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

func TestHTTPDirectoryResolveUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/users/alice":
			json.NewEncoder(w).Encode(model.Account{
				SubjectID:   "u1",
				Username:    "alice",
				DisplayName: "Alice Example",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewHTTPDirectory(srv.URL, "admin-token", 2*time.Second)

	account, err := d.ResolveUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if account.SubjectID != "u1" || account.DisplayName != "Alice Example" {
		t.Errorf("account = %+v", account)
	}

	_, err = d.ResolveUser(context.Background(), "nobody")
	if !model.HasCode(err, model.ErrNotFound) {
		t.Errorf("unknown user error = %v, want NOT_FOUND", err)
	}
}

func TestHTTPDirectoryRejectsEmptySubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(model.Account{Username: "alice"})
	}))
	defer srv.Close()

	d := NewHTTPDirectory(srv.URL, "", time.Second)
	if _, err := d.ResolveUser(context.Background(), "alice"); err == nil {
		t.Fatal("ResolveUser accepted a response without subject id")
	}
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory()
	d.Add(model.Account{SubjectID: "u1", Username: "alice", DisplayName: "Alice"})

	byName, err := d.ResolveUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ResolveUser by username: %v", err)
	}
	bySubject, err := d.ResolveUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ResolveUser by subject: %v", err)
	}
	if byName.SubjectID != bySubject.SubjectID {
		t.Error("username and subject lookups resolved different accounts")
	}

	if _, err := d.ResolveUser(context.Background(), "bob"); !model.HasCode(err, model.ErrNotFound) {
		t.Errorf("unknown user error = %v, want NOT_FOUND", err)
	}
}
