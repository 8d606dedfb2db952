// Package integration provides a reusable test harness for end-to-end
// testing of the enrollment server. It starts a full HTTP server with an
// in-memory store, a static user directory, and a test JWT issuer.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
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
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/transport"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

const harnessSalt = "integration-test-salt"

// TestHarness encapsulates a fully wired server instance for integration
// testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server
	issuer *tokenIssuer

	// Internal components exposed for advanced test scenarios.
	Store     *store.MemoryStore
	Directory *directory.StaticDirectory
	Tokens    *token.Codec
	Mailer    *CapturingMailer

	cfg *config.Config
}

// CapturingMailer records every message handed to it instead of sending.
type CapturingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *CapturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of all captured messages.
func (m *CapturingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// NewTestHarness creates and starts a full server test instance. The server
// is automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	h := &TestHarness{
		t:         t,
		Store:     store.NewMemoryStore(),
		Directory: directory.NewStaticDirectory(),
		Tokens:    token.NewCodec(harnessSalt),
		Mailer:    &CapturingMailer{},
	}
	h.issuer = newTokenIssuer(t)

	h.cfg = &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			HandlerTimeout: 10 * time.Second,
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"http://localhost:3000"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Identity: config.IdentityConfig{
			Issuer:     h.issuer.Issuer(),
			Audience:   h.issuer.Audience(),
			JWKSURL:    h.issuer.JWKSURL(),
			Algorithms: []string{"RS256"},
		},
		Observability: config.ObservabilityConfig{
			Metrics: config.MetricsConfig{Path: "/metrics"},
		},
	}

	resolver := access.NewResolver(h.Tokens)
	appointments := service.NewAppointmentService(h.Store, h.Directory, resolver)
	enrollments := service.NewEnrollmentService(h.Store, resolver, h.Tokens, h.Mailer, zap.NewNop(), "https://frontend.test")

	jwks := transport.NewJWKSClient(h.issuer.JWKSURL(), 1*time.Hour)

	router := transport.NewRouter(transport.Dependencies{
		Config:       h.cfg,
		Appointments: appointments,
		Enrollments:  enrollments,
		Authenticate: transport.OptionalJWTAuthenticator(h.cfg.Identity, jwks),
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// GenerateToken creates a valid JWT token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.issuer.GenerateToken(claims)
}

// GenerateExpiredToken creates a JWT that has already expired.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.issuer.GenerateExpiredToken(claims)
}

// AddAccount registers an account in the static user directory.
func (h *TestHarness) AddAccount(account model.Account) {
	h.Directory.Add(account)
}

// --- HTTP client helpers ---

// GET performs a GET request. An empty token sends no Authorization header.
func (h *TestHarness) GET(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, token)
}

// POST performs a POST request with a JSON body.
func (h *TestHarness) POST(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token)
}

// PUT performs a PUT request with a JSON body.
func (h *TestHarness) PUT(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("PUT", path, body, token)
}

// DELETE performs a DELETE request.
func (h *TestHarness) DELETE(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("DELETE", path, nil, token)
}

func (h *TestHarness) doRequest(method, path string, body any, token string) *http.Response {
	h.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, h.server.URL+path, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target. The
// target is zeroed first so a reused struct never carries values from a
// previous response into fields the new body omits.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if v := reflect.ValueOf(target); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Default test claims ---

// CreatorClaims returns TestClaims for the usual appointment creator.
func CreatorClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-creator",
		Email:     "creator@example.org",
	}
}

// AdminClaims returns TestClaims for a user appointed as administrator.
func AdminClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-admin",
		Email:     "admin@example.org",
	}
}

// EnrolleeClaims returns TestClaims for an ordinary participant.
func EnrolleeClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-enrollee",
		Email:     "enrollee@example.org",
	}
}

// AppointmentFixture returns a request body for a typical open appointment.
func AppointmentFixture(link string) map[string]any {
	return map[string]any{
		"title":    "Sommerfest",
		"link":     link,
		"location": "Vereinsheim",
		"date":     time.Now().Add(14 * 24 * time.Hour),
		"deadline": time.Now().Add(7 * 24 * time.Hour),
	}
}
