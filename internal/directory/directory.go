// Package directory resolves user identifiers against the identity
// provider's user directory.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// Directory looks up accounts in the identity provider.
type Directory interface {
	// ResolveUser looks up an account by username or subject ID. Returns
	// NOT_FOUND if no account matches.
	ResolveUser(ctx context.Context, identifier string) (model.Account, error)

	// HealthCheck verifies the directory is reachable.
	HealthCheck(ctx context.Context) error
}

// HTTPDirectory resolves users against the identity provider's admin API.
type HTTPDirectory struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewHTTPDirectory creates a directory client for the given base URL.
func NewHTTPDirectory(baseURL, apiToken string, timeout time.Duration) *HTTPDirectory {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: timeout},
	}
}

// ResolveUser looks up an account by username or subject ID.
func (d *HTTPDirectory) ResolveUser(ctx context.Context, identifier string) (model.Account, error) {
	endpoint := fmt.Sprintf("%s/users/%s", d.baseURL, url.PathEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Account{}, fmt.Errorf("directory: build request: %w", err)
	}
	if d.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return model.Account{}, fmt.Errorf("directory: resolve user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.Account{}, model.NewNotFoundError(
			fmt.Sprintf("user %q not found", identifier),
		)
	case resp.StatusCode != http.StatusOK:
		return model.Account{}, fmt.Errorf("directory: unexpected status %d", resp.StatusCode)
	}

	var account model.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return model.Account{}, fmt.Errorf("directory: decode response: %w", err)
	}
	if account.SubjectID == "" {
		return model.Account{}, fmt.Errorf("directory: response for %q carries no subject id", identifier)
	}
	return account, nil
}

// HealthCheck probes the directory's health endpoint.
func (d *HTTPDirectory) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory: health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory: health status %d", resp.StatusCode)
	}
	return nil
}
