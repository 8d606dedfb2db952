package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// StaticDirectory is an in-memory Directory for testing and local
// development. Accounts resolve by both username and subject ID.
type StaticDirectory struct {
	mu       sync.RWMutex
	accounts map[string]model.Account // keyed by username and subject ID
}

// NewStaticDirectory creates an empty static directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		accounts: make(map[string]model.Account),
	}
}

// Add registers an account under its username and subject ID.
func (d *StaticDirectory) Add(account model.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[account.Username] = account
	d.accounts[account.SubjectID] = account
}

// ResolveUser looks up an account by username or subject ID.
func (d *StaticDirectory) ResolveUser(_ context.Context, identifier string) (model.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, exists := d.accounts[identifier]
	if !exists {
		return model.Account{}, model.NewNotFoundError(
			fmt.Sprintf("user %q not found", identifier),
		)
	}
	return account, nil
}

// HealthCheck always succeeds for the static directory.
func (d *StaticDirectory) HealthCheck(_ context.Context) error {
	return nil
}
