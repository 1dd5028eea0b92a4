package memory

import (
	"context"
	"sync"

	domain "github.com/tiendalino/commerce-core/internal/domain/account"
)

type AccountDirectory struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{accounts: make(map[string]*domain.Account)}
}

func (d *AccountDirectory) Get(ctx context.Context, id string) (*domain.Account, error) {
	_ = ctx

	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (d *AccountDirectory) Put(a *domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()

	clone := *a
	d.accounts[a.ID] = &clone
}
