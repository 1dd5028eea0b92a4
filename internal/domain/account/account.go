package account

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("account: not found")

// Account is the slice of the user directory checkout needs. Authentication
// and session issuance live outside this system.
type Account struct {
	ID       string
	Name     string
	Email    string
	Verified bool
}

type Directory interface {
	Get(ctx context.Context, id string) (*Account, error)
}
