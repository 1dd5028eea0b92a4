package warehouse

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("warehouse: not found")

// Warehouse is a return destination. The warehouse directory itself is an
// external collaborator; this system only resolves ids to shipping details.
type Warehouse struct {
	ID       string
	Name     string
	Location string
	Active   bool
}

type Repository interface {
	Get(ctx context.Context, id string) (*Warehouse, error)
	List(ctx context.Context) ([]*Warehouse, error)
	Save(ctx context.Context, w *Warehouse) error
}
