package ledger

import "context"

// Filter narrows a movement listing. Zero values mean "no constraint".
type Filter struct {
	ProductID string
	Direction Direction
	Limit     int
}

// Repository is an append-only journal; movements are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, m *Movement) error
	List(ctx context.Context, f Filter) ([]*Movement, error)
}
