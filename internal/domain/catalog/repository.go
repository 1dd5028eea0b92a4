package catalog

import "context"

// Repository persists products. The three stock operations are the only way a
// counter changes and each one must be applied as a single atomic conditional
// update at the storage layer; a read-then-write without that guard is a
// correctness bug under concurrent checkouts.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	// GetBatch resolves many products in one lookup; missing ids are simply
	// absent from the result map.
	GetBatch(ctx context.Context, ids []string) (map[string]*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, p *Product) error

	// DecrementStock subtracts qty only if the current counter is >= qty,
	// otherwise it returns ErrInsufficientStock and mutates nothing.
	DecrementStock(ctx context.Context, productID, variantID string, qty int) (int, error)
	// IncrementStock adds qty to the counter.
	IncrementStock(ctx context.Context, productID, variantID string, qty int) (int, error)
	// SetStock overwrites the counter and reports the previous value. It is
	// an administrative override and bypasses the sufficiency guard.
	SetStock(ctx context.Context, productID, variantID string, qty int) (previous int, err error)
}
