package memory

import (
	"context"
	"sync"

	domain "github.com/tiendalino/commerce-core/internal/domain/ledger"
)

// MovementRepository is the in-memory journal used in tests; production runs
// on the bolt-backed journal in boltstore.
type MovementRepository struct {
	mu        sync.RWMutex
	movements []*domain.Movement
}

func NewMovementRepository() *MovementRepository {
	return &MovementRepository{}
}

func (r *MovementRepository) Append(ctx context.Context, m *domain.Movement) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *m
	r.movements = append(r.movements, &clone)
	return nil
}

func (r *MovementRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Movement, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Movement
	// Newest first.
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.Direction != "" && m.Direction != f.Direction {
			continue
		}
		clone := *m
		out = append(out, &clone)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
