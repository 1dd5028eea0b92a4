package memory

import (
	"context"
	"sync"

	domain "github.com/tiendalino/commerce-core/internal/domain/warehouse"
)

type WarehouseRepository struct {
	mu         sync.RWMutex
	warehouses map[string]*domain.Warehouse
}

func NewWarehouseRepository() *WarehouseRepository {
	return &WarehouseRepository{warehouses: make(map[string]*domain.Warehouse)}
}

func (r *WarehouseRepository) Get(ctx context.Context, id string) (*domain.Warehouse, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.warehouses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (r *WarehouseRepository) List(ctx context.Context) ([]*domain.Warehouse, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Warehouse, 0, len(r.warehouses))
	for _, w := range r.warehouses {
		clone := *w
		out = append(out, &clone)
	}
	return out, nil
}

func (r *WarehouseRepository) Save(ctx context.Context, w *domain.Warehouse) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *w
	r.warehouses[w.ID] = &clone
	return nil
}
