package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/tiendalino/commerce-core/internal/domain/returns"
)

type ReturnRepository struct {
	mu      sync.RWMutex
	returns map[string]*domain.Return
	seq     int
}

func NewReturnRepository() *ReturnRepository {
	return &ReturnRepository{returns: make(map[string]*domain.Return)}
}

func (r *ReturnRepository) Insert(ctx context.Context, ret *domain.Return) error {
	_ = ctx
	if ret == nil || ret.ID == "" {
		return fmt.Errorf("return repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *ret
	r.returns[ret.ID] = &clone
	return nil
}

func (r *ReturnRepository) Get(ctx context.Context, id string) (*domain.Return, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ret, ok := r.returns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *ret
	return &clone, nil
}

func (r *ReturnRepository) Update(ctx context.Context, ret *domain.Return) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.returns[ret.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *ret
	r.returns[ret.ID] = &clone
	return nil
}

func (r *ReturnRepository) List(ctx context.Context) ([]*domain.Return, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Return, 0, len(r.returns))
	for _, ret := range r.returns {
		clone := *ret
		out = append(out, &clone)
	}
	sortReturns(out)
	return out, nil
}

func (r *ReturnRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Return, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Return
	for _, ret := range r.returns {
		if ret.CustomerID == customerID {
			clone := *ret
			out = append(out, &clone)
		}
	}
	sortReturns(out)
	return out, nil
}

func (r *ReturnRepository) FindActiveForLine(ctx context.Context, orderID, productID, variantID string) (*domain.Return, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ret := range r.returns {
		if ret.OrderID != orderID || ret.ProductID != productID {
			continue
		}
		if variantID != "" && ret.VariantID != variantID {
			continue
		}
		if ret.Status.Active() {
			clone := *ret
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *ReturnRepository) NextNumber(ctx context.Context) (string, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	return fmt.Sprintf("DEV-%04d", r.seq), nil
}

func sortReturns(rets []*domain.Return) {
	sort.Slice(rets, func(i, j int) bool {
		return rets[i].CreatedAt.After(rets[j].CreatedAt)
	})
}
