package memory

import (
	"context"
	"sync"

	domain "github.com/tiendalino/commerce-core/internal/domain/catalog"
)

// CatalogRepository keeps products in process memory. The stock operations
// run under the repository lock, which makes them the atomic conditional
// updates the checkout and settlement paths rely on: two writers racing for
// the last unit serialize here.
type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[string]*domain.Product),
	}
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *CatalogRepository) GetBatch(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (r *CatalogRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = cloneProduct(p)
	return nil
}

// DecrementStock is decrement-if-sufficient: the check and the write happen
// under the same lock, so a quantity that would cross zero is rejected and
// leaves the counter untouched.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID, variantID string, qty int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	counter, err := r.counter(productID, variantID)
	if err != nil {
		return 0, err
	}
	if *counter < qty {
		return *counter, domain.ErrInsufficientStock
	}
	*counter -= qty
	return *counter, nil
}

func (r *CatalogRepository) IncrementStock(ctx context.Context, productID, variantID string, qty int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	counter, err := r.counter(productID, variantID)
	if err != nil {
		return 0, err
	}
	*counter += qty
	return *counter, nil
}

func (r *CatalogRepository) SetStock(ctx context.Context, productID, variantID string, qty int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	counter, err := r.counter(productID, variantID)
	if err != nil {
		return 0, err
	}
	previous := *counter
	*counter = qty
	return previous, nil
}

// counter resolves the stock cell a product/variant pair points at. Callers
// must hold the write lock.
func (r *CatalogRepository) counter(productID, variantID string) (*int, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if variantID == "" {
		return &p.Stock, nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i].Stock, nil
		}
	}
	return nil, domain.ErrVariantNotFound
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Variants = make([]domain.Variant, len(p.Variants))
	copy(clone.Variants, p.Variants)
	for i := range clone.Variants {
		if po := p.Variants[i].PriceOverride; po != nil {
			v := *po
			clone.Variants[i].PriceOverride = &v
		}
	}
	return &clone
}
