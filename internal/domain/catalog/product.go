package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrVariantNotFound   = errors.New("catalog: variant not found")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)

// Variant is a size/color combination with its own stock counter and an
// optional price override.
type Variant struct {
	ID            string
	Size          string
	Color         string
	SKU           string
	Stock         int
	PriceOverride *int64
}

func (v *Variant) Label() string {
	return fmt.Sprintf("%s/%s", v.Size, v.Color)
}

// Product carries either a single stock counter or a set of variant counters.
// Stock is mutated only through the catalog repository's guarded operations.
type Product struct {
	ID          string
	Name        string
	Price       int64
	Category    string
	Stock       int
	Description string
	Variants    []Variant
	UpdatedAt   time.Time
}

func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

func (p *Product) Variant(id string) (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], nil
		}
	}
	return nil, ErrVariantNotFound
}

// UnitPrice resolves the price for a line: the variant override when the line
// names a variant that carries one, the base price otherwise.
func (p *Product) UnitPrice(variantID string) (int64, error) {
	if variantID == "" {
		return p.Price, nil
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return 0, err
	}
	if v.PriceOverride != nil {
		return *v.PriceOverride, nil
	}
	return p.Price, nil
}

// StockFor returns the counter a line draws from.
func (p *Product) StockFor(variantID string) (int, error) {
	if variantID == "" {
		return p.Stock, nil
	}
	v, err := p.Variant(variantID)
	if err != nil {
		return 0, err
	}
	return v.Stock, nil
}
