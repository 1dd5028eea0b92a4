// Package inventory is the ledger: the only path by which stock counters
// change and the only producer of stock-movement records.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

type IDGenerator interface {
	NewID() string
}

type Service struct {
	catalog     domcatalog.Repository
	journal     domledger.Repository
	idGenerator IDGenerator
}

func NewService(catalogRepo domcatalog.Repository, journal domledger.Repository, idGen IDGenerator) *Service {
	return &Service{
		catalog:     catalogRepo,
		journal:     journal,
		idGenerator: idGen,
	}
}

type AdjustInput struct {
	ProductID     string
	VariantID     string
	Direction     domledger.Direction
	Quantity      int
	Reason        string
	ReferenceType domledger.ReferenceType
	ReferenceID   string
	ActorID       string
	ActorName     string
}

// Adjust applies one stock delta and appends the matching movement record.
// salida is guarded by the repository's decrement-if-sufficient update, so a
// quantity that exceeds the counter fails with catalog.ErrInsufficientStock
// and mutates nothing. ajuste sets the counter absolutely and records the
// signed delta, keeping the movement sum reconciled with the counter.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (int, *domledger.Movement, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "inventory_ledger"))

	if !in.Direction.Valid() {
		return 0, nil, domledger.ErrInvalidDirection
	}
	// ajuste may set a counter to zero; debits and credits need a positive quantity.
	if in.Quantity < 0 || (in.Quantity == 0 && in.Direction != domledger.DirectionAjuste) {
		return 0, nil, domledger.ErrInvalidQuantity
	}

	product, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return 0, nil, err
	}
	variantLabel := ""
	if in.VariantID != "" {
		v, err := product.Variant(in.VariantID)
		if err != nil {
			return 0, nil, err
		}
		variantLabel = v.Label()
	}

	var (
		newStock int
		recorded int
	)
	switch in.Direction {
	case domledger.DirectionSalida:
		newStock, err = s.catalog.DecrementStock(ctx, in.ProductID, in.VariantID, in.Quantity)
		recorded = in.Quantity
	case domledger.DirectionEntrada:
		newStock, err = s.catalog.IncrementStock(ctx, in.ProductID, in.VariantID, in.Quantity)
		recorded = in.Quantity
	case domledger.DirectionAjuste:
		var previous int
		previous, err = s.catalog.SetStock(ctx, in.ProductID, in.VariantID, in.Quantity)
		newStock = in.Quantity
		recorded = in.Quantity - previous
	}
	if err != nil {
		if errors.Is(err, domcatalog.ErrInsufficientStock) {
			logger.Info("stock_adjust_rejected",
				zap.String("product_id", in.ProductID),
				zap.String("variant_id", in.VariantID),
				zap.Int("requested", in.Quantity),
			)
		}
		return 0, nil, err
	}

	movement := &domledger.Movement{
		ID:            s.idGenerator.NewID(),
		ProductID:     in.ProductID,
		ProductName:   product.Name,
		VariantID:     in.VariantID,
		VariantLabel:  variantLabel,
		Direction:     in.Direction,
		Quantity:      recorded,
		Reason:        in.Reason,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		ActorID:       in.ActorID,
		ActorName:     in.ActorName,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.journal.Append(ctx, movement); err != nil {
		s.compensate(ctx, in, movement)
		return 0, nil, fmt.Errorf("inventory: journal append: %w", err)
	}

	logger.Info("stock_adjusted",
		zap.String("product_id", in.ProductID),
		zap.String("variant_id", in.VariantID),
		zap.String("direction", string(in.Direction)),
		zap.Int("quantity", in.Quantity),
		zap.Int("new_stock", newStock),
	)
	return newStock, movement, nil
}

// compensate rolls the counter back when the journal append failed, so the
// counter and the movement sum cannot drift apart.
func (s *Service) compensate(ctx context.Context, in AdjustInput, m *domledger.Movement) {
	logger := logging.FromContext(ctx).With(zap.String("component", "inventory_ledger"))

	var err error
	switch in.Direction {
	case domledger.DirectionSalida:
		_, err = s.catalog.IncrementStock(ctx, in.ProductID, in.VariantID, in.Quantity)
	case domledger.DirectionEntrada:
		_, err = s.catalog.DecrementStock(ctx, in.ProductID, in.VariantID, in.Quantity)
	case domledger.DirectionAjuste:
		_, err = s.catalog.SetStock(ctx, in.ProductID, in.VariantID, in.Quantity-m.Quantity)
	}
	if err != nil {
		logger.Error("stock_compensation_failed",
			zap.String("product_id", in.ProductID),
			zap.Error(err),
		)
	}
}

// Movements lists journal entries newest first.
func (s *Service) Movements(ctx context.Context, f domledger.Filter) ([]*domledger.Movement, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return s.journal.List(ctx, f)
}

// LowStockAlert flags a counter at or below the requested threshold.
type LowStockAlert struct {
	ProductID    string
	ProductName  string
	VariantID    string
	VariantLabel string
	CurrentStock int
	Threshold    int
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]LowStockAlert, error) {
	if threshold <= 0 {
		threshold = 5
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []LowStockAlert
	for _, p := range products {
		if p.HasVariants() {
			for i := range p.Variants {
				v := &p.Variants[i]
				if v.Stock <= threshold {
					alerts = append(alerts, LowStockAlert{
						ProductID:    p.ID,
						ProductName:  p.Name,
						VariantID:    v.ID,
						VariantLabel: v.Label(),
						CurrentStock: v.Stock,
						Threshold:    threshold,
					})
				}
			}
			continue
		}
		if p.Stock <= threshold {
			alerts = append(alerts, LowStockAlert{
				ProductID:    p.ID,
				ProductName:  p.Name,
				CurrentStock: p.Stock,
				Threshold:    threshold,
			})
		}
	}
	return alerts, nil
}
