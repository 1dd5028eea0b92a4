package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	"github.com/tiendalino/commerce-core/internal/infrastructure/memory"
)

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newFixture(t *testing.T, stock int) (*Service, *memory.CatalogRepository, *memory.MovementRepository) {
	t.Helper()
	catalogRepo := memory.NewCatalogRepository()
	journal := memory.NewMovementRepository()
	require.NoError(t, catalogRepo.Save(context.Background(), &domcatalog.Product{
		ID:    "prod-1",
		Name:  "Camiseta",
		Price: 45000,
		Stock: stock,
	}))
	return NewService(catalogRepo, journal, &seqIDs{}), catalogRepo, journal
}

func TestAdjust_SalidaDecrementsAndJournals(t *testing.T) {
	svc, catalogRepo, journal := newFixture(t, 10)
	ctx := context.Background()

	newStock, m, err := svc.Adjust(ctx, AdjustInput{
		ProductID: "prod-1", Direction: domledger.DirectionSalida, Quantity: 3,
		Reason: "venta", ReferenceType: domledger.ReferenceCustomerOrder, ReferenceID: "ord-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, newStock)
	assert.Equal(t, 3, m.Quantity)
	assert.Equal(t, -3, m.SignedQuantity())

	p, err := catalogRepo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)

	movements, err := journal.List(ctx, domledger.Filter{ProductID: "prod-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "Camiseta", movements[0].ProductName)
}

func TestAdjust_SalidaBeyondStockRejectedUntouched(t *testing.T) {
	svc, catalogRepo, journal := newFixture(t, 2)
	ctx := context.Background()

	_, _, err := svc.Adjust(ctx, AdjustInput{
		ProductID: "prod-1", Direction: domledger.DirectionSalida, Quantity: 5, Reason: "venta",
	})
	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)

	p, err := catalogRepo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	movements, err := journal.List(ctx, domledger.Filter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestAdjust_AjusteRecordsSignedDelta(t *testing.T) {
	svc, _, journal := newFixture(t, 10)
	ctx := context.Background()

	newStock, m, err := svc.Adjust(ctx, AdjustInput{
		ProductID: "prod-1", Direction: domledger.DirectionAjuste, Quantity: 4,
		Reason: "conteo físico", ReferenceType: domledger.ReferenceManual,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, newStock)
	assert.Equal(t, -6, m.Quantity)
	assert.Equal(t, -6, m.SignedQuantity())

	// Raising the counter back up records a positive delta.
	_, m, err = svc.Adjust(ctx, AdjustInput{
		ProductID: "prod-1", Direction: domledger.DirectionAjuste, Quantity: 9, Reason: "conteo físico",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, m.Quantity)

	movements, err := journal.List(ctx, domledger.Filter{ProductID: "prod-1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}

// The signed sum of all movements must equal the counter's net change.
func TestAdjust_MovementSumReconcilesWithCounter(t *testing.T) {
	svc, catalogRepo, journal := newFixture(t, 10)
	ctx := context.Background()

	steps := []AdjustInput{
		{ProductID: "prod-1", Direction: domledger.DirectionSalida, Quantity: 4, Reason: "venta"},
		{ProductID: "prod-1", Direction: domledger.DirectionEntrada, Quantity: 7, Reason: "compra"},
		{ProductID: "prod-1", Direction: domledger.DirectionAjuste, Quantity: 5, Reason: "conteo"},
		{ProductID: "prod-1", Direction: domledger.DirectionSalida, Quantity: 2, Reason: "venta"},
	}
	for _, in := range steps {
		_, _, err := svc.Adjust(ctx, in)
		require.NoError(t, err)
	}

	movements, err := journal.List(ctx, domledger.Filter{ProductID: "prod-1", Limit: 100})
	require.NoError(t, err)

	sum := 0
	for _, m := range movements {
		sum += m.SignedQuantity()
	}

	p, err := catalogRepo.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, p.Stock, 10+sum)
	assert.Equal(t, 3, p.Stock)
}

func TestAdjust_ValidatesDirectionAndQuantity(t *testing.T) {
	svc, _, _ := newFixture(t, 10)
	ctx := context.Background()

	_, _, err := svc.Adjust(ctx, AdjustInput{ProductID: "prod-1", Direction: "sideways", Quantity: 1})
	assert.ErrorIs(t, err, domledger.ErrInvalidDirection)

	_, _, err = svc.Adjust(ctx, AdjustInput{ProductID: "prod-1", Direction: domledger.DirectionSalida, Quantity: 0})
	assert.ErrorIs(t, err, domledger.ErrInvalidQuantity)

	_, _, err = svc.Adjust(ctx, AdjustInput{ProductID: "prod-1", Direction: domledger.DirectionEntrada, Quantity: -2})
	assert.ErrorIs(t, err, domledger.ErrInvalidQuantity)

	// ajuste to zero is a legitimate write-off.
	newStock, _, err := svc.Adjust(ctx, AdjustInput{ProductID: "prod-1", Direction: domledger.DirectionAjuste, Quantity: 0, Reason: "baja total"})
	require.NoError(t, err)
	assert.Equal(t, 0, newStock)
}

func TestAdjust_VariantCounterIsIndependent(t *testing.T) {
	catalogRepo := memory.NewCatalogRepository()
	journal := memory.NewMovementRepository()
	ctx := context.Background()
	require.NoError(t, catalogRepo.Save(ctx, &domcatalog.Product{
		ID: "prod-2", Name: "Camiseta", Price: 45000,
		Variants: []domcatalog.Variant{
			{ID: "var-1", Size: "M", Color: "negro", Stock: 5},
			{ID: "var-2", Size: "L", Color: "blanco", Stock: 8},
		},
	}))
	svc := NewService(catalogRepo, journal, &seqIDs{})

	newStock, m, err := svc.Adjust(ctx, AdjustInput{
		ProductID: "prod-2", VariantID: "var-1",
		Direction: domledger.DirectionSalida, Quantity: 5, Reason: "venta",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, newStock)
	assert.Equal(t, "M/negro", m.VariantLabel)

	p, err := catalogRepo.Get(ctx, "prod-2")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Variants[1].Stock)
}

func TestLowStock_FlagsCountersAtThreshold(t *testing.T) {
	catalogRepo := memory.NewCatalogRepository()
	journal := memory.NewMovementRepository()
	ctx := context.Background()
	require.NoError(t, catalogRepo.Save(ctx, &domcatalog.Product{ID: "a", Name: "A", Stock: 3}))
	require.NoError(t, catalogRepo.Save(ctx, &domcatalog.Product{ID: "b", Name: "B", Stock: 40}))
	require.NoError(t, catalogRepo.Save(ctx, &domcatalog.Product{
		ID: "c", Name: "C",
		Variants: []domcatalog.Variant{
			{ID: "c1", Size: "S", Color: "azul", Stock: 5},
			{ID: "c2", Size: "M", Color: "azul", Stock: 30},
		},
	}))
	svc := NewService(catalogRepo, journal, &seqIDs{})

	alerts, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	ids := []string{alerts[0].ProductID, alerts[1].ProductID}
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "c")
}
