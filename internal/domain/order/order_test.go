package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLines() []Item {
	return []Item{
		{ProductID: "p1", ProductName: "Camiseta", UnitPrice: 45000, Quantity: 2,
			Variant: &ItemVariant{ID: "v1", Size: "M", Color: "negro"}},
		{ProductID: "p2", ProductName: "Gorra", UnitPrice: 30000, Quantity: 1},
	}
}

func TestNew_SubtotalFromLines(t *testing.T) {
	o, err := New("ord-1", "cust-1", twoLines(), StatusPendientePago)
	require.NoError(t, err)

	assert.Equal(t, int64(120000), o.Subtotal)
	assert.Equal(t, int64(120000), o.Total)
	assert.Equal(t, StatusPendientePago, o.Status)
}

func TestNew_RejectsEmptyCart(t *testing.T) {
	_, err := New("ord-1", "cust-1", nil, StatusConfirmado)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestNew_RejectsFulfilmentStatus(t *testing.T) {
	_, err := New("ord-1", "cust-1", twoLines(), StatusEnviado)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecomputeTotal(t *testing.T) {
	o, err := New("ord-1", "cust-1", twoLines(), StatusPendientePago)
	require.NoError(t, err)

	o.Discount = 12000
	o.CouponApplied = 20000
	o.GiftApplied = 30000
	o.ShippingCost = 15000
	o.RecomputeTotal()

	// 120000 - 12000 - 20000 - 30000 + 15000
	assert.Equal(t, int64(73000), o.Total)
}

func TestLine_MatchesVariant(t *testing.T) {
	o, err := New("ord-1", "cust-1", twoLines(), StatusPendientePago)
	require.NoError(t, err)

	it, err := o.Line("p1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "Camiseta", it.ProductName)

	it, err = o.Line("p2", "")
	require.NoError(t, err)
	assert.Equal(t, "Gorra", it.ProductName)

	_, err = o.Line("p1", "")
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = o.Line("p3", "")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestSettlesImmediately(t *testing.T) {
	assert.True(t, MethodCredit.SettlesImmediately())
	assert.True(t, MethodCOD.SettlesImmediately())
	assert.False(t, MethodMercadoPago.SettlesImmediately())
}

func TestClone_DoesNotAliasItems(t *testing.T) {
	o, err := New("ord-1", "cust-1", twoLines(), StatusPendientePago)
	require.NoError(t, err)
	o.AppendTracking("despachado", "salió de bodega")

	clone := o.Clone()
	clone.Items[0].Quantity = 99
	clone.Items[0].Variant.Color = "rojo"
	clone.TrackingEvents[0].Status = "otro"

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "negro", o.Items[0].Variant.Color)
	assert.Equal(t, "despachado", o.TrackingEvents[0].Status)
}
