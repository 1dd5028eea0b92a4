package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	domaccount "github.com/tiendalino/commerce-core/internal/domain/account"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	domain "github.com/tiendalino/commerce-core/internal/domain/order"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
	"github.com/tiendalino/commerce-core/internal/infrastructure/memory"
	"github.com/tiendalino/commerce-core/internal/infrastructure/shipping"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fixture struct {
	svc       *Service
	orders    *memory.OrderRepository
	catalog   *memory.CatalogRepository
	accounts  *memory.AccountDirectory
	giftCards *memory.GiftCardRepository
	coupons   *memory.CouponRepository
	journal   *memory.MovementRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		orders:    memory.NewOrderRepository(),
		catalog:   memory.NewCatalogRepository(),
		accounts:  memory.NewAccountDirectory(),
		giftCards: memory.NewGiftCardRepository(),
		coupons:   memory.NewCouponRepository(),
		journal:   memory.NewMovementRepository(),
	}
	promotions := memory.NewPromotionRepository()

	f.accounts.Put(&domaccount.Account{ID: "cust-1", Name: "Laura", Email: "laura@example.com", Verified: true})
	f.accounts.Put(&domaccount.Account{ID: "cust-2", Name: "Pedro", Email: "pedro@example.com", Verified: false})

	require.NoError(t, f.catalog.Save(ctx, &domcatalog.Product{
		ID: "prod-1", Name: "Camiseta", Price: 50000, Stock: 10,
	}))
	require.NoError(t, f.catalog.Save(ctx, &domcatalog.Product{
		ID: "prod-2", Name: "Chaqueta", Price: 100000,
		Variants: []domcatalog.Variant{
			{ID: "var-1", Size: "M", Color: "negro", Stock: 1},
		},
	}))

	require.NoError(t, promotions.Save(ctx, &domred.Promotion{
		ID: "promo-1", Code: "DIEZ", DiscountPct: 10, Active: true,
	}))
	require.NoError(t, f.giftCards.Save(ctx, &domred.GiftCard{
		Code: "GIFT-60", Balance: 60000, Active: true,
	}))
	require.NoError(t, f.coupons.Insert(ctx, &domred.Coupon{
		ID: "coup-1", Code: "PL-DEV-ABC123", Value: 20000, CustomerID: "cust-1",
		Active: true, ExpiresAt: time.Now().Add(24 * time.Hour),
	}))

	idGen := &seqIDs{}
	ledger := appinventory.NewService(f.catalog, f.journal, idGen)
	f.svc = NewService(
		f.orders, f.catalog, f.accounts,
		promotions, f.giftCards, f.coupons,
		ledger, shipping.NewTariffTable(), idGen, nil,
	)
	return f
}

func baseInput() PlaceOrderInput {
	return PlaceOrderInput{
		CustomerID:    "cust-1",
		CustomerName:  "Laura",
		Email:         "laura@example.com",
		Address:       "Calle 1 #2-3",
		Phone:         "3001234567",
		ShippingCity:  "Bogotá",
		PaymentMethod: domain.MethodCOD,
		Items:         []LineInput{{ProductID: "prod-1", Quantity: 2}},
	}
}

func TestPlaceOrder_ImmediateMethodConfirmsAndDecrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, baseInput())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmado, o.Status)
	assert.Equal(t, int64(100000), o.Subtotal)
	assert.Equal(t, int64(12000), o.ShippingCost)
	assert.Equal(t, 2, o.DeliveryETADays)
	assert.Equal(t, int64(112000), o.Total)
	assert.NotEmpty(t, o.InvoiceNumber)

	p, err := f.catalog.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)

	movements, err := f.journal.List(ctx, domledger.Filter{ProductID: "prod-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domledger.DirectionSalida, movements[0].Direction)
	assert.Equal(t, domledger.ReferenceCustomerOrder, movements[0].ReferenceType)
	assert.Equal(t, o.ID, movements[0].ReferenceID)
}

func TestPlaceOrder_DeferredMethodLeavesStockUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := baseInput()
	in.PaymentMethod = domain.MethodMercadoPago
	in.GiftCardCode = "GIFT-60"

	o, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendientePago, o.Status)
	assert.Equal(t, int64(60000), o.GiftApplied)

	p, err := f.catalog.Get(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)

	card, err := f.giftCards.FindByCode(ctx, "GIFT-60")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), card.Balance)

	movements, err := f.journal.List(ctx, domledger.Filter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestPlaceOrder_PromoAndGiftArithmetic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := baseInput()
	in.PromoCode = "DIEZ"
	in.GiftCardCode = "GIFT-60"

	o, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	// subtotal 100000, discount 10000, shipping 12000, gift covers 60000 of
	// the remaining 102000.
	assert.Equal(t, int64(10000), o.Discount)
	assert.Equal(t, int64(60000), o.GiftApplied)
	assert.Equal(t, int64(42000), o.Total)

	card, err := f.giftCards.FindByCode(ctx, "GIFT-60")
	require.NoError(t, err)
	assert.Equal(t, int64(0), card.Balance)
	assert.False(t, card.Active)
}

func TestPlaceOrder_GiftCardCapsAtRunningTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.giftCards.Save(ctx, &domred.GiftCard{
		Code: "GIFT-BIG", Balance: 500000, Active: true,
	}))

	in := baseInput()
	in.GiftCardCode = "GIFT-BIG"

	o, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, int64(112000), o.GiftApplied)
	assert.Equal(t, int64(0), o.Total)

	card, err := f.giftCards.FindByCode(ctx, "GIFT-BIG")
	require.NoError(t, err)
	assert.Equal(t, int64(388000), card.Balance)
	assert.True(t, card.Active)
}

func TestPlaceOrder_CouponConsumedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := baseInput()
	in.CouponCode = "PL-DEV-ABC123"

	o, err := f.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), o.CouponApplied)
	assert.Equal(t, int64(92000), o.Total)

	// A second checkout with the same coupon is rejected at eligibility.
	_, err = f.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domred.ErrAlreadyUsed)
}

func TestPlaceOrder_CouponOwnershipAndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := baseInput()
	in.CustomerID = "cust-2"
	in.CouponCode = "PL-DEV-ABC123"
	f.accounts.Put(&domaccount.Account{ID: "cust-2", Name: "Pedro", Verified: true})

	_, err := f.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domred.ErrWrongCustomer)

	require.NoError(t, f.coupons.Insert(ctx, &domred.Coupon{
		ID: "coup-2", Code: "PL-DEV-OLD999", Value: 5000, CustomerID: "cust-1",
		Active: true, ExpiresAt: time.Now().Add(-time.Hour),
	}))
	in = baseInput()
	in.CouponCode = "PL-DEV-OLD999"
	_, err = f.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domred.ErrExpired)
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*PlaceOrderInput)
		want   error
	}{
		{"unverified account", func(in *PlaceOrderInput) { in.CustomerID = "cust-2" }, ErrNotVerified},
		{"missing address", func(in *PlaceOrderInput) { in.Address = "  " }, ErrAddressRequired},
		{"missing phone", func(in *PlaceOrderInput) { in.Phone = "" }, ErrPhoneRequired},
		{"missing city", func(in *PlaceOrderInput) { in.ShippingCity = "" }, ErrCityRequired},
		{"bad method", func(in *PlaceOrderInput) { in.PaymentMethod = "cheque" }, ErrMethodRequired},
		{"empty cart", func(in *PlaceOrderInput) { in.Items = nil }, domain.ErrEmptyCart},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"bad promo", func(in *PlaceOrderInput) { in.PromoCode = "NOPE" }, ErrInvalidPromotion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			_, err := f.svc.PlaceOrder(ctx, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_RejectsOverAvailableStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := baseInput()
	in.Items = []LineInput{{ProductID: "prod-1", Quantity: 11}}

	_, err := f.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)
}

// Two concurrent checkouts race for the last unit of a variant; exactly one
// may win and the loser must leave no partial state.
func TestPlaceOrder_LastUnitRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	place := func() error {
		in := baseInput()
		in.Items = []LineInput{{ProductID: "prod-2", VariantID: "var-1", Quantity: 1}}
		_, err := f.svc.PlaceOrder(ctx, in)
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = place()
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	p, err := f.catalog.Get(ctx, "prod-2")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Variants[0].Stock)

	movements, err := f.journal.List(ctx, domledger.Filter{ProductID: "prod-2", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, movements, 1)

	// The loser's order must not survive as a confirmed order.
	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestUpdateStatus_FulfilmentOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, baseInput())
	require.NoError(t, err)

	o2, err := f.svc.UpdateStatus(ctx, o.ID, domain.StatusEnviado)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnviado, o2.Status)

	_, err = f.svc.UpdateStatus(ctx, o.ID, domain.StatusPendientePago)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestTracking_OwnerGated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, baseInput())
	require.NoError(t, err)

	_, err = f.svc.SetTrackingMeta(ctx, o.ID, "GUIA-123", "Servientrega")
	require.NoError(t, err)
	_, err = f.svc.AddTrackingEvent(ctx, o.ID, "despachado", "salió de bodega")
	require.NoError(t, err)

	got, err := f.svc.Tracking(ctx, o.ID, "cust-1", false)
	require.NoError(t, err)
	assert.Equal(t, "GUIA-123", got.TrackingNumber)
	assert.Len(t, got.TrackingEvents, 1)

	_, err = f.svc.Tracking(ctx, o.ID, "cust-2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Tracking(ctx, o.ID, "", true)
	require.NoError(t, err)
}
