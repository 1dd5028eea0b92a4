package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	apporder "github.com/tiendalino/commerce-core/internal/application/order"
	apppayment "github.com/tiendalino/commerce-core/internal/application/payment"
	appreturns "github.com/tiendalino/commerce-core/internal/application/returns"
	domaccount "github.com/tiendalino/commerce-core/internal/domain/account"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	dompayment "github.com/tiendalino/commerce-core/internal/domain/payment"
	"github.com/tiendalino/commerce-core/internal/infrastructure/memory"
	"github.com/tiendalino/commerce-core/internal/infrastructure/shipping"
	"go.uber.org/zap"
)

type stubGateway struct {
	payments map[string]*dompayment.Capture
}

func (g *stubGateway) CreateCapture(_ context.Context, req dompayment.CaptureRequest) (*dompayment.Capture, error) {
	c := &dompayment.Capture{
		ID:                "pay-1",
		Status:            dompayment.CaptureApproved,
		ExternalReference: req.ExternalReference,
	}
	g.payments[c.ID] = c
	return c, nil
}

func (g *stubGateway) GetPayment(_ context.Context, id string) (*dompayment.Capture, error) {
	c, ok := g.payments[id]
	if !ok {
		return nil, dompayment.ErrGateway
	}
	return c, nil
}

func (g *stubGateway) CreatePreference(_ context.Context, _ dompayment.PreferenceRequest) (*dompayment.Preference, error) {
	return &dompayment.Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"}, nil
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	catalogRepo := memory.NewCatalogRepository()
	orders := memory.NewOrderRepository()
	accounts := memory.NewAccountDirectory()
	promotions := memory.NewPromotionRepository()
	giftCards := memory.NewGiftCardRepository()
	coupons := memory.NewCouponRepository()
	returnRepo := memory.NewReturnRepository()
	warehouses := memory.NewWarehouseRepository()
	journal := memory.NewMovementRepository()

	accounts.Put(&domaccount.Account{ID: "cust-1", Name: "Laura", Email: "laura@example.com", Verified: true})
	require.NoError(t, catalogRepo.Save(ctx, &domcatalog.Product{
		ID: "prod-1", Name: "Camiseta", Price: 50000, Stock: 10,
	}))

	idGen := &seqIDs{}
	tariffs := shipping.NewTariffTable()
	ledger := appinventory.NewService(catalogRepo, journal, idGen)
	checkout := apporder.NewService(
		orders, catalogRepo, accounts,
		promotions, giftCards, coupons,
		ledger, tariffs, idGen, nil,
	)
	payments := apppayment.NewService(orders, checkout, ledger, &stubGateway{payments: make(map[string]*dompayment.Capture)}, nil)
	returnsSvc := appreturns.NewService(returnRepo, orders, coupons, warehouses, ledger, idGen, nil)

	h := NewHandler(checkout, payments, ledger, returnsSvc, tariffs)
	return h.Router(zap.NewNop(), nil, nil)
}

func asCustomer(r *http.Request) *http.Request {
	r.Header.Set("X-Customer-ID", "cust-1")
	r.Header.Set("X-User-Name", "Laura")
	return r
}

func asAdmin(r *http.Request) *http.Request {
	r.Header.Set("X-Customer-ID", "admin-1")
	r.Header.Set("X-User-Role", "admin")
	return r
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	srv := newServer(t)

	body := map[string]any{
		"email":          "laura@example.com",
		"address":        "Calle 1 #2-3",
		"phone":          "3001234567",
		"shipping_city":  "Bogotá",
		"payment_method": "cod",
		"items":          []map[string]any{{"product_id": "prod-1", "quantity": 2}},
	}
	rec := httptest.NewRecorder()
	req := asCustomer(httptest.NewRequest(http.MethodPost, "/orders", jsonBody(t, body)))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmado", resp["status"])
	assert.Equal(t, float64(112000), resp["total"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPlaceOrder_RequiresIdentity(t *testing.T) {
	srv := newServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", jsonBody(t, map[string]any{}))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes_RejectCustomers(t *testing.T) {
	srv := newServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/inventory/adjust"},
		{http.MethodGet, "/inventory/movements"},
		{http.MethodGet, "/inventory/low-stock"},
		{http.MethodPatch, "/returns/ret-1/approve"},
		{http.MethodPatch, "/orders/ord-1/status"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		req := asCustomer(httptest.NewRequest(p.method, p.path, jsonBody(t, map[string]any{})))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, p.path)
	}
}

// The gateway retries any non-200 answer, so the webhook acknowledges every
// delivery, including ones it cannot process.
func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type": `},
		{"unknown payment id", `{"type":"payment","data":{"id":"missing"}}`},
		{"ignored type", `{"type":"merchant_order","data":{"id":"123"}}`},
		{"empty data id", `{"type":"payment","data":{"id":""}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader([]byte(tc.body)))
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestShippingQuote(t *testing.T) {
	srv := newServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/shipping/quote?city=Medellín", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(15000), resp["cost"])
	assert.Equal(t, float64(3), resp["eta_days"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/shipping/quote", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryAdjust_AdminFlow(t *testing.T) {
	srv := newServer(t)

	rec := httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/inventory/adjust", jsonBody(t, map[string]any{
		"product_id": "prod-1",
		"direction":  "entrada",
		"quantity":   5,
		"reason":     "compra a proveedor",
	})))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(15), resp["new_stock"])

	rec = httptest.NewRecorder()
	req = asAdmin(httptest.NewRequest(http.MethodGet, "/inventory/movements", nil))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var movements []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movements))
	require.Len(t, movements, 1)
	assert.Equal(t, "entrada", movements[0]["direction"])
}

func TestGetOrder_NotFoundAndForbidden(t *testing.T) {
	srv := newServer(t)

	rec := httptest.NewRecorder()
	req := asCustomer(httptest.NewRequest(http.MethodGet, "/orders/nope", nil))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := map[string]any{
		"email":          "laura@example.com",
		"address":        "Calle 1 #2-3",
		"phone":          "3001234567",
		"shipping_city":  "Cali",
		"payment_method": "cod",
		"items":          []map[string]any{{"product_id": "prod-1", "quantity": 1}},
	}
	rec = httptest.NewRecorder()
	req = asCustomer(httptest.NewRequest(http.MethodPost, "/orders", jsonBody(t, body)))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orderID := created["id"].(string)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil)
	req.Header.Set("X-Customer-ID", "cust-2")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
