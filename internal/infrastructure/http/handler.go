// Package httpapi exposes the platform over REST. Identity arrives in
// headers set by the edge proxy; this layer trusts them and only separates
// customer calls from back-office calls.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	apporder "github.com/tiendalino/commerce-core/internal/application/order"
	apppayment "github.com/tiendalino/commerce-core/internal/application/payment"
	appreturns "github.com/tiendalino/commerce-core/internal/application/returns"
	domaccount "github.com/tiendalino/commerce-core/internal/domain/account"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	domorder "github.com/tiendalino/commerce-core/internal/domain/order"
	dompayment "github.com/tiendalino/commerce-core/internal/domain/payment"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
	domreturns "github.com/tiendalino/commerce-core/internal/domain/returns"
	domwarehouse "github.com/tiendalino/commerce-core/internal/domain/warehouse"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

const (
	headerCustomerID = "X-Customer-ID"
	headerUserName   = "X-User-Name"
	headerUserRole   = "X-User-Role"
)

type Handler struct {
	checkout *apporder.Service
	payments *apppayment.Service
	ledger   *appinventory.Service
	returns  *appreturns.Service
	tariffs  apporder.TariffTable
}

func NewHandler(
	checkout *apporder.Service,
	payments *apppayment.Service,
	ledger *appinventory.Service,
	returnsSvc *appreturns.Service,
	tariffs apporder.TariffTable,
) *Handler {
	return &Handler{
		checkout: checkout,
		payments: payments,
		ledger:   ledger,
		returns:  returnsSvc,
		tariffs:  tariffs,
	}
}

// Router wires every route behind the shared observability middleware.
func (h *Handler) Router(logger *zap.Logger, requests *prometheus.CounterVec, durations *prometheus.HistogramVec) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(Trace)
	r.Use(Observability(logger, requests, durations))

	r.Get("/health", h.handleHealth)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handlePlaceOrder)
		r.Get("/", h.handleListOrders)
		r.Get("/{orderID}", h.handleGetOrder)
		r.Patch("/{orderID}/status", h.handleUpdateStatus)
		r.Put("/{orderID}/tracking", h.handleSetTrackingMeta)
		r.Post("/{orderID}/tracking/events", h.handleAddTrackingEvent)
		r.Get("/{orderID}/tracking", h.handleTracking)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/process", h.handleProcessCapture)
		r.Post("/create-preference", h.handleCreatePreference)
		r.Post("/webhook", h.handleWebhook)
		r.Get("/status/{orderID}", h.handlePaymentStatus)
	})

	r.Route("/returns", func(r chi.Router) {
		r.Post("/", h.handleCreateReturn)
		r.Get("/", h.handleListReturns)
		r.Get("/coupon/{code}", h.handleValidateCoupon)
		r.Get("/{returnID}", h.handleGetReturn)
		r.Patch("/{returnID}/approve", h.handleApproveReturn)
		r.Patch("/{returnID}/reject", h.handleRejectReturn)
		r.Patch("/{returnID}/shipped", h.handleReturnShipped)
		r.Patch("/{returnID}/received", h.handleReturnReceived)
		r.Patch("/{returnID}/review", h.handleReviewReturn)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Post("/adjust", h.handleAdjustStock)
		r.Get("/movements", h.handleListMovements)
		r.Get("/low-stock", h.handleLowStock)
	})

	r.Get("/shipping/quote", h.handleShippingQuote)
	r.Get("/giftcards/{code}", h.handleValidateGiftCard)

	return r
}

type identity struct {
	CustomerID string
	Name       string
	Admin      bool
}

func callerIdentity(r *http.Request) identity {
	return identity{
		CustomerID: r.Header.Get(headerCustomerID),
		Name:       r.Header.Get(headerUserName),
		Admin:      r.Header.Get(headerUserRole) == "admin",
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerName  string        `json:"customer_name"`
	Email         string        `json:"email"`
	Address       string        `json:"address"`
	Address2      string        `json:"address2,omitempty"`
	Department    string        `json:"department,omitempty"`
	PostalCode    string        `json:"postal_code,omitempty"`
	Phone         string        `json:"phone"`
	ShippingCity  string        `json:"shipping_city"`
	PaymentMethod string        `json:"payment_method"`
	Items         []lineRequest `json:"items"`
	PromoCode     string        `json:"promo_code,omitempty"`
	GiftCardCode  string        `json:"gift_card_code,omitempty"`
	CouponCode    string        `json:"coupon_code,omitempty"`
}

func (req *placeOrderRequest) toInput(id identity) apporder.PlaceOrderInput {
	items := make([]apporder.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, apporder.LineInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}
	name := req.CustomerName
	if name == "" {
		name = id.Name
	}
	return apporder.PlaceOrderInput{
		CustomerID:    id.CustomerID,
		CustomerName:  name,
		Email:         req.Email,
		Address:       req.Address,
		Address2:      req.Address2,
		Department:    req.Department,
		PostalCode:    req.PostalCode,
		Phone:         req.Phone,
		ShippingCity:  req.ShippingCity,
		PaymentMethod: domorder.PaymentMethod(req.PaymentMethod),
		Items:         items,
		PromoCode:     req.PromoCode,
		GiftCardCode:  req.GiftCardCode,
		CouponCode:    req.CouponCode,
	}
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if id.CustomerID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.checkout.PlaceOrder(r.Context(), req.toInput(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)

	var (
		orders []*domorder.Order
		err    error
	)
	if id.Admin {
		orders, err = h.checkout.List(r.Context())
	} else if id.CustomerID != "" {
		orders, err = h.checkout.ListByCustomer(r.Context(), id.CustomerID)
	} else {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	o, err := h.checkout.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !id.Admin && o.CustomerID != id.CustomerID {
		writeError(w, http.StatusForbidden, apporder.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.checkout.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), domorder.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (h *Handler) handleSetTrackingMeta(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		TrackingNumber string `json:"tracking_number"`
		Carrier        string `json:"carrier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.checkout.SetTrackingMeta(r.Context(), chi.URLParam(r, "orderID"), req.TrackingNumber, req.Carrier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (h *Handler) handleAddTrackingEvent(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.checkout.AddTrackingEvent(r.Context(), chi.URLParam(r, "orderID"), req.Status, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (h *Handler) handleTracking(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	o, err := h.checkout.Tracking(r.Context(), chi.URLParam(r, "orderID"), id.CustomerID, id.Admin)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	events := make([]map[string]any, 0, len(o.TrackingEvents))
	for _, ev := range o.TrackingEvents {
		events = append(events, map[string]any{
			"status": ev.Status,
			"note":   ev.Note,
			"date":   ev.Date,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":        o.ID,
		"status":          o.Status,
		"tracking_number": o.TrackingNumber,
		"carrier":         o.Carrier,
		"events":          events,
	})
}

type capturePaymentRequest struct {
	placeOrderRequest

	Token           string `json:"token"`
	Installments    int    `json:"installments,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
	IssuerID        string `json:"issuer_id,omitempty"`
	PayerEmail      string `json:"payer_email,omitempty"`
}

func (h *Handler) handleProcessCapture(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if id.CustomerID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	var req capturePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, dompayment.ErrTokenRequired)
		return
	}

	result, err := h.payments.ProcessCapture(r.Context(), apppayment.CaptureInput{
		Checkout:        req.toInput(id),
		Token:           req.Token,
		Installments:    req.Installments,
		PaymentMethodID: req.PaymentMethodID,
		IssuerID:        req.IssuerID,
		PayerEmail:      req.PayerEmail,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":      result.OrderID,
		"status":        result.Status,
		"status_detail": result.StatusDetail,
		"order_status":  result.OrderStatus,
	})
}

func (h *Handler) handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if id.CustomerID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.payments.CreatePreference(r.Context(), req.toInput(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":      result.OrderID,
		"preference_id": result.PreferenceID,
		"init_point":    result.InitPoint,
	})
}

// handleWebhook always acknowledges with 200: the gateway retries on any
// other status and a persistent anomaly would turn into a retry storm.
// Anomalies are logged and reconciled out of band.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(r.Context()).Warn("webhook_malformed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	if err := h.payments.HandleCallback(r.Context(), dompayment.Callback{
		Type:   req.Type,
		DataID: req.Data.ID,
	}); err != nil {
		logging.FromContext(r.Context()).Error("webhook_processing_failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	result, err := h.payments.Status(r.Context(), chi.URLParam(r, "orderID"), id.CustomerID, id.Admin)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":       result.OrderID,
		"status":         result.Status,
		"gateway_status": result.GatewayStatus,
		"total":          result.Total,
		"invoice_number": result.InvoiceNumber,
	})
}

func (h *Handler) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if id.CustomerID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	var req struct {
		OrderID   string `json:"order_id"`
		ProductID string `json:"product_id"`
		VariantID string `json:"variant_id,omitempty"`
		Type      string `json:"type"`
		Reason    string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ret, err := h.returns.Create(r.Context(), appreturns.CreateInput{
		CustomerID: id.CustomerID,
		OrderID:    req.OrderID,
		ProductID:  req.ProductID,
		VariantID:  req.VariantID,
		Type:       domreturns.Type(req.Type),
		Reason:     req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, returnResponse(ret))
}

func (h *Handler) handleListReturns(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)

	var (
		rets []*domreturns.Return
		err  error
	)
	if id.Admin {
		rets, err = h.returns.List(r.Context())
	} else if id.CustomerID != "" {
		rets, err = h.returns.ListByCustomer(r.Context(), id.CustomerID)
	} else {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(rets))
	for _, ret := range rets {
		out = append(out, returnResponse(ret))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetReturn(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	ret, err := h.returns.Get(r.Context(), chi.URLParam(r, "returnID"), id.CustomerID, id.Admin)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleApproveReturn(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		WarehouseID string `json:"warehouse_id"`
		AdminNotes  string `json:"admin_notes,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ret, err := h.returns.Approve(r.Context(), chi.URLParam(r, "returnID"), req.WarehouseID, req.AdminNotes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleRejectReturn(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ret, err := h.returns.Reject(r.Context(), chi.URLParam(r, "returnID"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleReturnShipped(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	// The owner reports the shipment; admins may record it on their behalf.
	ret, err := h.returns.Get(r.Context(), chi.URLParam(r, "returnID"), id.CustomerID, id.Admin)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ret, err = h.returns.MarkShipped(r.Context(), ret.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleReturnReceived(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	ret, err := h.returns.MarkReceived(r.Context(), chi.URLParam(r, "returnID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleReviewReturn(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req struct {
		Result          string `json:"result"`
		Notes           string `json:"notes,omitempty"`
		RejectionReason string `json:"rejection_reason,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ret, err := h.returns.Review(r.Context(), chi.URLParam(r, "returnID"), appreturns.ReviewInput{
		Result:          req.Result,
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returnResponse(ret))
}

func (h *Handler) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if id.CustomerID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("customer identity required"))
		return
	}
	coupon, err := h.returns.ValidateCoupon(r.Context(), chi.URLParam(r, "code"), id.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":       coupon.Code,
		"value":      coupon.Value,
		"expires_at": coupon.ExpiresAt,
	})
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if !id.Admin {
		writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return
	}
	var req struct {
		ProductID     string `json:"product_id"`
		VariantID     string `json:"variant_id,omitempty"`
		Direction     string `json:"direction"`
		Quantity      int    `json:"quantity"`
		Reason        string `json:"reason"`
		ReferenceType string `json:"reference_type,omitempty"`
		ReferenceID   string `json:"reference_id,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	refType := domledger.ReferenceType(req.ReferenceType)
	if refType == "" {
		refType = domledger.ReferenceManual
	}
	newStock, movement, err := h.ledger.Adjust(r.Context(), appinventory.AdjustInput{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		Direction:     domledger.Direction(req.Direction),
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		ReferenceType: refType,
		ReferenceID:   req.ReferenceID,
		ActorID:       id.CustomerID,
		ActorName:     id.Name,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"new_stock":   newStock,
		"movement_id": movement.ID,
	})
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	movements, err := h.ledger.Movements(r.Context(), domledger.Filter{
		ProductID: q.Get("product_id"),
		Direction: domledger.Direction(q.Get("direction")),
		Limit:     limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(movements))
	for _, m := range movements {
		out = append(out, map[string]any{
			"id":             m.ID,
			"product_id":     m.ProductID,
			"product_name":   m.ProductName,
			"variant_id":     m.VariantID,
			"variant_label":  m.VariantLabel,
			"direction":      m.Direction,
			"quantity":       m.Quantity,
			"reason":         m.Reason,
			"reference_type": m.ReferenceType,
			"reference_id":   m.ReferenceID,
			"actor_name":     m.ActorName,
			"created_at":     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))

	alerts, err := h.ledger.LowStock(r.Context(), threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, map[string]any{
			"product_id":    a.ProductID,
			"product_name":  a.ProductName,
			"variant_id":    a.VariantID,
			"variant_label": a.VariantLabel,
			"current_stock": a.CurrentStock,
			"threshold":     a.Threshold,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleShippingQuote(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeError(w, http.StatusBadRequest, errors.New("city query parameter is required"))
		return
	}
	cost, eta := h.tariffs.Quote(city)
	writeJSON(w, http.StatusOK, map[string]any{
		"city":     city,
		"cost":     cost,
		"eta_days": eta,
	})
}

func (h *Handler) handleValidateGiftCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.checkout.ValidateGiftCard(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":    card.Code,
		"balance": card.Balance,
		"active":  card.Active,
	})
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if callerIdentity(r).Admin {
		return true
	}
	writeError(w, http.StatusForbidden, errors.New("admin role required"))
	return false
}

func orderResponse(o *domorder.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		item := map[string]any{
			"product_id":   it.ProductID,
			"product_name": it.ProductName,
			"unit_price":   it.UnitPrice,
			"quantity":     it.Quantity,
		}
		if it.Variant != nil {
			item["variant"] = map[string]any{
				"id":    it.Variant.ID,
				"size":  it.Variant.Size,
				"color": it.Variant.Color,
			}
		}
		items = append(items, item)
	}
	return map[string]any{
		"id":                o.ID,
		"invoice_number":    o.InvoiceNumber,
		"customer_id":       o.CustomerID,
		"customer_name":     o.CustomerName,
		"status":            o.Status,
		"payment_method":    o.PaymentMethod,
		"items":             items,
		"subtotal":          o.Subtotal,
		"discount":          o.Discount,
		"coupon_applied":    o.CouponApplied,
		"gift_applied":      o.GiftApplied,
		"shipping_cost":     o.ShippingCost,
		"total":             o.Total,
		"shipping_city":     o.ShippingCity,
		"delivery_eta_days": o.DeliveryETADays,
		"date":              o.Date,
	}
}

func returnResponse(ret *domreturns.Return) map[string]any {
	out := map[string]any{
		"id":                     ret.ID,
		"return_number":          ret.ReturnNumber,
		"order_id":               ret.OrderID,
		"order_number":           ret.OrderNumber,
		"customer_id":            ret.CustomerID,
		"product_id":             ret.ProductID,
		"product_name":           ret.ProductName,
		"variant_label":          ret.VariantLabel,
		"line_value":             ret.LineValue,
		"quantity":               ret.Quantity,
		"type":                   ret.Type,
		"reason":                 ret.Reason,
		"status":                 ret.Status,
		"customer_pays_shipping": ret.CustomerPaysShipping,
		"created_at":             ret.CreatedAt,
	}
	if ret.WarehouseID != "" {
		out["warehouse"] = map[string]any{
			"id":      ret.WarehouseID,
			"name":    ret.WarehouseName,
			"address": ret.WarehouseAddress,
		}
	}
	if ret.CouponCode != "" {
		out["coupon_code"] = ret.CouponCode
		out["coupon_value"] = ret.CouponValue
	}
	if ret.RejectionReason != "" {
		out["rejection_reason"] = ret.RejectionReason
	}
	if ret.ReviewResult != "" {
		out["review_result"] = ret.ReviewResult
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domcatalog.ErrVariantNotFound),
		errors.Is(err, domreturns.ErrNotFound),
		errors.Is(err, domred.ErrNotFound),
		errors.Is(err, domwarehouse.ErrNotFound),
		errors.Is(err, domaccount.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apporder.ErrForbidden),
		errors.Is(err, domreturns.ErrNotOwner),
		errors.Is(err, domred.ErrWrongCustomer):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domorder.ErrEmptyCart),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, domorder.ErrLineNotFound),
		errors.Is(err, domledger.ErrInvalidDirection),
		errors.Is(err, domledger.ErrInvalidQuantity),
		errors.Is(err, apporder.ErrNotVerified),
		errors.Is(err, apporder.ErrAddressRequired),
		errors.Is(err, apporder.ErrPhoneRequired),
		errors.Is(err, apporder.ErrCityRequired),
		errors.Is(err, apporder.ErrMethodRequired),
		errors.Is(err, apporder.ErrInvalidPromotion),
		errors.Is(err, apporder.ErrInvalidQuantity),
		errors.Is(err, domred.ErrInactive),
		errors.Is(err, domred.ErrExpired),
		errors.Is(err, domred.ErrAlreadyUsed),
		errors.Is(err, domreturns.ErrInvalidType),
		errors.Is(err, domreturns.ErrReasonRequired),
		errors.Is(err, domreturns.ErrWindowExpired),
		errors.Is(err, domreturns.ErrNotDelivered),
		errors.Is(err, dompayment.ErrTokenRequired):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domreturns.ErrInvalidTransition),
		errors.Is(err, domreturns.ErrAlreadyRequested),
		errors.Is(err, domorder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, dompayment.ErrGateway):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
