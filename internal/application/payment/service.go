// Package payment brings pending orders to a terminal payment outcome,
// exactly once, regardless of which of the two trigger paths fires first.
package payment

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	apporder "github.com/tiendalino/commerce-core/internal/application/order"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	domain "github.com/tiendalino/commerce-core/internal/domain/order"
	dompayment "github.com/tiendalino/commerce-core/internal/domain/payment"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

const (
	pathCapture  = "capture"
	pathCallback = "callback"
)

type Service struct {
	orders   domain.Repository
	checkout *apporder.Service
	ledger   *appinventory.Service
	gateway  dompayment.Gateway

	// settlement_events_total{path,outcome}; optional.
	settlements *prometheus.CounterVec
}

func NewService(
	orders domain.Repository,
	checkout *apporder.Service,
	ledger *appinventory.Service,
	gateway dompayment.Gateway,
	settlements *prometheus.CounterVec,
) *Service {
	return &Service{
		orders:      orders,
		checkout:    checkout,
		ledger:      ledger,
		gateway:     gateway,
		settlements: settlements,
	}
}

type CaptureInput struct {
	Checkout apporder.PlaceOrderInput

	Token           string
	Installments    int
	PaymentMethodID string
	IssuerID        string
	PayerEmail      string
}

type CaptureResult struct {
	OrderID      string
	Status       dompayment.CaptureStatus
	StatusDetail string
	OrderStatus  domain.Status
}

// ProcessCapture is the synchronous trigger: assemble a pending order, ask
// the gateway to capture inline, and settle on the definitive answer.
func (s *Service) ProcessCapture(ctx context.Context, in CaptureInput) (*CaptureResult, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "settlement"))

	in.Checkout.PaymentMethod = domain.MethodMercadoPago
	o, _, err := s.checkout.Assemble(ctx, in.Checkout, true)
	if err != nil {
		return nil, err
	}

	payerEmail := in.PayerEmail
	if payerEmail == "" {
		payerEmail = o.Email
	}
	capture, err := s.gateway.CreateCapture(ctx, dompayment.CaptureRequest{
		Amount:            o.Total,
		Token:             in.Token,
		Description:       fmt.Sprintf("Pedido %s", o.InvoiceNumber),
		Installments:      in.Installments,
		PaymentMethodID:   in.PaymentMethodID,
		IssuerID:          in.IssuerID,
		PayerEmail:        payerEmail,
		ExternalReference: o.ID,
	})
	if err != nil {
		logger.Error("capture_failed", zap.String("order_id", o.ID), zap.Error(err))
		return nil, err
	}

	status, err := s.apply(ctx, o.ID, capture, pathCapture)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{
		OrderID:      o.ID,
		Status:       capture.Status,
		StatusDetail: capture.StatusDetail,
		OrderStatus:  status,
	}, nil
}

type PreferenceResult struct {
	OrderID      string
	PreferenceID string
	InitPoint    string
}

// CreatePreference is the deferred trigger's entry point: a pending order
// plus a hosted-checkout session. Settlement arrives later via the webhook.
func (s *Service) CreatePreference(ctx context.Context, in apporder.PlaceOrderInput) (*PreferenceResult, error) {
	in.PaymentMethod = domain.MethodMercadoPago
	o, _, err := s.checkout.Assemble(ctx, in, true)
	if err != nil {
		return nil, err
	}

	items := make([]dompayment.PreferenceItem, 0, len(o.Items)+3)
	for _, it := range o.Items {
		title := it.ProductName
		if it.Variant != nil {
			title = fmt.Sprintf("%s (%s/%s)", it.ProductName, it.Variant.Size, it.Variant.Color)
		}
		items = append(items, dompayment.PreferenceItem{
			ID:        it.ProductID,
			Title:     title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	if o.ShippingCost > 0 {
		items = append(items, dompayment.PreferenceItem{
			ID: "shipping", Title: fmt.Sprintf("Envío a %s", o.ShippingCity), Quantity: 1, UnitPrice: o.ShippingCost,
		})
	}
	if o.Discount > 0 {
		items = append(items, dompayment.PreferenceItem{
			ID: "discount", Title: fmt.Sprintf("Descuento (%s)", o.PromoCode), Quantity: 1, UnitPrice: -o.Discount,
		})
	}
	if o.GiftApplied > 0 {
		items = append(items, dompayment.PreferenceItem{
			ID: "giftcard", Title: fmt.Sprintf("Gift Card (%s)", o.GiftCardCode), Quantity: 1, UnitPrice: -o.GiftApplied,
		})
	}
	if o.CouponApplied > 0 {
		items = append(items, dompayment.PreferenceItem{
			ID: "coupon", Title: fmt.Sprintf("Cupón (%s)", o.CouponCode), Quantity: 1, UnitPrice: -o.CouponApplied,
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, dompayment.PreferenceRequest{
		Items:             items,
		PayerName:         o.CustomerName,
		PayerEmail:        o.Email,
		ExternalReference: o.ID,
	})
	if err != nil {
		return nil, err
	}
	return &PreferenceResult{OrderID: o.ID, PreferenceID: pref.ID, InitPoint: pref.InitPoint}, nil
}

// HandleCallback is the asynchronous trigger. It never returns the anomaly
// to the gateway: the endpoint always acknowledges and the error value here
// is for internal logging only.
func (s *Service) HandleCallback(ctx context.Context, cb dompayment.Callback) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "settlement"))

	if cb.Type != "payment" || cb.DataID == "" {
		logger.Debug("callback_ignored", zap.String("type", cb.Type))
		return nil
	}

	capture, err := s.gateway.GetPayment(ctx, cb.DataID)
	if err != nil {
		return fmt.Errorf("settlement: payment lookup: %w", err)
	}
	if capture.ExternalReference == "" {
		return dompayment.ErrUnknownCallback
	}

	if _, err := s.apply(ctx, capture.ExternalReference, capture, pathCallback); err != nil {
		return err
	}
	return nil
}

// apply converges both trigger paths on the same guarded transition.
func (s *Service) apply(ctx context.Context, orderID string, capture *dompayment.Capture, path string) (domain.Status, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "settlement"),
		zap.String("order_id", orderID),
		zap.String("path", path),
	)

	switch capture.Status {
	case dompayment.CaptureApproved:
		settled, err := s.settle(ctx, orderID, capture, path)
		if err != nil {
			return "", err
		}
		if !settled {
			// The other trigger won the race; this invocation is a no-op.
			logger.Info("settlement_duplicate", zap.String("payment_id", capture.ID))
			s.count(path, "duplicate")
		}
		return domain.StatusConfirmado, nil

	case dompayment.CaptureRejected:
		if err := s.recordGateway(ctx, orderID, capture); err != nil {
			return "", err
		}
		logger.Info("payment_rejected", zap.String("payment_id", capture.ID), zap.String("detail", capture.StatusDetail))
		s.count(path, "rejected")
		return domain.StatusPendientePago, nil

	default: // pending / in_process: status recorded, no side effects yet.
		if err := s.recordGateway(ctx, orderID, capture); err != nil {
			return "", err
		}
		logger.Info("payment_pending", zap.String("payment_id", capture.ID), zap.String("status", string(capture.Status)))
		s.count(path, "pending")
		return domain.StatusPendientePago, nil
	}
}

// settle performs the at-most-once side effects. The compare-and-set on the
// order status is the idempotency gate: whichever trigger flips
// pendiente_pago to confirmado runs the effects, every later arrival reports
// settled=false and does nothing.
func (s *Service) settle(ctx context.Context, orderID string, capture *dompayment.Capture, path string) (bool, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "settlement"),
		zap.String("order_id", orderID),
		zap.String("path", path),
	)

	won, err := s.orders.TransitionStatus(ctx, orderID, domain.StatusPendientePago, domain.StatusConfirmado)
	if err != nil {
		return false, fmt.Errorf("settlement: transition: %w", err)
	}
	if !won {
		return false, nil
	}

	if _, err := s.orders.RecordGatewayResultIf(ctx, orderID, capture.ID, string(capture.Status), domain.StatusConfirmado); err != nil {
		return false, err
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return false, err
	}

	// Money is captured; an out-of-stock line at this point is an anomaly to
	// log and reconcile, not a reason to fail the settlement.
	for i := range o.Items {
		it := &o.Items[i]
		variantID := ""
		if it.Variant != nil {
			variantID = it.Variant.ID
		}
		_, _, err := s.ledger.Adjust(ctx, appinventory.AdjustInput{
			ProductID:     it.ProductID,
			VariantID:     variantID,
			Direction:     domledger.DirectionSalida,
			Quantity:      it.Quantity,
			Reason:        "venta",
			ReferenceType: domledger.ReferenceCustomerOrder,
			ReferenceID:   o.ID,
			ActorID:       o.CustomerID,
			ActorName:     o.CustomerName,
		})
		if err != nil {
			logger.Error("settlement_stock_anomaly",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
		}
	}

	if err := s.checkout.CommitRecordedRedemptions(ctx, o); err != nil {
		logger.Error("settlement_redemption_anomaly", zap.Error(err))
	}

	s.checkout.PublishConfirmation(ctx, o)

	logger.Info("settlement_applied", zap.String("payment_id", capture.ID), zap.Int64("total", o.Total))
	s.count(path, "settled")
	return true, nil
}

// recordGateway persists the correlation fields without settling. The write
// is conditional on the order still being pendiente_pago, evaluated inside
// the repository: a non-approved notification that loses a race against a
// concurrent settlement is discarded instead of overwriting the confirmed
// order. Late rejections for already confirmed orders are ignored the same
// way.
func (s *Service) recordGateway(ctx context.Context, orderID string, capture *dompayment.Capture) error {
	_, err := s.orders.RecordGatewayResultIf(ctx, orderID, capture.ID, string(capture.Status), domain.StatusPendientePago)
	return err
}

type StatusResult struct {
	OrderID       string
	Status        domain.Status
	GatewayStatus string
	Total         int64
	InvoiceNumber string
}

// Status is the post-redirect poll the storefront uses.
func (s *Service) Status(ctx context.Context, orderID, customerID string, admin bool) (*StatusResult, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && o.CustomerID != customerID {
		return nil, apporder.ErrForbidden
	}
	return &StatusResult{
		OrderID:       o.ID,
		Status:        o.Status,
		GatewayStatus: o.GatewayStatus,
		Total:         o.Total,
		InvoiceNumber: o.InvoiceNumber,
	}, nil
}

func (s *Service) count(path, outcome string) {
	if s.settlements != nil {
		s.settlements.WithLabelValues(path, outcome).Inc()
	}
}
