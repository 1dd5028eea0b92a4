// Package returns runs the returns workflow: request, approval, physical
// receipt, quality review, and the coupon issued by a favorable outcome.
package returns

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	domnotif "github.com/tiendalino/commerce-core/internal/domain/notification"
	domorder "github.com/tiendalino/commerce-core/internal/domain/order"
	domoutbox "github.com/tiendalino/commerce-core/internal/domain/outbox"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
	domain "github.com/tiendalino/commerce-core/internal/domain/returns"
	domwarehouse "github.com/tiendalino/commerce-core/internal/domain/warehouse"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

const (
	couponPrefix   = "PL-DEV-"
	couponAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponValidity = 3 // months
)

type IDGenerator interface {
	NewID() string
}

type Service struct {
	returns     domain.Repository
	orders      domorder.Repository
	coupons     domred.CouponRepository
	warehouses  domwarehouse.Repository
	ledger      *appinventory.Service
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
}

func NewService(
	returnsRepo domain.Repository,
	orders domorder.Repository,
	coupons domred.CouponRepository,
	warehouses domwarehouse.Repository,
	ledger *appinventory.Service,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
) *Service {
	return &Service{
		returns:     returnsRepo,
		orders:      orders,
		coupons:     coupons,
		warehouses:  warehouses,
		ledger:      ledger,
		idGenerator: idGen,
		publisher:   publisher,
	}
}

type CreateInput struct {
	CustomerID string
	OrderID    string
	ProductID  string
	VariantID  string
	Type       domain.Type
	Reason     string
}

// Create accepts a customer's return request after checking every
// precondition; nothing is persisted when any of them fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Return, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "returns"))

	if in.OrderID == "" || in.ProductID == "" || in.Reason == "" {
		return nil, domain.ErrReasonRequired
	}
	if !in.Type.Valid() {
		return nil, domain.ErrInvalidType
	}

	o, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != in.CustomerID {
		return nil, domain.ErrNotOwner
	}
	if o.Status != domorder.StatusEntregado {
		return nil, domain.ErrNotDelivered
	}
	if time.Since(o.Date) > domain.ReturnWindow {
		return nil, domain.ErrWindowExpired
	}

	item, err := o.Line(in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}

	if _, err := s.returns.FindActiveForLine(ctx, in.OrderID, in.ProductID, in.VariantID); err == nil {
		return nil, domain.ErrAlreadyRequested
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	number, err := s.returns.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	variantLabel := ""
	if item.Variant != nil {
		variantLabel = fmt.Sprintf("%s/%s", item.Variant.Size, item.Variant.Color)
	}

	now := time.Now().UTC()
	ret := &domain.Return{
		ID:            s.idGenerator.NewID(),
		ReturnNumber:  number,
		OrderID:       o.ID,
		OrderNumber:   o.InvoiceNumber,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.Email,
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		LineValue:     item.LineTotal(),
		Quantity:      item.Quantity,
		VariantID:     in.VariantID,
		VariantLabel:  variantLabel,
		Type:          in.Type,
		Reason:        in.Reason,
		Status:        domain.StatusSolicitada,

		CustomerPaysShipping: in.Type.CustomerPaysShipping(),
		OrderDate:            o.Date,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.returns.Insert(ctx, ret); err != nil {
		return nil, fmt.Errorf("returns: insert: %w", err)
	}

	logger.Info("return_requested",
		zap.String("return_id", ret.ID),
		zap.String("return_number", ret.ReturnNumber),
		zap.String("order_id", o.ID),
	)
	return ret, nil
}

// Approve moves a pending request to aprobada, binding the warehouse the
// customer must ship to.
func (s *Service) Approve(ctx context.Context, id, warehouseID, adminNotes string) (*domain.Return, error) {
	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wh, err := s.warehouses.Get(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	address := wh.Location
	if address == "" {
		address = wh.Name
	}
	if err := ret.Approve(wh.ID, wh.Name, address, adminNotes); err != nil {
		return nil, err
	}
	if err := s.returns.Update(ctx, ret); err != nil {
		return nil, err
	}

	s.notify(ctx, ret, domnotif.StageApproved)
	return ret, nil
}

// Reject terminally rejects a pending request.
func (s *Service) Reject(ctx context.Context, id, reason string) (*domain.Return, error) {
	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ret.RejectRequest(reason); err != nil {
		return nil, err
	}
	if err := s.returns.Update(ctx, ret); err != nil {
		return nil, err
	}

	s.notify(ctx, ret, domnotif.StageRejected)
	return ret, nil
}

// MarkShipped records that the customer dispatched the product.
func (s *Service) MarkShipped(ctx context.Context, id string) (*domain.Return, error) {
	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ret.MarkShipped(); err != nil {
		return nil, err
	}
	if err := s.returns.Update(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// MarkReceived records physical receipt at the warehouse.
func (s *Service) MarkReceived(ctx context.Context, id string) (*domain.Return, error) {
	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ret.MarkReceived(); err != nil {
		return nil, err
	}
	if err := s.returns.Update(ctx, ret); err != nil {
		return nil, err
	}

	s.notify(ctx, ret, domnotif.StageReceived)
	return ret, nil
}

type ReviewInput struct {
	Result          string // apta | no_apta
	Notes           string
	RejectionReason string
}

// Review closes the quality check. A favorable result issues a personal
// coupon worth the returned line and restores the quantity to stock through
// the ledger; an unfavorable one terminates with no credit and no stock
// effect.
func (s *Service) Review(ctx context.Context, id string, in ReviewInput) (*domain.Return, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "returns"))

	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch in.Result {
	case "apta":
		coupon := &domred.Coupon{
			ID:            s.idGenerator.NewID(),
			Code:          generateCouponCode(),
			Value:         ret.LineValue,
			CustomerID:    ret.CustomerID,
			CustomerEmail: ret.CustomerEmail,
			ReturnID:      ret.ID,
			ExpiresAt:     time.Now().UTC().AddDate(0, couponValidity, 0),
			Active:        true,
			CreatedAt:     time.Now().UTC(),
		}

		if err := ret.ReviewApta(in.Notes, coupon.Code, coupon.Value); err != nil {
			return nil, err
		}
		if err := s.coupons.Insert(ctx, coupon); err != nil {
			return nil, fmt.Errorf("returns: issue coupon: %w", err)
		}

		_, _, err = s.ledger.Adjust(ctx, appinventory.AdjustInput{
			ProductID:     ret.ProductID,
			VariantID:     ret.VariantID,
			Direction:     domledger.DirectionEntrada,
			Quantity:      ret.Quantity,
			Reason:        fmt.Sprintf("devolución %s", ret.ReturnNumber),
			ReferenceType: domledger.ReferenceReturn,
			ReferenceID:   ret.ID,
		})
		if err != nil {
			logger.Error("return_stock_restore_failed",
				zap.String("return_id", ret.ID),
				zap.Error(err),
			)
		}

		logger.Info("return_approved_coupon_issued",
			zap.String("return_id", ret.ID),
			zap.String("coupon_code", coupon.Code),
			zap.Int64("coupon_value", coupon.Value),
		)

	case "no_apta":
		if err := ret.ReviewNoApta(in.Notes, in.RejectionReason); err != nil {
			return nil, err
		}

	default:
		return nil, domain.ErrInvalidTransition
	}

	if err := s.returns.Update(ctx, ret); err != nil {
		return nil, err
	}

	s.notify(ctx, ret, domnotif.StageReviewed)
	return ret, nil
}

// ValidateCoupon checks a coupon for the requesting customer during
// checkout. It does not consume the coupon.
func (s *Service) ValidateCoupon(ctx context.Context, code, customerID string) (*domred.Coupon, error) {
	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := coupon.Redeemable(customerID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *Service) Get(ctx context.Context, id, customerID string, admin bool) (*domain.Return, error) {
	ret, err := s.returns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && ret.CustomerID != customerID {
		return nil, domain.ErrNotOwner
	}
	return ret, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Return, error) {
	return s.returns.List(ctx)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Return, error) {
	return s.returns.ListByCustomer(ctx, customerID)
}

func (s *Service) notify(ctx context.Context, ret *domain.Return, stage string) {
	if s.publisher == nil || ret.CustomerEmail == "" {
		return
	}
	_ = s.publisher.Publish(ctx, domnotif.NewReturnUpdatedEvent(ret, stage))
}

func generateCouponCode() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = couponAlphabet[rand.Intn(len(couponAlphabet))]
	}
	return couponPrefix + string(suffix)
}
