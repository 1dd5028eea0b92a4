// Package order assembles carts into priced, stock-validated orders and
// manages their later lifecycle (status, tracking).
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appinventory "github.com/tiendalino/commerce-core/internal/application/inventory"
	domaccount "github.com/tiendalino/commerce-core/internal/domain/account"
	domcatalog "github.com/tiendalino/commerce-core/internal/domain/catalog"
	domledger "github.com/tiendalino/commerce-core/internal/domain/ledger"
	domnotif "github.com/tiendalino/commerce-core/internal/domain/notification"
	domain "github.com/tiendalino/commerce-core/internal/domain/order"
	domoutbox "github.com/tiendalino/commerce-core/internal/domain/outbox"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

var (
	ErrNotVerified      = errors.New("checkout: account email must be verified before ordering")
	ErrAddressRequired  = errors.New("checkout: shipping address is required")
	ErrPhoneRequired    = errors.New("checkout: phone number is required")
	ErrCityRequired     = errors.New("checkout: shipping city is required")
	ErrMethodRequired   = errors.New("checkout: payment method is required")
	ErrInvalidPromotion = errors.New("checkout: invalid promotion code")
	ErrInvalidQuantity  = errors.New("checkout: line quantity must be greater than zero")
	ErrForbidden        = errors.New("order: not the order owner")
)

type IDGenerator interface {
	NewID() string
}

// TariffTable quotes shipping from a fixed external table; the server-side
// quote is authoritative and any client-supplied figure is ignored.
type TariffTable interface {
	Quote(city string) (cost int64, etaDays int)
}

type Service struct {
	orders      domain.Repository
	catalog     domcatalog.Repository
	accounts    domaccount.Directory
	promotions  domred.PromotionRepository
	giftCards   domred.GiftCardRepository
	coupons     domred.CouponRepository
	ledger      *appinventory.Service
	tariffs     TariffTable
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
}

func NewService(
	orders domain.Repository,
	catalogRepo domcatalog.Repository,
	accounts domaccount.Directory,
	promotions domred.PromotionRepository,
	giftCards domred.GiftCardRepository,
	coupons domred.CouponRepository,
	ledger *appinventory.Service,
	tariffs TariffTable,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
) *Service {
	return &Service{
		orders:      orders,
		catalog:     catalogRepo,
		accounts:    accounts,
		promotions:  promotions,
		giftCards:   giftCards,
		coupons:     coupons,
		ledger:      ledger,
		tariffs:     tariffs,
		idGenerator: idGen,
		publisher:   publisher,
	}
}

type LineInput struct {
	ProductID string
	VariantID string
	Quantity  int
}

type PlaceOrderInput struct {
	CustomerID    string
	CustomerName  string
	Email         string
	Address       string
	Address2      string
	Department    string
	PostalCode    string
	Phone         string
	ShippingCity  string
	PaymentMethod domain.PaymentMethod
	Items         []LineInput
	PromoCode     string
	GiftCardCode  string
	CouponCode    string
}

// PlaceOrder prices and persists a cart in one logical operation. For payment
// methods that settle immediately the stock is decremented and the redemption
// instruments are committed here; gateway-settled orders stay pendiente_pago
// with those side effects deferred to settlement.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	deferred := !in.PaymentMethod.SettlesImmediately()
	o, instruments, err := s.Assemble(ctx, in, deferred)
	if err != nil {
		return nil, err
	}

	if !deferred {
		if err := s.DecrementLines(ctx, o); err != nil {
			s.discard(ctx, o)
			return nil, err
		}
		if err := s.CommitInstruments(ctx, o, instruments); err != nil {
			logger.Error("instrument_commit_failed", zap.String("order_id", o.ID), zap.Error(err))
			s.restoreAllLines(ctx, o)
			s.discard(ctx, o)
			return nil, err
		}
		s.PublishConfirmation(ctx, o)
	}

	logger.Info("order_placed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.Int64("total", o.Total),
	)
	return o, nil
}

// Assemble validates, prices, and persists the order without performing any
// settlement side effect. The returned instruments carry the reserved
// amounts; callers decide when to commit them.
func (s *Service) Assemble(ctx context.Context, in PlaceOrderInput, deferred bool) (*domain.Order, []instrument, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, nil, err
	}

	items, err := s.priceLines(ctx, in.Items)
	if err != nil {
		return nil, nil, err
	}

	status := domain.StatusConfirmado
	if deferred {
		status = domain.StatusPendientePago
	}

	o, err := domain.New(s.idGenerator.NewID(), in.CustomerID, items, status)
	if err != nil {
		return nil, nil, err
	}
	o.CustomerName = in.CustomerName
	o.Email = in.Email
	o.Address = in.Address
	o.Address2 = in.Address2
	o.Department = in.Department
	o.PostalCode = in.PostalCode
	o.Phone = in.Phone
	o.ShippingCity = in.ShippingCity
	o.PaymentMethod = in.PaymentMethod
	o.InvoiceNumber = fmt.Sprintf("FAC-%d", time.Now().UnixMilli())

	cost, eta := s.tariffs.Quote(in.ShippingCity)
	o.ShippingCost = cost
	o.DeliveryETADays = eta

	instruments, err := s.resolveInstruments(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	running := o.Subtotal + o.ShippingCost
	for _, ins := range instruments {
		running = ins.reserve(o, running)
	}
	o.RecomputeTotal()

	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, nil, fmt.Errorf("checkout: insert order: %w", err)
	}
	return o, instruments, nil
}

func (s *Service) validate(ctx context.Context, in PlaceOrderInput) error {
	acct, err := s.accounts.Get(ctx, in.CustomerID)
	if err != nil {
		return err
	}
	if !acct.Verified {
		return ErrNotVerified
	}
	if strings.TrimSpace(in.Address) == "" {
		return ErrAddressRequired
	}
	if strings.TrimSpace(in.Phone) == "" {
		return ErrPhoneRequired
	}
	if strings.TrimSpace(in.ShippingCity) == "" {
		return ErrCityRequired
	}
	if in.PaymentMethod == "" || !in.PaymentMethod.Valid() {
		return ErrMethodRequired
	}
	if len(in.Items) == 0 {
		return domain.ErrEmptyCart
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// priceLines resolves every product in one batch lookup, snapshots unit
// prices (variant override wins), and rejects lines whose quantity exceeds
// the currently visible stock. The authoritative guard runs again at
// decrement time.
func (s *Service) priceLines(ctx context.Context, lines []LineInput) ([]domain.Item, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, domcatalog.ErrNotFound
		}
		unitPrice, err := p.UnitPrice(l.VariantID)
		if err != nil {
			return nil, err
		}
		available, err := p.StockFor(l.VariantID)
		if err != nil {
			return nil, err
		}
		if available < l.Quantity {
			return nil, fmt.Errorf("%w: %s", domcatalog.ErrInsufficientStock, p.Name)
		}

		item := domain.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   unitPrice,
			Quantity:    l.Quantity,
			Category:    p.Category,
		}
		if l.VariantID != "" {
			v, err := p.Variant(l.VariantID)
			if err != nil {
				return nil, err
			}
			item.Variant = &domain.ItemVariant{ID: v.ID, Size: v.Size, Color: v.Color}
		}
		items = append(items, item)
	}
	return items, nil
}

// DecrementLines debits stock for every line through the ledger. On failure
// the already-debited lines are restored, so a lost race for the last unit
// leaves no partial decrement behind.
func (s *Service) DecrementLines(ctx context.Context, o *domain.Order) error {
	done := make([]*domain.Item, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		_, _, err := s.ledger.Adjust(ctx, appinventory.AdjustInput{
			ProductID:     it.ProductID,
			VariantID:     variantID(it),
			Direction:     domledger.DirectionSalida,
			Quantity:      it.Quantity,
			Reason:        "venta",
			ReferenceType: domledger.ReferenceCustomerOrder,
			ReferenceID:   o.ID,
			ActorID:       o.CustomerID,
			ActorName:     o.CustomerName,
		})
		if err != nil {
			s.restoreLines(ctx, o, done)
			return err
		}
		done = append(done, it)
	}
	return nil
}

func (s *Service) restoreAllLines(ctx context.Context, o *domain.Order) {
	items := make([]*domain.Item, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, &o.Items[i])
	}
	s.restoreLines(ctx, o, items)
}

// discard removes an order whose immediate settlement failed after insert, so
// a rejected checkout never surfaces as a confirmed order.
func (s *Service) discard(ctx context.Context, o *domain.Order) {
	if err := s.orders.Delete(ctx, o.ID); err != nil {
		logging.FromContext(ctx).Error("order_discard_failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) restoreLines(ctx context.Context, o *domain.Order, items []*domain.Item) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))
	for _, it := range items {
		_, _, err := s.ledger.Adjust(ctx, appinventory.AdjustInput{
			ProductID:     it.ProductID,
			VariantID:     variantID(it),
			Direction:     domledger.DirectionEntrada,
			Quantity:      it.Quantity,
			Reason:        "reverso de venta fallida",
			ReferenceType: domledger.ReferenceCustomerOrder,
			ReferenceID:   o.ID,
			ActorID:       o.CustomerID,
			ActorName:     o.CustomerName,
		})
		if err != nil {
			logger.Error("line_restore_failed",
				zap.String("order_id", o.ID),
				zap.String("product_id", it.ProductID),
				zap.Error(err),
			)
		}
	}
}

// CommitInstruments performs the durable debits reserved at assembly time.
func (s *Service) CommitInstruments(ctx context.Context, o *domain.Order, instruments []instrument) error {
	for _, ins := range instruments {
		if err := ins.commit(ctx, o.ID); err != nil {
			return err
		}
	}
	return nil
}

// CommitRecordedRedemptions re-derives the instrument commits from the
// persisted order fields. Settlement uses this: the in-memory instruments
// from assembly are long gone by the time a gateway callback arrives.
func (s *Service) CommitRecordedRedemptions(ctx context.Context, o *domain.Order) error {
	if o.GiftCardCode != "" && o.GiftApplied > 0 {
		if _, err := s.giftCards.Debit(ctx, o.GiftCardCode, o.GiftApplied); err != nil {
			return fmt.Errorf("gift card debit: %w", err)
		}
	}
	if o.CouponCode != "" && o.CouponApplied > 0 {
		ok, err := s.coupons.MarkUsed(ctx, o.CouponCode, o.ID)
		if err != nil {
			return fmt.Errorf("coupon mark used: %w", err)
		}
		if !ok {
			return domred.ErrAlreadyUsed
		}
	}
	return nil
}

// PublishConfirmation emits the confirmation and invoice notifications; the
// settlement coordinator calls it after a successful capture. Failures are
// logged by the bus, never surfaced to the caller.
func (s *Service) PublishConfirmation(ctx context.Context, o *domain.Order) {
	if s.publisher == nil || o.Email == "" {
		return
	}
	_ = s.publisher.Publish(ctx, domnotif.NewOrderConfirmedEvent(o))
	_ = s.publisher.Publish(ctx, domnotif.NewInvoiceIssuedEvent(o))
}

// ValidateGiftCard checks a gift card without debiting it; the storefront
// uses it to show the balance before checkout.
func (s *Service) ValidateGiftCard(ctx context.Context, code string) (*domred.GiftCard, error) {
	card, err := s.giftCards.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !card.Active || card.Balance <= 0 {
		return nil, domred.ErrInactive
	}
	return card, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.orders.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.List(ctx)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// UpdateStatus moves a paid order through fulfilment (confirmado → enviado →
// entregado) and notifies the customer.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	if status != domain.StatusConfirmado && status != domain.StatusEnviado && status != domain.StatusEntregado {
		return nil, domain.ErrInvalidStatus
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Status = status
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	if s.publisher != nil && o.Email != "" {
		_ = s.publisher.Publish(ctx, domnotif.NewOrderStatusChangedEvent(o, status))
	}
	return o, nil
}

// SetTrackingMeta records the carrier and tracking number.
func (s *Service) SetTrackingMeta(ctx context.Context, id, trackingNumber, carrier string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.TrackingNumber = trackingNumber
	o.Carrier = carrier
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// AddTrackingEvent appends to the order's tracking log and notifies the
// customer.
func (s *Service) AddTrackingEvent(ctx context.Context, id, status, note string) (*domain.Order, error) {
	if status == "" {
		return nil, fmt.Errorf("order: tracking status is required")
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ev := o.AppendTracking(status, note)
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	if s.publisher != nil && o.Email != "" {
		_ = s.publisher.Publish(ctx, domnotif.NewTrackingUpdatedEvent(o, ev))
	}
	return o, nil
}

// Tracking returns the shipment view of an order, owner-gated.
func (s *Service) Tracking(ctx context.Context, id, customerID string, admin bool) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return o, nil
}

func variantID(it *domain.Item) string {
	if it.Variant == nil {
		return ""
	}
	return it.Variant.ID
}
