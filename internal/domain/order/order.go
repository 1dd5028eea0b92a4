package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrConflict      = errors.New("order: already exists")
	ErrEmptyCart     = errors.New("order: cart is empty")
	ErrInvalidStatus = errors.New("order: invalid status")
	ErrLineNotFound  = errors.New("order: line item not found in order")
)

type Status string

const (
	StatusPendientePago Status = "pendiente_pago"
	StatusConfirmado    Status = "confirmado"
	StatusEnviado       Status = "enviado"
	StatusEntregado     Status = "entregado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendientePago, StatusConfirmado, StatusEnviado, StatusEntregado:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCredit      PaymentMethod = "credit"
	MethodDebit       PaymentMethod = "debit"
	MethodPaypal      PaymentMethod = "paypal"
	MethodPSE         PaymentMethod = "pse"
	MethodCOD         PaymentMethod = "cod"
	MethodMercadoPago PaymentMethod = "mercadopago"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCredit, MethodDebit, MethodPaypal, MethodPSE, MethodCOD, MethodMercadoPago:
		return true
	}
	return false
}

// SettlesImmediately reports whether checkout may decrement stock and commit
// redemption instruments at order creation. Gateway-settled orders defer those
// side effects to settlement so abandoned checkouts do not strand inventory.
func (m PaymentMethod) SettlesImmediately() bool {
	return m != MethodMercadoPago
}

// ItemVariant is the variant snapshot embedded in a line item.
type ItemVariant struct {
	ID    string
	Size  string
	Color string
}

// Item is a priced line with the unit price snapshotted at checkout time.
type Item struct {
	ProductID   string
	ProductName string
	UnitPrice   int64
	Quantity    int
	Category    string
	Variant     *ItemVariant
}

func (it *Item) LineTotal() int64 {
	return it.UnitPrice * int64(it.Quantity)
}

// TrackingEvent is one entry of the append-only shipment log.
type TrackingEvent struct {
	Status string
	Note   string
	Date   time.Time
}

// Order is the aggregate root of a purchase. Totals obey
//
//	Total = Subtotal - Discount - CouponApplied - GiftApplied + ShippingCost
//
// and are immutable once Status leaves pendiente_pago.
type Order struct {
	ID            string
	CustomerID    string
	CustomerName  string
	Email         string
	Address       string
	Address2      string
	Department    string
	PostalCode    string
	Phone         string
	ShippingCity  string
	PaymentMethod PaymentMethod

	Items []Item

	Subtotal      int64
	Discount      int64
	PromoCode     string
	ShippingCost  int64
	GiftCardCode  string
	GiftApplied   int64
	CouponCode    string
	CouponApplied int64
	Total         int64

	DeliveryETADays int

	Status        Status
	InvoiceNumber string
	Date          time.Time

	// External gateway correlation.
	GatewayPaymentID string
	GatewayStatus    string

	TrackingNumber string
	Carrier        string
	TrackingEvents []TrackingEvent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds an order in the given initial status. Component amounts are set
// by the checkout assembler, which finishes with RecomputeTotal.
func New(id, customerID string, items []Item, status Status) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if status != StatusPendientePago && status != StatusConfirmado {
		return nil, ErrInvalidStatus
	}

	var subtotal int64
	for i := range items {
		subtotal += items[i].LineTotal()
	}

	now := time.Now().UTC()
	return &Order{
		ID:         id,
		CustomerID: customerID,
		Items:      items,
		Subtotal:   subtotal,
		Total:      subtotal,
		Status:     status,
		Date:       now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// RecomputeTotal re-derives Total from the component amounts.
func (o *Order) RecomputeTotal() {
	o.Total = o.Subtotal - o.Discount - o.CouponApplied - o.GiftApplied + o.ShippingCost
	o.touch()
}

// Line finds the item matching a product/variant pair.
func (o *Order) Line(productID, variantID string) (*Item, error) {
	for i := range o.Items {
		it := &o.Items[i]
		if it.ProductID != productID {
			continue
		}
		if variantID == "" {
			if it.Variant == nil {
				return it, nil
			}
			continue
		}
		if it.Variant != nil && it.Variant.ID == variantID {
			return it, nil
		}
	}
	return nil, ErrLineNotFound
}

// RecordGatewayResult stores the external correlation fields.
func (o *Order) RecordGatewayResult(paymentID, status string) {
	o.GatewayPaymentID = paymentID
	o.GatewayStatus = status
	o.touch()
}

// AppendTracking adds one event to the append-only tracking log.
func (o *Order) AppendTracking(status, note string) TrackingEvent {
	ev := TrackingEvent{Status: status, Note: note, Date: time.Now().UTC()}
	o.TrackingEvents = append(o.TrackingEvents, ev)
	o.touch()
	return ev
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repository callers cannot alias stored state.
func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = make([]Item, len(o.Items))
	copy(clone.Items, o.Items)
	for i := range clone.Items {
		if v := o.Items[i].Variant; v != nil {
			vc := *v
			clone.Items[i].Variant = &vc
		}
	}
	clone.TrackingEvents = make([]TrackingEvent, len(o.TrackingEvents))
	copy(clone.TrackingEvents, o.TrackingEvents)
	return &clone
}
