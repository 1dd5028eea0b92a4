// Package notification defines the fire-and-forget events the transactional
// core publishes after committing. Each event carries the fully-formed domain
// object; the notification worker alone is responsible for formatting.
package notification

import (
	"time"

	"github.com/tiendalino/commerce-core/internal/domain/order"
	"github.com/tiendalino/commerce-core/internal/domain/returns"
)

// OrderConfirmedEvent triggers the order-confirmation email.
type OrderConfirmedEvent struct {
	Order      *order.Order
	OccurredAt time.Time
}

func (OrderConfirmedEvent) EventName() string { return "notification.order_confirmed" }

func NewOrderConfirmedEvent(o *order.Order) OrderConfirmedEvent {
	return OrderConfirmedEvent{Order: o.Clone(), OccurredAt: time.Now().UTC()}
}

// InvoiceIssuedEvent triggers the invoice email.
type InvoiceIssuedEvent struct {
	Order      *order.Order
	OccurredAt time.Time
}

func (InvoiceIssuedEvent) EventName() string { return "notification.invoice_issued" }

func NewInvoiceIssuedEvent(o *order.Order) InvoiceIssuedEvent {
	return InvoiceIssuedEvent{Order: o.Clone(), OccurredAt: time.Now().UTC()}
}

// OrderStatusChangedEvent triggers the status-update email.
type OrderStatusChangedEvent struct {
	Order      *order.Order
	NewStatus  order.Status
	OccurredAt time.Time
}

func (OrderStatusChangedEvent) EventName() string { return "notification.order_status_changed" }

func NewOrderStatusChangedEvent(o *order.Order, status order.Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{Order: o.Clone(), NewStatus: status, OccurredAt: time.Now().UTC()}
}

// TrackingUpdatedEvent triggers the tracking-update email.
type TrackingUpdatedEvent struct {
	Order      *order.Order
	Event      order.TrackingEvent
	OccurredAt time.Time
}

func (TrackingUpdatedEvent) EventName() string { return "notification.tracking_updated" }

func NewTrackingUpdatedEvent(o *order.Order, ev order.TrackingEvent) TrackingUpdatedEvent {
	return TrackingUpdatedEvent{Order: o.Clone(), Event: ev, OccurredAt: time.Now().UTC()}
}

// ReturnUpdatedEvent covers the returns workflow mails (approved, rejected,
// received, review result); Stage names which one.
type ReturnUpdatedEvent struct {
	Return     *returns.Return
	Stage      string
	OccurredAt time.Time
}

func (ReturnUpdatedEvent) EventName() string { return "notification.return_updated" }

const (
	StageApproved = "approved"
	StageRejected = "rejected"
	StageReceived = "received"
	StageReviewed = "reviewed"
)

func NewReturnUpdatedEvent(r *returns.Return, stage string) ReturnUpdatedEvent {
	clone := *r
	return ReturnUpdatedEvent{Return: &clone, Stage: stage, OccurredAt: time.Now().UTC()}
}
