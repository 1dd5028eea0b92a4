// Package notify is the side-channel mail worker. It subscribes to the
// notification events the transactional core publishes and renders them as
// customer emails. Every failure here is logged and counted but never
// reaches the flow that committed the transaction.
package notify

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	domnotif "github.com/tiendalino/commerce-core/internal/domain/notification"
	domoutbox "github.com/tiendalino/commerce-core/internal/domain/outbox"
	domreturns "github.com/tiendalino/commerce-core/internal/domain/returns"
	"github.com/tiendalino/commerce-core/internal/pkg/logging"
	"go.uber.org/zap"
)

// Sender delivers one rendered email. The default implementation only logs;
// a real SMTP or provider client plugs in behind this.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes every email to the structured log instead of delivering
// it. It is the only sender in use while the platform has no mail provider.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	logging.FromContext(ctx).Info("email_sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

type Worker struct {
	subscriber domoutbox.Subscriber
	sender     Sender
	failures   prometheus.Counter
}

func New(subscriber domoutbox.Subscriber, sender Sender, failures prometheus.Counter) *Worker {
	return &Worker{
		subscriber: subscriber,
		sender:     sender,
		failures:   failures,
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domnotif.OrderConfirmedEvent{}.EventName(), w.handleOrderConfirmed)
	w.subscriber.Subscribe(domnotif.InvoiceIssuedEvent{}.EventName(), w.handleInvoiceIssued)
	w.subscriber.Subscribe(domnotif.OrderStatusChangedEvent{}.EventName(), w.handleStatusChanged)
	w.subscriber.Subscribe(domnotif.TrackingUpdatedEvent{}.EventName(), w.handleTrackingUpdated)
	w.subscriber.Subscribe(domnotif.ReturnUpdatedEvent{}.EventName(), w.handleReturnUpdated)
}

func (w *Worker) handleOrderConfirmed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domnotif.OrderConfirmedEvent)
	if !ok {
		return nil
	}
	o := evt.Order
	subject := fmt.Sprintf("Confirmación de pedido %s", o.InvoiceNumber)
	body := fmt.Sprintf(
		"Hola %s, tu pedido %s por $%d fue confirmado. Entrega estimada: %d días.",
		o.CustomerName, o.InvoiceNumber, o.Total, o.DeliveryETADays,
	)
	return w.send(ctx, o.Email, subject, body)
}

func (w *Worker) handleInvoiceIssued(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domnotif.InvoiceIssuedEvent)
	if !ok {
		return nil
	}
	o := evt.Order
	subject := fmt.Sprintf("Factura %s", o.InvoiceNumber)
	body := fmt.Sprintf(
		"Factura %s. Subtotal $%d, descuentos $%d, envío $%d, total $%d.",
		o.InvoiceNumber, o.Subtotal, o.Discount+o.CouponApplied+o.GiftApplied, o.ShippingCost, o.Total,
	)
	return w.send(ctx, o.Email, subject, body)
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domnotif.OrderStatusChangedEvent)
	if !ok {
		return nil
	}
	o := evt.Order
	subject := fmt.Sprintf("Actualización de tu pedido %s", o.InvoiceNumber)
	body := fmt.Sprintf("Tu pedido %s ahora está: %s.", o.InvoiceNumber, evt.NewStatus)
	return w.send(ctx, o.Email, subject, body)
}

func (w *Worker) handleTrackingUpdated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domnotif.TrackingUpdatedEvent)
	if !ok {
		return nil
	}
	o := evt.Order
	subject := fmt.Sprintf("Seguimiento de tu pedido %s", o.InvoiceNumber)
	body := fmt.Sprintf("Novedad en el envío: %s. %s", evt.Event.Status, evt.Event.Note)
	if o.TrackingNumber != "" {
		body = fmt.Sprintf("%s Guía %s (%s).", body, o.TrackingNumber, o.Carrier)
	}
	return w.send(ctx, o.Email, subject, body)
}

func (w *Worker) handleReturnUpdated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domnotif.ReturnUpdatedEvent)
	if !ok {
		return nil
	}
	r := evt.Return

	var subject, body string
	switch evt.Stage {
	case domnotif.StageApproved:
		subject = fmt.Sprintf("Devolución %s aprobada", r.ReturnNumber)
		body = fmt.Sprintf(
			"Tu devolución de %s fue aprobada. Envía el producto a %s, %s.",
			r.ProductName, r.WarehouseName, r.WarehouseAddress,
		)
		if r.CustomerPaysShipping {
			body += " El costo del envío corre por tu cuenta."
		}
	case domnotif.StageRejected:
		subject = fmt.Sprintf("Devolución %s rechazada", r.ReturnNumber)
		body = fmt.Sprintf("Tu solicitud fue rechazada: %s.", r.RejectionReason)
	case domnotif.StageReceived:
		subject = fmt.Sprintf("Devolución %s recibida", r.ReturnNumber)
		body = fmt.Sprintf("Recibimos %s en bodega. Pasará a revisión de calidad.", r.ProductName)
	case domnotif.StageReviewed:
		if r.Status == domreturns.StatusRevisadaApta {
			subject = fmt.Sprintf("Devolución %s aprobada en revisión", r.ReturnNumber)
			body = fmt.Sprintf(
				"Tu devolución fue aprobada. Cupón %s por $%d, válido por 3 meses.",
				r.CouponCode, r.CouponValue,
			)
		} else {
			subject = fmt.Sprintf("Devolución %s no aprobada", r.ReturnNumber)
			body = fmt.Sprintf("La revisión no fue favorable: %s.", r.ReviewRejectionReason)
		}
	default:
		return nil
	}
	return w.send(ctx, r.CustomerEmail, subject, body)
}

func (w *Worker) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return nil
	}
	if err := w.sender.Send(ctx, to, subject, body); err != nil {
		if w.failures != nil {
			w.failures.Inc()
		}
		logging.FromContext(ctx).Warn("notification_failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}
