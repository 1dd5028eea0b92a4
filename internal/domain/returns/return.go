package returns

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("returns: not found")
	ErrInvalidTransition = errors.New("returns: invalid state transition")
	ErrInvalidType       = errors.New("returns: invalid return type")
	ErrReasonRequired    = errors.New("returns: a reason is required")
	ErrWindowExpired     = errors.New("returns: 30-day return window has expired")
	ErrNotDelivered      = errors.New("returns: order has not been delivered")
	ErrNotOwner          = errors.New("returns: order belongs to another customer")
	ErrAlreadyRequested  = errors.New("returns: an active return already exists for this line")
)

// ReturnWindow is how long after purchase a return may be requested.
const ReturnWindow = 30 * 24 * time.Hour

type Type string

const (
	TypeGarantia    Type = "garantia"
	TypeCambioTalla Type = "cambio_talla"
	TypeCambioColor Type = "cambio_color"
	TypeDefecto     Type = "defecto"
	TypeOtro        Type = "otro"
)

func (t Type) Valid() bool {
	switch t {
	case TypeGarantia, TypeCambioTalla, TypeCambioColor, TypeDefecto, TypeOtro:
		return true
	}
	return false
}

// CustomerPaysShipping: the customer bears return shipping unless the return
// is a warranty or defect claim.
func (t Type) CustomerPaysShipping() bool {
	return t != TypeGarantia && t != TypeDefecto
}

type Status string

const (
	StatusSolicitada     Status = "solicitada"
	StatusAprobada       Status = "aprobada"
	StatusRechazada      Status = "rechazada"
	StatusEnviadaCliente Status = "enviada_cliente"
	StatusRecibida       Status = "recibida"
	StatusRevisadaApta   Status = "revisada_apta"
	StatusRevisadaNoApta Status = "revisada_no_apta"
	StatusCompletada     Status = "completada"
)

// Terminal statuses end the workflow; no transition leaves them.
func (s Status) Terminal() bool {
	switch s {
	case StatusRechazada, StatusRevisadaNoApta, StatusCompletada:
		return true
	}
	return false
}

// Active reports whether the return still blocks a new request for the same
// order line. Rejected and failed-review returns free the line again.
func (s Status) Active() bool {
	return s != StatusRechazada && s != StatusRevisadaNoApta
}

// Return moves one order line through the returns workflow. All transitions
// are administrative and guarded; customers only create requests.
type Return struct {
	ID           string
	ReturnNumber string

	OrderID       string
	OrderNumber   string
	CustomerID    string
	CustomerName  string
	CustomerEmail string

	ProductID    string
	ProductName  string
	LineValue    int64
	Quantity     int
	VariantID    string
	VariantLabel string

	Type   Type
	Reason string
	Status Status

	AdminNotes      string
	RejectionReason string

	WarehouseID          string
	WarehouseName        string
	WarehouseAddress     string
	CustomerPaysShipping bool

	ReviewNotes           string
	ReviewResult          string
	ReviewRejectionReason string

	CouponCode  string
	CouponValue int64

	OrderDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Approve moves solicitada to aprobada, binding the destination warehouse the
// customer must ship the product to.
func (r *Return) Approve(warehouseID, warehouseName, warehouseAddress, adminNotes string) error {
	if r.Status != StatusSolicitada {
		return ErrInvalidTransition
	}
	r.Status = StatusAprobada
	r.WarehouseID = warehouseID
	r.WarehouseName = warehouseName
	r.WarehouseAddress = warehouseAddress
	r.AdminNotes = adminNotes
	r.touch()
	return nil
}

// RejectRequest terminally rejects a pending request.
func (r *Return) RejectRequest(reason string) error {
	if r.Status != StatusSolicitada {
		return ErrInvalidTransition
	}
	if reason == "" {
		return ErrReasonRequired
	}
	r.Status = StatusRechazada
	r.RejectionReason = reason
	r.touch()
	return nil
}

// MarkShipped records that the customer dispatched the product.
func (r *Return) MarkShipped() error {
	if r.Status != StatusAprobada {
		return ErrInvalidTransition
	}
	r.Status = StatusEnviadaCliente
	r.touch()
	return nil
}

// MarkReceived records physical receipt at the warehouse. No inventory or
// financial effect happens here.
func (r *Return) MarkReceived() error {
	if r.Status != StatusAprobada && r.Status != StatusEnviadaCliente {
		return ErrInvalidTransition
	}
	r.Status = StatusRecibida
	r.touch()
	return nil
}

// ReviewApta records a favorable quality review and the coupon it issued.
func (r *Return) ReviewApta(notes, couponCode string, couponValue int64) error {
	if r.Status != StatusRecibida {
		return ErrInvalidTransition
	}
	r.Status = StatusRevisadaApta
	r.ReviewResult = "apta"
	r.ReviewNotes = notes
	r.CouponCode = couponCode
	r.CouponValue = couponValue
	r.touch()
	return nil
}

// ReviewNoApta terminally fails the quality review.
func (r *Return) ReviewNoApta(notes, rejectionReason string) error {
	if r.Status != StatusRecibida {
		return ErrInvalidTransition
	}
	if rejectionReason == "" {
		rejectionReason = "producto no cumple condiciones de devolución"
	}
	r.Status = StatusRevisadaNoApta
	r.ReviewResult = "no_apta"
	r.ReviewNotes = notes
	r.ReviewRejectionReason = rejectionReason
	r.touch()
	return nil
}

func (r *Return) touch() {
	r.UpdatedAt = time.Now().UTC()
}
