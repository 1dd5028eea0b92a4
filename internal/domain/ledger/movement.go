package ledger

import (
	"errors"
	"time"
)

var (
	ErrInvalidDirection = errors.New("ledger: invalid movement direction")
	ErrInvalidQuantity  = errors.New("ledger: quantity must be greater than zero")
)

// Direction distinguishes inbound stock, outbound stock, and administrative
// absolute sets.
type Direction string

const (
	DirectionEntrada Direction = "entrada"
	DirectionSalida  Direction = "salida"
	DirectionAjuste  Direction = "ajuste"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionEntrada, DirectionSalida, DirectionAjuste:
		return true
	}
	return false
}

// ReferenceType identifies the process that originated a movement.
type ReferenceType string

const (
	ReferenceCustomerOrder ReferenceType = "customer_order"
	ReferenceReturn        ReferenceType = "return"
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	ReferenceManual        ReferenceType = "manual"
)

// Movement is a write-once audit record of one inventory delta. For ajuste the
// quantity is recorded as the signed delta between the previous and the new
// counter, so that the signed sum of all movements for a product/variant always
// reconciles with its current stock counter.
type Movement struct {
	ID            string
	ProductID     string
	ProductName   string
	VariantID     string
	VariantLabel  string
	Direction     Direction
	Quantity      int
	Reason        string
	ReferenceType ReferenceType
	ReferenceID   string
	ActorID       string
	ActorName     string
	CreatedAt     time.Time
}

// SignedQuantity is the delta this movement applied to the stock counter.
func (m *Movement) SignedQuantity() int {
	switch m.Direction {
	case DirectionSalida:
		return -m.Quantity
	default:
		return m.Quantity
	}
}
