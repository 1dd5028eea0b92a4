package payment

import (
	"context"
	"errors"
)

var (
	ErrGateway         = errors.New("payment: gateway error")
	ErrTokenRequired   = errors.New("payment: card token is required")
	ErrUnknownCallback = errors.New("payment: callback does not reference a known payment")
)

// CaptureStatus is the authoritative status reported by the external gateway.
type CaptureStatus string

const (
	CaptureApproved  CaptureStatus = "approved"
	CaptureRejected  CaptureStatus = "rejected"
	CapturePending   CaptureStatus = "pending"
	CaptureInProcess CaptureStatus = "in_process"
)

// Capture is the gateway's view of one payment attempt. ExternalReference
// carries the order id this system supplied when creating the capture.
type Capture struct {
	ID                string
	Status            CaptureStatus
	StatusDetail      string
	ExternalReference string
}

// CaptureRequest is an inline card capture.
type CaptureRequest struct {
	Amount            int64
	Token             string
	Description       string
	Installments      int
	PaymentMethodID   string
	IssuerID          string
	PayerEmail        string
	ExternalReference string
}

// PreferenceItem is one display line of a redirect-checkout preference.
type PreferenceItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice int64
}

// PreferenceRequest asks the gateway for a hosted-checkout session.
type PreferenceRequest struct {
	Items             []PreferenceItem
	PayerName         string
	PayerEmail        string
	ExternalReference string
}

// Preference is the hosted-checkout session the customer is redirected to.
type Preference struct {
	ID        string
	InitPoint string
}

// Callback is the inbound webhook payload shape: the gateway only delivers a
// type and a payment id; the authoritative status must be fetched back.
type Callback struct {
	Type   string
	DataID string
}

// Gateway is the outbound interface to the external payment provider. The
// gateway, not this system, is the source of truth for whether money moved.
type Gateway interface {
	CreateCapture(ctx context.Context, req CaptureRequest) (*Capture, error)
	GetPayment(ctx context.Context, id string) (*Capture, error)
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}
