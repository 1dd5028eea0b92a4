// Package redemption holds the three instruments that reduce an order's
// payable total: promotion codes, gift cards, and personal coupons. Each has
// its own eligibility rules and its own commit-time side effect; the checkout
// assembler applies them through one shared reserve-then-commit discipline.
package redemption

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("redemption: instrument not found")
	ErrInactive       = errors.New("redemption: instrument is not active")
	ErrExpired        = errors.New("redemption: coupon has expired")
	ErrAlreadyUsed    = errors.New("redemption: coupon already used")
	ErrWrongCustomer  = errors.New("redemption: coupon belongs to another customer")
	ErrInvalidBalance = errors.New("redemption: balance must be greater than zero")
)

// Promotion is a percentage discount code. The discount has no commit-time
// side effect: applying it changes nothing but the order's totals.
type Promotion struct {
	ID          string
	Code        string
	DiscountPct int64
	Active      bool
	CreatedAt   time.Time
}

// DiscountOn computes the discount the promotion takes off a subtotal.
func (p *Promotion) DiscountOn(subtotal int64) int64 {
	return subtotal * p.DiscountPct / 100
}
