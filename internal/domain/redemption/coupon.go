package redemption

import "time"

// Coupon is a single-use credit instrument bound to one customer, issued by
// the returns workflow on a favorable review.
type Coupon struct {
	ID            string
	Code          string
	Value         int64
	CustomerID    string
	CustomerEmail string
	ReturnID      string
	Used          bool
	UsedOnOrder   string
	ExpiresAt     time.Time
	Active        bool
	CreatedAt     time.Time
}

// Redeemable checks the coupon against the requesting customer at a point in
// time. It does not consume the coupon.
func (c *Coupon) Redeemable(customerID string, now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if c.Used {
		return ErrAlreadyUsed
	}
	if now.After(c.ExpiresAt) {
		return ErrExpired
	}
	if c.CustomerID != customerID {
		return ErrWrongCustomer
	}
	return nil
}

// Reserve computes the credit applied against the running total.
func (c *Coupon) Reserve(runningTotal int64) int64 {
	if c.Value < runningTotal {
		return c.Value
	}
	return runningTotal
}
