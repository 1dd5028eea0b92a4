package redemption

import "context"

type PromotionRepository interface {
	FindActiveByCode(ctx context.Context, code string) (*Promotion, error)
	Save(ctx context.Context, p *Promotion) error
}

type GiftCardRepository interface {
	FindByCode(ctx context.Context, code string) (*GiftCard, error)
	Save(ctx context.Context, g *GiftCard) error
	// Debit atomically subtracts amount from the card's balance, deactivating
	// the card when the balance reaches zero, and returns the remaining
	// balance. Debiting more than the balance drains it to zero.
	Debit(ctx context.Context, code string, amount int64) (int64, error)
}

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Insert(ctx context.Context, c *Coupon) error
	// MarkUsed atomically flips used=false to used=true, recording the order
	// the coupon was spent on. A false result means it was already spent.
	MarkUsed(ctx context.Context, code, orderID string) (bool, error)
}
