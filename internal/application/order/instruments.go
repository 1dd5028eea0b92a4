package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/tiendalino/commerce-core/internal/domain/order"
	domred "github.com/tiendalino/commerce-core/internal/domain/redemption"
)

// instrument is one redemption applied to a checkout: reserve computes its
// effect on the running total at quote time and records it on the order;
// commit performs the durable debit, and runs only once payment is certain.
type instrument interface {
	reserve(o *domorder.Order, running int64) int64
	commit(ctx context.Context, orderID string) error
}

type promoInstrument struct {
	promo *domred.Promotion
}

func (p *promoInstrument) reserve(o *domorder.Order, running int64) int64 {
	discount := p.promo.DiscountOn(o.Subtotal)
	o.PromoCode = p.promo.Code
	o.Discount = discount
	return running - discount
}

// A promotion has no balance to debit; applying it is purely arithmetic.
func (p *promoInstrument) commit(ctx context.Context, orderID string) error { return nil }

type giftInstrument struct {
	card *domred.GiftCard
	repo domred.GiftCardRepository

	reserved int64
}

func (g *giftInstrument) reserve(o *domorder.Order, running int64) int64 {
	g.reserved = g.card.Reserve(running)
	o.GiftCardCode = g.card.Code
	o.GiftApplied = g.reserved
	return running - g.reserved
}

func (g *giftInstrument) commit(ctx context.Context, orderID string) error {
	if g.reserved <= 0 {
		return nil
	}
	if _, err := g.repo.Debit(ctx, g.card.Code, g.reserved); err != nil {
		return fmt.Errorf("gift card debit: %w", err)
	}
	return nil
}

type couponInstrument struct {
	coupon *domred.Coupon
	repo   domred.CouponRepository

	reserved int64
}

func (c *couponInstrument) reserve(o *domorder.Order, running int64) int64 {
	c.reserved = c.coupon.Reserve(running)
	o.CouponCode = c.coupon.Code
	o.CouponApplied = c.reserved
	return running - c.reserved
}

func (c *couponInstrument) commit(ctx context.Context, orderID string) error {
	if c.reserved <= 0 {
		return nil
	}
	ok, err := c.repo.MarkUsed(ctx, c.coupon.Code, orderID)
	if err != nil {
		return fmt.Errorf("coupon mark used: %w", err)
	}
	if !ok {
		return domred.ErrAlreadyUsed
	}
	return nil
}

// resolveInstruments checks eligibility of each requested code and returns
// the instruments in application order: promotion, then coupon, then gift
// card against whatever remains.
func (s *Service) resolveInstruments(ctx context.Context, in PlaceOrderInput) ([]instrument, error) {
	var out []instrument

	if in.PromoCode != "" {
		promo, err := s.promotions.FindActiveByCode(ctx, in.PromoCode)
		if err != nil {
			if errors.Is(err, domred.ErrNotFound) || errors.Is(err, domred.ErrInactive) {
				return nil, ErrInvalidPromotion
			}
			return nil, err
		}
		out = append(out, &promoInstrument{promo: promo})
	}

	if in.CouponCode != "" {
		coupon, err := s.coupons.FindByCode(ctx, in.CouponCode)
		if err != nil {
			return nil, err
		}
		if err := coupon.Redeemable(in.CustomerID, time.Now().UTC()); err != nil {
			return nil, err
		}
		out = append(out, &couponInstrument{coupon: coupon, repo: s.coupons})
	}

	if in.GiftCardCode != "" {
		card, err := s.giftCards.FindByCode(ctx, in.GiftCardCode)
		if err != nil {
			return nil, err
		}
		if !card.Active {
			return nil, domred.ErrInactive
		}
		out = append(out, &giftInstrument{card: card, repo: s.giftCards})
	}

	return out, nil
}
