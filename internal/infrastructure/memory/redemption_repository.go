package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/tiendalino/commerce-core/internal/domain/redemption"
)

type PromotionRepository struct {
	mu     sync.RWMutex
	byCode map[string]*domain.Promotion
}

func NewPromotionRepository() *PromotionRepository {
	return &PromotionRepository{byCode: make(map[string]*domain.Promotion)}
}

func (r *PromotionRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !p.Active {
		return nil, domain.ErrInactive
	}
	clone := *p
	return &clone, nil
}

func (r *PromotionRepository) Save(ctx context.Context, p *domain.Promotion) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *p
	clone.Code = strings.ToUpper(p.Code)
	r.byCode[clone.Code] = &clone
	return nil
}

type GiftCardRepository struct {
	mu    sync.RWMutex
	cards map[string]*domain.GiftCard
}

func NewGiftCardRepository() *GiftCardRepository {
	return &GiftCardRepository{cards: make(map[string]*domain.GiftCard)}
}

func (r *GiftCardRepository) FindByCode(ctx context.Context, code string) (*domain.GiftCard, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.cards[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *g
	return &clone, nil
}

func (r *GiftCardRepository) Save(ctx context.Context, g *domain.GiftCard) error {
	_ = ctx
	if g.Balance < 0 {
		return domain.ErrInvalidBalance
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *g
	clone.Code = strings.ToUpper(g.Code)
	clone.UpdatedAt = time.Now().UTC()
	r.cards[clone.Code] = &clone
	return nil
}

// Debit subtracts under the lock so two settlements cannot both drain the
// same balance. The card deactivates the moment it reaches zero.
func (r *GiftCardRepository) Debit(ctx context.Context, code string, amount int64) (int64, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.cards[strings.ToUpper(code)]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if !g.Active {
		return g.Balance, domain.ErrInactive
	}
	g.Balance -= amount
	if g.Balance <= 0 {
		g.Balance = 0
		g.Active = false
	}
	g.UpdatedAt = time.Now().UTC()
	return g.Balance, nil
}

type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*domain.Coupon)}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *CouponRepository) Insert(ctx context.Context, c *domain.Coupon) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *c
	clone.Code = strings.ToUpper(c.Code)
	r.coupons[clone.Code] = &clone
	return nil
}

// MarkUsed flips used exactly once; the second caller gets false.
func (r *CouponRepository) MarkUsed(ctx context.Context, code, orderID string) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.Used {
		return false, nil
	}
	c.Used = true
	c.UsedOnOrder = orderID
	return true, nil
}
