package redemption

import "time"

// GiftCard is a prepaid balance consumable partially across many orders.
// The balance is debited only when a payment is confirmed, never at quote
// time, so an order that is never paid cannot drain a card.
type GiftCard struct {
	Code      string
	Balance   int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reserve computes how much of the running total this card would cover,
// without touching the balance.
func (g *GiftCard) Reserve(runningTotal int64) int64 {
	if g.Balance < runningTotal {
		return g.Balance
	}
	return runningTotal
}
