package order

import "context"

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Order, error)

	// Delete removes an order that never completed checkout. Settled orders
	// are never deleted.
	Delete(ctx context.Context, id string) error

	// TransitionStatus atomically moves the order from one status to another
	// and reports whether the transition was applied. A false result with a
	// nil error means another writer got there first; the synchronous capture
	// path and the gateway callback race on exactly this operation.
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// RecordGatewayResultIf stores the gateway correlation fields only while
	// the order still holds ifStatus, under the same guard as
	// TransitionStatus. The status check and the write must be atomic: a
	// pending notification racing a settlement must never overwrite the
	// settled order with stale state.
	RecordGatewayResultIf(ctx context.Context, id, paymentID, gatewayStatus string, ifStatus Status) (bool, error)
}
