package returns

import "context"

type Repository interface {
	Insert(ctx context.Context, r *Return) error
	Get(ctx context.Context, id string) (*Return, error)
	Update(ctx context.Context, r *Return) error
	List(ctx context.Context) ([]*Return, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Return, error)

	// FindActiveForLine returns the non-terminal return blocking a new
	// request for the same order line, or ErrNotFound when the line is free.
	FindActiveForLine(ctx context.Context, orderID, productID, variantID string) (*Return, error)

	// NextNumber hands out sequential return numbers (DEV-0001, DEV-0002, ...).
	NextNumber(ctx context.Context) (string, error)
}
