package port

import (
	"context"
	"errors"

	"github.com/freshmart/ordering/internal/core/domain"
)

// Closed set of failure kinds the store is allowed to surface.
// Services match on these with errors.Is; any other error from the
// store is vendor-opaque and must be propagated unmodified.
var (
	// ErrConflict covers serialization failures, deadlocks and
	// lock-wait timeouts raised when concurrent transactions contend
	// for overlapping rows.
	ErrConflict = errors.New("transaction conflict")

	ErrNotFound = errors.New("record not found")
)

type Store interface {
	// CartByUser returns the user's cart with its items in insertion
	// order, or ErrNotFound when the user has no cart yet.
	CartByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// GetOrCreateCart returns the user's cart, creating an empty one
	// on first use.
	GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error)

	CartItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error)
	InsertCartItem(ctx context.Context, item domain.CartItem) error
	UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteCartItem(ctx context.Context, itemID string) error

	// ProductByID returns a live (not soft-deleted) product.
	ProductByID(ctx context.Context, id string) (*domain.Product, error)

	// Products returns one page of live products, newest first, plus
	// the total live-product count.
	Products(ctx context.Context, offset, limit int) ([]domain.Product, int, error)

	// Order returns an order with its items, or ErrNotFound.
	Order(ctx context.Context, id string) (*domain.Order, error)

	// WithinTx runs fn inside a single serializable transaction. The
	// Tx capability is valid only until fn returns. Any error from fn
	// aborts the transaction and is returned; commit/abort failures
	// are classified into the closed failure set where possible.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transaction-scoped capability handed to WithinTx callbacks.
// Every mutation performed through it commits or rolls back as a unit.
type Tx interface {
	// ProductForUpdate acquires an exclusive row lock on the product
	// and returns its current state. Blocks until a competing holder
	// commits or aborts. Missing and soft-deleted products both
	// return ErrNotFound.
	ProductForUpdate(ctx context.Context, productID string) (*domain.Product, error)

	DecrementStock(ctx context.Context, productID string, quantity int) error

	// RestoreStock increments stock unconditionally, including for
	// soft-deleted products.
	RestoreStock(ctx context.Context, productID string, quantity int) error

	InsertOrder(ctx context.Context, order domain.Order) error
	InsertOrderItems(ctx context.Context, items []domain.OrderItem) error
	ClearCart(ctx context.Context, cartID string) error

	// OrderForUpdate locks the order row so concurrent cancellations
	// serialize on it.
	OrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error)

	OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}
