package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/port"
)

// MySQL error numbers that signal a transaction-layer conflict.
const (
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// classify maps vendor error codes onto the closed failure set the
// services match on. Unrecognized errors pass through untouched.
func classify(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case erLockWaitTimeout, erLockDeadlock:
			return fmt.Errorf("%w: %v", port.ErrConflict, err)
		}
	}
	return err
}

func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *MySQLStore) CartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at FROM carts WHERE user_id = ?`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	// Soft-deleted products stay joined in so the reservation step can
	// still name them in its insufficiency report.
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, ci.quantity, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.created_at, ci.id`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.ProductName, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}

func (s *MySQLStore) GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.CartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at) VALUES (?, ?, NOW())`, id, userID)
	if err != nil {
		// A concurrent request may have created it first.
		if cart, lookupErr := s.CartByUser(ctx, userID); lookupErr == nil {
			return cart, nil
		}
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	return s.CartByUser(ctx, userID)
}

func (s *MySQLStore) CartItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	var item domain.CartItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cart_id, product_id, quantity, created_at
		FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID,
	).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return &item, nil
}

func (s *MySQLStore) InsertCartItem(ctx context.Context, item domain.CartItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
		VALUES (?, ?, ?, ?, NOW())`,
		item.ID, item.CartID, item.ProductID, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *MySQLStore) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ? WHERE id = ?`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (s *MySQLStore) DeleteCartItem(ctx context.Context, itemID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (s *MySQLStore) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, description, price, stock, created_at, updated_at
		FROM products WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (s *MySQLStore) Products(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, name, description, price, stock, created_at, updated_at
		FROM products WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	var total int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	return products, total, nil
}

func (s *MySQLStore) Order(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := orderItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func orderItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ?`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// mysqlTx implements port.Tx on top of one *sql.Tx. It is only valid
// for the lifetime of the WithinTx callback that received it.
type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) ProductForUpdate(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, category_id, name, description, price, stock
		FROM products
		WHERE id = ? AND deleted_at IS NULL
		FOR UPDATE`, productID,
	).Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %s: %w", productID, err)
	}
	return &p, nil
}

func (t *mysqlTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, updated_at = NOW()
		WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock %s: %w", productID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// The row is held under lock with stock already validated, so
		// this only fires if the caller skipped the lock step.
		return fmt.Errorf("decrement stock %s: no row updated", productID)
	}
	return nil
}

func (t *mysqlTx) RestoreStock(ctx context.Context, productID string, quantity int) error {
	// No deleted_at filter: cancellation restores stock even when the
	// product has been soft-deleted since the order was placed.
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, updated_at = NOW()
		WHERE id = ?`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("restore stock %s: %w", productID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("restore stock %s: %w", productID, port.ErrNotFound)
	}
	return nil
}

func (t *mysqlTx) InsertOrder(ctx context.Context, order domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Status, order.TotalAmount,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertOrderItems(ctx context.Context, items []domain.OrderItem) error {
	for _, item := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES (?, ?, ?, ?, ?)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *mysqlTx) ClearCart(ctx context.Context, cartID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (t *mysqlTx) OrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders WHERE id = ?
		FOR UPDATE`, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	return &o, nil
}

func (t *mysqlTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return orderItems(ctx, t.tx, orderID)
}

func (t *mysqlTx) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`,
		status, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("update order status: %w", port.ErrNotFound)
	}
	return nil
}
