package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/port"
)

// memStore is an in-memory port.Store. WithinTx holds one mutex for
// the whole callback, which models serializable isolation: concurrent
// transactions execute in some serial order. Mutations are staged and
// applied only when the callback succeeds, so aborted transactions
// leave no trace.
type memStore struct {
	mu         sync.Mutex
	products   map[string]*memProduct
	carts      map[string]*domain.Cart // keyed by user ID
	orders     map[string]*domain.Order
	orderItems map[string][]domain.OrderItem
	txErr      error // injected WithinTx failure
}

type memProduct struct {
	name    string
	price   decimal.Decimal
	stock   int
	deleted bool
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[string]*memProduct),
		carts:      make(map[string]*domain.Cart),
		orders:     make(map[string]*domain.Order),
		orderItems: make(map[string][]domain.OrderItem),
	}
}

func (m *memStore) addProduct(id, name, price string, stock int) {
	m.products[id] = &memProduct{name: name, price: decimal.RequireFromString(price), stock: stock}
}

func (m *memStore) softDelete(id string) {
	m.products[id].deleted = true
}

func (m *memStore) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].stock
}

// setCart replaces the user's cart with the given (productID, qty)
// lines, in order.
func (m *memStore) setCart(userID string, lines ...cartLine) string {
	cart := &domain.Cart{ID: uuid.NewString(), UserID: userID}
	for _, line := range lines {
		name := ""
		if p, ok := m.products[line.productID]; ok {
			name = p.name
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:          uuid.NewString(),
			CartID:      cart.ID,
			ProductID:   line.productID,
			ProductName: name,
			Quantity:    line.qty,
		})
	}
	m.carts[userID] = cart
	return cart.ID
}

type cartLine struct {
	productID string
	qty       int
}

func (m *memStore) CartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	return &cp, nil
}

func (m *memStore) GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if cart, err := m.CartByUser(ctx, userID); err == nil {
		return cart, nil
	}
	m.mu.Lock()
	m.carts[userID] = &domain.Cart{ID: uuid.NewString(), UserID: userID}
	m.mu.Unlock()
	return m.CartByUser(ctx, userID)
}

func (m *memStore) CartItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cart := range m.carts {
		if cart.ID != cartID {
			continue
		}
		for _, item := range cart.Items {
			if item.ProductID == productID {
				cp := item
				return &cp, nil
			}
		}
	}
	return nil, port.ErrNotFound
}

func (m *memStore) InsertCartItem(ctx context.Context, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cart := range m.carts {
		if cart.ID == item.CartID {
			cart.Items = append(cart.Items, item)
			return nil
		}
	}
	return port.ErrNotFound
}

func (m *memStore) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return port.ErrNotFound
}

func (m *memStore) DeleteCartItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return port.ErrNotFound
}

func (m *memStore) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok || p.deleted {
		return nil, port.ErrNotFound
	}
	return &domain.Product{ID: id, Name: p.name, Price: p.price, Stock: p.stock}, nil
}

func (m *memStore) Products(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []domain.Product
	for id, p := range m.products {
		if p.deleted {
			continue
		}
		all = append(all, domain.Product{ID: id, Name: p.name, Price: p.price, Stock: p.stock})
	}

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) Order(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), m.orderItems[id]...)
	return &cp, nil
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.txErr != nil {
		return m.txErr
	}

	tx := &memTx{
		store:      m,
		stockDelta: make(map[string]int),
		statusSet:  make(map[string]domain.OrderStatus),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

type memTx struct {
	store         *memStore
	stockDelta    map[string]int
	insertedOrder *domain.Order
	insertedItems []domain.OrderItem
	clearedCart   string
	statusSet     map[string]domain.OrderStatus
}

func (t *memTx) ProductForUpdate(ctx context.Context, productID string) (*domain.Product, error) {
	p, ok := t.store.products[productID]
	if !ok || p.deleted {
		return nil, port.ErrNotFound
	}
	return &domain.Product{
		ID:    productID,
		Name:  p.name,
		Price: p.price,
		Stock: p.stock + t.stockDelta[productID],
	}, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID string, quantity int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return port.ErrNotFound
	}
	if p.stock+t.stockDelta[productID] < quantity {
		return port.ErrConflict
	}
	t.stockDelta[productID] -= quantity
	return nil
}

func (t *memTx) RestoreStock(ctx context.Context, productID string, quantity int) error {
	if _, ok := t.store.products[productID]; !ok {
		return port.ErrNotFound
	}
	t.stockDelta[productID] += quantity
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, order domain.Order) error {
	cp := order
	t.insertedOrder = &cp
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []domain.OrderItem) error {
	t.insertedItems = append([]domain.OrderItem(nil), items...)
	return nil
}

func (t *memTx) ClearCart(ctx context.Context, cartID string) error {
	t.clearedCart = cartID
	return nil
}

func (t *memTx) OrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := t.store.orders[orderID]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), t.store.orderItems[orderID]...), nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if _, ok := t.store.orders[orderID]; !ok {
		return port.ErrNotFound
	}
	t.statusSet[orderID] = status
	return nil
}

func (t *memTx) apply() {
	for id, delta := range t.stockDelta {
		t.store.products[id].stock += delta
	}
	if t.insertedOrder != nil {
		o := *t.insertedOrder
		t.store.orders[o.ID] = &o
		t.store.orderItems[o.ID] = t.insertedItems
	}
	if t.clearedCart != "" {
		for _, cart := range t.store.carts {
			if cart.ID == t.clearedCart {
				cart.Items = nil
			}
		}
	}
	for id, status := range t.statusSet {
		t.store.orders[id].Status = status
	}
}
