package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/port"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("item not in cart")
)

// CartService covers the uncontended cart operations. No row locks:
// the cart only becomes contended at checkout, which is PlaceOrder's
// job.
type CartService struct {
	store port.Store
}

func NewCartService(store port.Store) *CartService {
	return &CartService{store: store}
}

// GetCart returns the user's cart, or an empty view when none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.store.CartByUser(ctx, userID)
	if errors.Is(err, port.ErrNotFound) {
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the cart, creating the
// cart on first use and merging into an existing line for the same
// product.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	product, err := s.store.ProductByID(ctx, productID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	existing, err := s.store.CartItem(ctx, cart.ID, productID)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("load cart item: %w", err)
	}

	if existing != nil {
		existing.Quantity += quantity
		if err := s.store.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
		existing.ProductName = product.Name
		return existing, nil
	}

	item := domain.CartItem{
		ID:          uuid.NewString(),
		CartID:      cart.ID,
		ProductID:   productID,
		ProductName: product.Name,
		Quantity:    quantity,
	}
	if err := s.store.InsertCartItem(ctx, item); err != nil {
		return nil, fmt.Errorf("insert cart item: %w", err)
	}
	return &item, nil
}

// UpdateItem sets the quantity of an existing cart line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	item, err := s.findItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	if err := s.store.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	item, err := s.findItem(ctx, userID, productID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (s *CartService) findItem(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	cart, err := s.store.CartByUser(ctx, userID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	item, err := s.store.CartItem(ctx, cart.ID, productID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart item: %w", err)
	}
	return item, nil
}
