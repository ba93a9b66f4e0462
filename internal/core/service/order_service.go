package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/metrics"
	"github.com/freshmart/ordering/internal/port"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrConcurrencyConflict = errors.New("order could not be processed due to concurrent demand")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadyCancelled    = errors.New("order is already cancelled")
)

// InsufficientItem reports one cart line that could not be reserved.
type InsufficientItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError lists every line that failed reservation, not
// just the first one encountered.
type InsufficientStockError struct {
	Items []InsufficientItem
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Items))
}

type OrderService struct {
	store port.Store
	cache port.CatalogCache
}

func NewOrderService(store port.Store, cache port.CatalogCache) *OrderService {
	return &OrderService{store: store, cache: cache}
}

// PlaceOrder converts the user's cart into a PENDING order. Stock
// reservation, order materialization and the cart clear share one
// serializable transaction: they commit together or not at all.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	cart, err := s.store.CartByUser(ctx, userID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var order *domain.Order
	err = s.store.WithinTx(ctx, func(tx port.Tx) error {
		// Lock every product in cart enumeration order and collect the
		// full insufficiency list before deciding anything.
		prices := make(map[string]decimal.Decimal, len(cart.Items))
		var insufficient []InsufficientItem

		for _, item := range cart.Items {
			product, err := tx.ProductForUpdate(ctx, item.ProductID)
			if errors.Is(err, port.ErrNotFound) {
				insufficient = append(insufficient, InsufficientItem{
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					Requested:   item.Quantity,
					Available:   0,
				})
				continue
			}
			if err != nil {
				return err
			}

			if product.Stock < item.Quantity {
				insufficient = append(insufficient, InsufficientItem{
					ProductID:   item.ProductID,
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   product.Stock,
				})
				continue
			}

			prices[item.ProductID] = product.Price
		}

		if len(insufficient) > 0 {
			return &InsufficientStockError{Items: insufficient}
		}

		now := time.Now()
		orderID := uuid.NewString()
		total := decimal.Zero
		items := make([]domain.OrderItem, 0, len(cart.Items))

		for _, item := range cart.Items {
			if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			price := prices[item.ProductID]
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			items = append(items, domain.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   orderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     price,
			})
		}

		o := domain.Order{
			ID:          orderID,
			UserID:      userID,
			Status:      domain.OrderStatusPending,
			TotalAmount: total,
			Items:       items,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return err
		}

		order = &o
		return nil
	})
	if err != nil {
		return nil, s.rejectPlacement(userID, err)
	}

	s.invalidateProducts(ctx, order.Items)
	metrics.OrdersPlaced.Inc()
	log.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("total", order.TotalAmount.String()).
		Msg("order placed")

	return order, nil
}

// rejectPlacement turns transaction outcomes into the rejection
// taxonomy. Unrecognized errors propagate wrapped but unclassified.
func (s *OrderService) rejectPlacement(userID string, err error) error {
	var insufficientErr *InsufficientStockError
	switch {
	case errors.As(err, &insufficientErr):
		metrics.InsufficientStockRejections.Inc()
		return insufficientErr
	case errors.Is(err, port.ErrConflict):
		metrics.ConflictRejections.Inc()
		log.Warn().Str("user_id", userID).Err(err).Msg("order aborted by transaction conflict")
		return ErrConcurrencyConflict
	default:
		return fmt.Errorf("place order: %w", err)
	}
}

// CancelOrder restores the order's recorded quantities and marks it
// CANCELLED. The order row is locked for the duration, so concurrent
// cancellations serialize and the restore happens exactly once.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusCancelled {
			return ErrAlreadyCancelled
		}

		items, err := tx.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.SetOrderStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
			return err
		}

		o.Status = domain.OrderStatusCancelled
		o.Items = items
		order = o
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyCancelled):
			return nil, ErrAlreadyCancelled
		case errors.Is(err, port.ErrNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, port.ErrConflict):
			metrics.ConflictRejections.Inc()
			return nil, ErrConcurrencyConflict
		default:
			return nil, fmt.Errorf("cancel order: %w", err)
		}
	}

	s.invalidateProducts(ctx, order.Items)
	metrics.OrdersCancelled.Inc()
	log.Info().Str("order_id", order.ID).Msg("order cancelled, stock restored")

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.Order(ctx, orderID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

// invalidateProducts is best effort: a stale catalog read is tolerable,
// a failed order is not.
func (s *OrderService) invalidateProducts(ctx context.Context, items []domain.OrderItem) {
	if s.cache == nil {
		return
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		log.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
