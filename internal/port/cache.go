package port

import (
	"context"

	"github.com/freshmart/ordering/internal/core/domain"
)

// CatalogCache is a read cache for the product catalog. MySQL stays
// the stock authority; the cache only serves reads and is invalidated
// whenever stock mutates.
type CatalogCache interface {
	// GetProduct returns the cached product, or nil on a miss.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	SetProduct(ctx context.Context, product domain.Product) error

	// GetProductPage returns a cached catalog page and total count,
	// or nil on a miss.
	GetProductPage(ctx context.Context, offset, limit int) ([]domain.Product, int, error)
	SetProductPage(ctx context.Context, offset, limit int, products []domain.Product, total int) error

	// Invalidate drops the given products and every cached page.
	Invalidate(ctx context.Context, productIDs ...string) error
}
