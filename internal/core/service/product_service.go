package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freshmart/ordering/internal/core/domain"
	"github.com/freshmart/ordering/internal/port"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type ProductPage struct {
	Products   []domain.Product
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

type ProductService struct {
	store port.Store
	cache port.CatalogCache
}

func NewProductService(store port.Store, cache port.CatalogCache) *ProductService {
	return &ProductService{store: store, cache: cache}
}

// List returns one catalog page, read through the cache when warm.
func (s *ProductService) List(ctx context.Context, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := (page - 1) * limit

	if s.cache != nil {
		products, total, err := s.cache.GetProductPage(ctx, offset, limit)
		if err != nil {
			log.Warn().Err(err).Msg("catalog page cache read failed")
		} else if products != nil {
			return newProductPage(products, total, page, limit), nil
		}
	}

	products, total, err := s.store.Products(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetProductPage(ctx, offset, limit, products, total); err != nil {
			log.Warn().Err(err).Msg("catalog page cache write failed")
		}
	}

	return newProductPage(products, total, page, limit), nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		product, err := s.cache.GetProduct(ctx, id)
		if err != nil {
			log.Warn().Err(err).Msg("product cache read failed")
		} else if product != nil {
			return product, nil
		}
	}

	product, err := s.store.ProductByID(ctx, id)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, *product); err != nil {
			log.Warn().Err(err).Msg("product cache write failed")
		}
	}

	return product, nil
}

func newProductPage(products []domain.Product, total, page, limit int) *ProductPage {
	totalPages := (total + limit - 1) / limit
	return &ProductPage{
		Products:   products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
