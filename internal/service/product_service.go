package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

// ProductPage is one page of the catalog listing.
type ProductPage struct {
	Products    []*domain.Product `json:"products"`
	CurrentPage int               `json:"current_page"`
	TotalItems  int               `json:"total_items"`
	TotalPages  int               `json:"total_pages"`
}

type ProductService struct {
	stores repository.Stores
	log    *zap.Logger
}

func NewProductService(stores repository.Stores, log *zap.Logger) *ProductService {
	return &ProductService{stores: stores, log: log}
}

func (s *ProductService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := s.stores.Products.Create(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info("product_created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.stores.Products.GetByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context, page, pageSize int, sort string) (*ProductPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := s.stores.Products.List(ctx, page, pageSize, sort)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = make([]*domain.Product, 0)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &ProductPage{
		Products:    products,
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  totalPages,
	}, nil
}

func (s *ProductService) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := s.stores.Products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info("product_updated", zap.Int64("product_id", product.ID))
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.stores.Products.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product_deleted", zap.Int64("product_id", id))
	return nil
}
