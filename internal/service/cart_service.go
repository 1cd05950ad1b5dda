package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ElenaBezro/go-shop-api/internal/cache"
	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

type CartService struct {
	stores repository.Stores
	cache  cache.CartCache
	log    *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCartService(stores repository.Stores, cartCache cache.CartCache, log *zap.Logger) *CartService {
	return &CartService{
		stores: stores,
		cache:  cartCache,
		log:    log,
	}
}

// List returns the user's cart items, never nil. Reads go through the
// cache; concurrent misses for the same user collapse into one query.
func (s *CartService) List(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	v, err, _ := s.sfg.Do(fmt.Sprint(userID), func() (interface{}, error) {
		items, err := s.cache.Get(ctx, userID)
		if err == nil {
			return items, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart_cache_get_failed", zap.Int64("user_id", userID), zap.Error(err))
		}

		items, err = s.stores.Cart.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, userID, items); errSet != nil {
				s.log.Warn("cart_cache_set_failed", zap.Int64("user_id", userID), zap.Error(errSet))
			}
		}()

		return items, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]*domain.CartItem), nil
}

// Add creates a cart line item for (userID, productID). The requested
// quantity must not exceed the product's current stock, and a second
// line item for the same product is rejected.
func (s *CartService) Add(ctx context.Context, userID, productID int64, quantity float64) (*domain.CartItem, error) {
	product, err := s.stores.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Quantity {
		return nil, ErrInsufficientStock
	}

	item := &domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.stores.Cart.Insert(ctx, item); err != nil {
		return nil, err
	}

	s.log.Info("cart_item_added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Float64("quantity", quantity),
	)
	s.invalidateCache(userID)
	return item, nil
}

// UpdateQuantity replaces the quantity of an existing cart item owned
// by userID, re-validating it against the product's current stock.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, cartItemID int64, quantity float64) (*domain.CartItem, error) {
	item, err := s.stores.Cart.GetByID(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrOwnershipMismatch
	}

	product, err := s.stores.Products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Quantity {
		return nil, ErrInsufficientStock
	}

	if err := s.stores.Cart.UpdateQuantity(ctx, cartItemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity

	s.log.Info("cart_item_updated",
		zap.Int64("user_id", userID),
		zap.Int64("cart_item_id", cartItemID),
		zap.Float64("quantity", quantity),
	)
	s.invalidateCache(userID)
	return item, nil
}

// Remove deletes the cart item. Removal is not idempotent: a second
// call for the same id fails with ErrCartItemNotFound.
func (s *CartService) Remove(ctx context.Context, userID, cartItemID int64) error {
	item, err := s.stores.Cart.GetByID(ctx, cartItemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrOwnershipMismatch
	}

	if err := s.stores.Cart.Delete(ctx, cartItemID); err != nil {
		return err
	}

	s.log.Info("cart_item_removed",
		zap.Int64("user_id", userID),
		zap.Int64("cart_item_id", cartItemID),
	)
	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart_cache_invalidate_failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
