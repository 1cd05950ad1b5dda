package cache

import (
	"context"
	"errors"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

// CartCache caches a user's full cart item list. Mutating workflows
// delete the key; readers repopulate it on the next miss.
type CartCache interface {
	Get(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	Set(ctx context.Context, userID int64, items []*domain.CartItem) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
