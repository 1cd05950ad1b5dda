package service

import (
	"errors"
	"strings"

	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

var (
	ErrEmptyCart            = errors.New("cannot create order with an empty cart")
	ErrOwnershipMismatch    = errors.New("resource does not belong to the requesting user")
	ErrTerminalStatusChange = errors.New("order has final status")

	// Re-exported so callers can match storage-level failures without
	// importing the repository package.
	ErrProductNotFound   = repository.ErrProductNotFound
	ErrCartItemNotFound  = repository.ErrCartItemNotFound
	ErrOrderNotFound     = repository.ErrOrderNotFound
	ErrDuplicateCartItem = repository.ErrDuplicateCartItem
	ErrInsufficientStock = repository.ErrInsufficientStock
)

// StockError reports every cart line whose requested quantity exceeded
// the available stock, one message per offending product, so the caller
// can fix the whole cart in a single round trip.
type StockError struct {
	Messages []string
}

func (e *StockError) Error() string {
	return strings.Join(e.Messages, "; ")
}
