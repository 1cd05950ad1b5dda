package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStatus = errors.New("invalid order status")

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Next returns the status that follows s in the linear
// PROCESSING -> SHIPPED -> DELIVERED lifecycle. The terminal
// status maps to itself.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderStatusProcessing:
		return OrderStatusShipped
	case OrderStatusShipped:
		return OrderStatusDelivered
	default:
		return s
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// ParseOrderStatus maps a case-insensitive string to a known status.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(raw)) {
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

type Order struct {
	ID        uuid.UUID   `json:"id"`
	UserID    int64       `json:"user_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderItem is an immutable snapshot of a cart item taken at placement
// time. Price and product name are copied from the product so later
// catalog changes do not affect placed orders.
type OrderItem struct {
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
}

// TotalPrice derives the order total from its line items. The total is
// never stored; it is recomputed so it stays consistent with the items.
func TotalPrice(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * item.Quantity
	}
	return total
}
