package domain

import "time"

// CartItem is one pending (user, product, quantity) selection.
// At most one item exists per (user, product) pair.
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}
