package domain

import "time"

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	// Quantity is the stock available for new cart additions and orders.
	// Fractional quantities are allowed (goods sold by weight).
	Quantity  float64   `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
