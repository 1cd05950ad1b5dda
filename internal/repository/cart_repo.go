package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

type cartRepo struct {
	q querier
}

func (r *cartRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.CartItem, error) {
	query := `SELECT id, user_id, product_id, quantity, added_at
	          FROM cart_items WHERE user_id = $1 ORDER BY added_at, id`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	// Never nil: an empty cart is a valid, empty list.
	items := make([]*domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *cartRepo) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	query := `SELECT id, user_id, product_id, quantity, added_at
	          FROM cart_items WHERE id = $1`

	var item domain.CartItem
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.AddedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item by id: %w", err)
	}
	return &item, nil
}

func (r *cartRepo) Insert(ctx context.Context, item *domain.CartItem) error {
	query := `INSERT INTO cart_items (user_id, product_id, quantity, added_at)
	          VALUES ($1, $2, $3, NOW())
	          RETURNING id, added_at`

	err := r.q.QueryRowContext(ctx, query,
		item.UserID,
		item.ProductID,
		item.Quantity,
	).Scan(&item.ID, &item.AddedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCartItem
		}
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, id int64, quantity float64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}
