package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

type productRepo struct {
	q querier
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	query := `INSERT INTO products (name, description, price, quantity, created_at)
	          VALUES ($1, $2, $3, $4, NOW())
	          RETURNING id, created_at`

	err := r.q.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, name, description, price, quantity, created_at
	          FROM products WHERE id = $1`

	var product domain.Product
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Quantity,
		&product.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return &product, nil
}

// List returns one page of the catalog and the total product count.
// sort accepts a fixed set of column names; anything else falls back
// to id so user input can never reach the query text.
func (r *productRepo) List(ctx context.Context, page, pageSize int, sort string) ([]*domain.Product, int, error) {
	orderBy := "id"
	switch sort {
	case "name", "price", "quantity":
		orderBy = sort
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, name, description, price, quantity, created_at
	          FROM products ORDER BY %s LIMIT $1 OFFSET $2`, orderBy)

	rows, err := r.q.QueryContext(ctx, query, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Quantity,
			&product.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}

	return products, total, nil
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	query := `UPDATE products SET name = $2, description = $3, price = $4, quantity = $5
	          WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock performs the subtraction and the sufficiency check in a
// single guarded UPDATE, so concurrent decrements can never drive the
// quantity negative even when a stale pre-validation passed.
func (r *productRepo) DecrementStock(ctx context.Context, productID int64, amount float64) (*domain.Product, error) {
	query := `UPDATE products SET quantity = quantity - $2
	          WHERE id = $1 AND quantity >= $2
	          RETURNING id, name, description, price, quantity, created_at`

	var product domain.Product
	err := r.q.QueryRowContext(ctx, query, productID, amount).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Quantity,
		&product.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing product from one with too little stock.
		if _, getErr := r.GetByID(ctx, productID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	return &product, nil
}
