package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/cache"
	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderResponse is the view of an order returned by every order
// operation. TotalPrice is always recomputed from the line items.
type OrderResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     int64              `json:"user_id"`
	Status     domain.OrderStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	TotalPrice float64            `json:"total_price"`
	Items      []domain.OrderItem `json:"items"`
}

type OrderService struct {
	tx     repository.TxRunner
	stores repository.Stores
	cache  cache.CartCache
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderService(tx repository.TxRunner, stores repository.Stores, cartCache cache.CartCache, log *zap.Logger) *OrderService {
	return &OrderService{
		tx:     tx,
		stores: stores,
		cache:  cartCache,
		log:    log,
		now:    time.Now,
	}
}

// PlaceOrder converts the user's cart into an order: it validates stock
// for every cart line, creates the order header and line items with
// price snapshots, decrements stock and clears the cart. All of it runs
// in one transaction; any failure leaves cart, stock and orders exactly
// as they were.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64) (*OrderResponse, error) {
	var response *OrderResponse

	err := s.tx.WithinTx(ctx, func(stores repository.Stores) error {
		cartItems, err := stores.Cart.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return ErrEmptyCart
		}

		if err := validateStock(ctx, stores, cartItems); err != nil {
			return err
		}

		order := &domain.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    domain.OrderStatusProcessing,
			CreatedAt: s.now().UTC(),
		}
		if err := stores.Orders.Insert(ctx, order); err != nil {
			return err
		}

		orderItems := make([]domain.OrderItem, 0, len(cartItems))
		for _, cartItem := range cartItems {
			// The decrement re-checks sufficiency: a concurrent
			// placement may have consumed stock after the
			// pre-validation read.
			product, err := stores.Products.DecrementStock(ctx, cartItem.ProductID, cartItem.Quantity)
			if err != nil {
				return err
			}

			orderItem := domain.OrderItem{
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    cartItem.Quantity,
				Price:       product.Price,
			}
			if err := stores.Orders.InsertItem(ctx, &orderItem); err != nil {
				return err
			}
			orderItems = append(orderItems, orderItem)

			if err := stores.Cart.Delete(ctx, cartItem.ID); err != nil {
				return err
			}
		}

		response = &OrderResponse{
			ID:         order.ID,
			UserID:     order.UserID,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
			TotalPrice: domain.TotalPrice(orderItems),
			Items:      orderItems,
		}

		return s.publishEvent(ctx, stores, EventOrderPlaced, response)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order_placed",
		zap.String("order_id", response.ID.String()),
		zap.Int64("user_id", userID),
		zap.Float64("total_price", response.TotalPrice),
		zap.Int("items", len(response.Items)),
	)
	s.invalidateCart(userID)
	return response, nil
}

// validateStock collects every violation instead of stopping at the
// first, so one response describes all cart problems.
func validateStock(ctx context.Context, stores repository.Stores, cartItems []*domain.CartItem) error {
	var messages []string
	for _, item := range cartItems {
		product, err := stores.Products.GetByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if item.Quantity > product.Quantity {
			messages = append(messages, fmt.Sprintf("Not enough product with id: %d", product.ID))
		}
	}
	if len(messages) > 0 {
		return &StockError{Messages: messages}
	}
	return nil
}

// Advance moves the order one step along PROCESSING -> SHIPPED ->
// DELIVERED. Orders already delivered cannot change.
func (s *OrderService) Advance(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.changeStatus(ctx, orderID, func(current domain.OrderStatus) (domain.OrderStatus, error) {
		if current.IsTerminal() {
			return "", ErrTerminalStatusChange
		}
		return current.Next(), nil
	})
}

// SetStatus overwrites the order status with an explicit, enum-validated
// value. It is an administrative override and does not enforce the
// linear transition order.
func (s *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, raw string) (*OrderResponse, error) {
	status, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, orderID, func(domain.OrderStatus) (domain.OrderStatus, error) {
		return status, nil
	})
}

func (s *OrderService) changeStatus(ctx context.Context, orderID uuid.UUID, next func(domain.OrderStatus) (domain.OrderStatus, error)) (*OrderResponse, error) {
	var response *OrderResponse

	err := s.tx.WithinTx(ctx, func(stores repository.Stores) error {
		order, err := stores.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		newStatus, err := next(order.Status)
		if err != nil {
			return err
		}

		if err := stores.Orders.UpdateStatus(ctx, orderID, newStatus); err != nil {
			return err
		}
		order.Status = newStatus

		items, err := stores.Orders.ListItems(ctx, orderID)
		if err != nil {
			return err
		}

		response = &OrderResponse{
			ID:         order.ID,
			UserID:     order.UserID,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
			TotalPrice: domain.TotalPrice(items),
			Items:      items,
		}

		return s.publishEvent(ctx, stores, EventOrderStatusChanged, response)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order_status_changed",
		zap.String("order_id", orderID.String()),
		zap.String("status", response.Status.String()),
	)
	return response, nil
}

// ListByUser returns the user's orders, newest first, with totals
// recomputed from the persisted line items.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*OrderResponse, error) {
	orders, err := s.stores.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*OrderResponse, 0, len(orders))
	for _, order := range orders {
		items, err := s.stores.Orders.ListItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, &OrderResponse{
			ID:         order.ID,
			UserID:     order.UserID,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
			TotalPrice: domain.TotalPrice(items),
			Items:      items,
		})
	}
	return responses, nil
}

func (s *OrderService) publishEvent(ctx context.Context, stores repository.Stores, eventType string, response *OrderResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return stores.Outbox.InsertEvent(ctx, eventType, response.ID.String(), payload)
}

func (s *OrderService) invalidateCart(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart_cache_invalidate_failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
