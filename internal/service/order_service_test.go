package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

func newOrderService(store *memStore) *OrderService {
	svc := NewOrderService(&memTx{store: store}, store.stores(), newRecordingCache(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestPlaceOrder_Success(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	store.addProduct(domain.Product{ID: 2, Name: "filter paper", Price: 2.5, Quantity: 3})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 5})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 2, Quantity: 2})

	svc := newOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.UserID)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	require.Len(t, order.Items, 2)

	// prices and names are snapshotted from the product rows
	assert.Equal(t, "coffee beans", order.Items[0].ProductName)
	assert.Equal(t, 7.0, order.Items[0].Price)
	assert.Equal(t, 7.0*5+2.5*2, order.TotalPrice)

	// stock decremented
	p1, err := store.stores().Products.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p1.Quantity)
	p2, err := store.stores().Products.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p2.Quantity)

	// cart emptied
	cart, err := store.stores().Cart.ListByUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, cart)

	// one outbox event for the placement
	events, err := store.stores().Outbox.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
}

func TestPlaceOrder_ConsumesEntireStock(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "flour", Price: 5.0, Quantity: 7.0})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 7.0})

	svc := newOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Equal(t, 35.0, order.TotalPrice)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 5.0, order.Items[0].Price)
	assert.Equal(t, 7.0, order.Items[0].Quantity)

	p, err := store.stores().Products.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Quantity)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_InsufficientStock_CollectsAllViolations(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 1})
	store.addProduct(domain.Product{ID: 2, Name: "filter paper", Price: 2.5, Quantity: 5})
	store.addProduct(domain.Product{ID: 3, Name: "mug", Price: 4.0, Quantity: 0})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 5})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 2, Quantity: 2})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 3, Quantity: 1})

	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 42)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []string{
		"Not enough product with id: 1",
		"Not enough product with id: 3",
	}, stockErr.Messages)

	// nothing changed: cart intact, stock untouched, no order, no event
	cart, _ := store.stores().Cart.ListByUser(context.Background(), 42)
	assert.Len(t, cart, 3)
	p1, _ := store.stores().Products.GetByID(context.Background(), 1)
	assert.Equal(t, 1.0, p1.Quantity)
	events, _ := store.stores().Outbox.GetUnprocessedEvents(context.Background(), 10)
	assert.Empty(t, events)
}

func TestPlaceOrder_ProductDeletedFromCatalog(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	// second line references a product that no longer exists
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 5})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 99, Quantity: 1})

	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrProductNotFound)

	cart, _ := store.stores().Cart.ListByUser(context.Background(), 42)
	assert.Len(t, cart, 2, "cart must survive a failed placement")
}

func TestPlaceOrder_RollsBackOnMidwayFailure(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	// two lines pass per-line validation against the same stock but
	// cannot both be fulfilled, so the second decrement fails after the
	// first already ran
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 5})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 6})

	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	p1, _ := store.stores().Products.GetByID(context.Background(), 1)
	assert.Equal(t, 10.0, p1.Quantity, "stock decrement must roll back")
	cart, _ := store.stores().Cart.ListByUser(context.Background(), 42)
	assert.Len(t, cart, 2, "cart must survive a failed placement")

	orders, _ := store.stores().Orders.ListByUser(context.Background(), 42)
	assert.Empty(t, orders, "no order row may survive the rollback")
}

func TestPlaceOrder_OnlyOwnCartIsOrdered(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 2})
	store.addCartItem(domain.CartItem{UserID: 7, ProductID: 1, Quantity: 3})

	svc := newOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	otherCart, _ := store.stores().Cart.ListByUser(context.Background(), 7)
	assert.Len(t, otherCart, 1)
}

func placeTestOrder(t *testing.T, store *memStore, svc *OrderService, userID int64) *OrderResponse {
	t.Helper()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	store.addCartItem(domain.CartItem{UserID: userID, ProductID: 1, Quantity: 2})
	order, err := svc.PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
	return order
}

func TestAdvance_FollowsLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)
	order := placeTestOrder(t, store, svc, 42)

	shipped, err := svc.Advance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)

	delivered, err := svc.Advance(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)

	_, err = svc.Advance(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrTerminalStatusChange)
}

func TestAdvance_PublishesStatusEvent(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)
	order := placeTestOrder(t, store, svc, 42)

	_, err := svc.Advance(context.Background(), order.ID)
	require.NoError(t, err)

	events, err := store.stores().Outbox.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderStatusChanged, events[1].EventType)
}

func TestSetStatus_OverridesWithoutOrderCheck(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)
	order := placeTestOrder(t, store, svc, 42)

	// jump straight to DELIVERED, case-insensitively
	updated, err := svc.SetStatus(context.Background(), order.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, updated.Status)

	// and back, the override does not honor the linear order
	updated, err = svc.SetStatus(context.Background(), order.ID, "PROCESSING")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)
}

func TestSetStatus_RejectsUnknownValue(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)
	order := placeTestOrder(t, store, svc, 42)

	_, err := svc.SetStatus(context.Background(), order.ID, "CANCELLED")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestChangeStatus_OrderNotFound(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)

	_, err := svc.Advance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListByUser_RecomputesTotals(t *testing.T) {
	store := newMemStore()
	svc := newOrderService(store)
	order := placeTestOrder(t, store, svc, 42)

	orders, err := svc.ListByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Equal(t, 14.0, orders[0].TotalPrice)

	none, err := svc.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPlaceOrder_InvalidatesCartCache(t *testing.T) {
	store := newMemStore()
	store.addProduct(domain.Product{ID: 1, Name: "coffee beans", Price: 7.0, Quantity: 10})
	store.addCartItem(domain.CartItem{UserID: 42, ProductID: 1, Quantity: 2})

	cartCache := newRecordingCache()
	svc := NewOrderService(&memTx{store: store}, store.stores(), cartCache, zap.NewNop())

	_, err := svc.PlaceOrder(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, cartCache.deletes)
}
