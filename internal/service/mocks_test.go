package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ElenaBezro/go-shop-api/internal/cache"
	"github.com/ElenaBezro/go-shop-api/internal/domain"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
)

// memStore is a map-backed implementation of every repository, shared
// between the cart and order service tests. A single mutex keeps the
// maps coherent across the embedded repository views.
type memStore struct {
	mu sync.Mutex

	products map[int64]*domain.Product
	cart     map[int64]*domain.CartItem
	orders   map[uuid.UUID]*domain.Order
	items    map[uuid.UUID][]domain.OrderItem
	events   []*repository.OutboxEvent

	nextCartID int64
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[int64]*domain.Product),
		cart:       make(map[int64]*domain.CartItem),
		orders:     make(map[uuid.UUID]*domain.Order),
		items:      make(map[uuid.UUID][]domain.OrderItem),
		nextCartID: 1,
	}
}

func (m *memStore) stores() repository.Stores {
	return repository.Stores{
		Products: (*memProductRepo)(m),
		Cart:     (*memCartRepo)(m),
		Orders:   (*memOrderRepo)(m),
		Outbox:   (*memOutboxRepo)(m),
	}
}

// snapshot deep-copies the mutable state so WithinTx can restore it,
// mimicking a database rollback.
func (m *memStore) snapshot() *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newMemStore()
	s.nextCartID = m.nextCartID
	for id, p := range m.products {
		cp := *p
		s.products[id] = &cp
	}
	for id, c := range m.cart {
		cp := *c
		s.cart[id] = &cp
	}
	for id, o := range m.orders {
		cp := *o
		s.orders[id] = &cp
	}
	for id, its := range m.items {
		s.items[id] = append([]domain.OrderItem(nil), its...)
	}
	s.events = append([]*repository.OutboxEvent(nil), m.events...)
	return s
}

func (m *memStore) restore(s *memStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = s.products
	m.cart = s.cart
	m.orders = s.orders
	m.items = s.items
	m.events = s.events
	m.nextCartID = s.nextCartID
}

func (m *memStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

func (m *memStore) addCartItem(c domain.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	if cp.ID == 0 {
		cp.ID = m.nextCartID
	}
	if cp.ID >= m.nextCartID {
		m.nextCartID = cp.ID + 1
	}
	m.cart[cp.ID] = &cp
}

// memTx runs fn against the shared store and restores the pre-call
// state when fn fails, the same all-or-nothing contract the real
// transaction runner provides.
type memTx struct {
	store *memStore
}

func (t *memTx) WithinTx(_ context.Context, fn func(s repository.Stores) error) error {
	before := t.store.snapshot()
	if err := fn(t.store.stores()); err != nil {
		t.store.restore(before)
		return err
	}
	return nil
}

type memProductRepo memStore

func (m *memProductRepo) Create(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) List(_ context.Context, _, _ int, _ string) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memProductRepo) Update(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *memProductRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memProductRepo) DecrementStock(_ context.Context, productID int64, amount float64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Quantity < amount {
		return nil, repository.ErrInsufficientStock
	}
	p.Quantity -= amount
	cp := *p
	return &cp, nil
}

type memCartRepo memStore

func (m *memCartRepo) ListByUser(_ context.Context, userID int64) ([]*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.CartItem{}
	for id := int64(1); id < m.nextCartID; id++ {
		if item, ok := m.cart[id]; ok && item.UserID == userID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCartRepo) GetByID(_ context.Context, id int64) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.cart[id]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memCartRepo) Insert(_ context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cart {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return repository.ErrDuplicateCartItem
		}
	}
	item.ID = m.nextCartID
	m.nextCartID++
	cp := *item
	m.cart[item.ID] = &cp
	return nil
}

func (m *memCartRepo) UpdateQuantity(_ context.Context, id int64, quantity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.cart[id]
	if !ok {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *memCartRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cart[id]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(m.cart, id)
	return nil
}

type memOrderRepo memStore

func (m *memOrderRepo) Insert(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memOrderRepo) InsertItem(_ context.Context, item *domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.OrderID] = append(m.items[item.OrderID], *item)
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, order := range m.orders {
		if order.UserID == userID {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) ListItems(_ context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderItem(nil), m.items[orderID]...), nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

type memOutboxRepo memStore

func (m *memOutboxRepo) InsertEvent(_ context.Context, eventType, aggregateID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, &repository.OutboxEvent{
		ID:          int64(len(m.events) + 1),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
	})
	return nil
}

func (m *memOutboxRepo) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.OutboxEvent
	for _, e := range m.events {
		if !e.Processed {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutboxRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Processed = true
		}
	}
	return nil
}

// noopCache satisfies cache.CartCache with a permanent miss; service
// tests that care about caching use a recording variant instead.
type noopCache struct{}

func (noopCache) Get(context.Context, int64) ([]*domain.CartItem, error) {
	return nil, cache.ErrCacheMiss
}
func (noopCache) Set(context.Context, int64, []*domain.CartItem) error { return nil }
func (noopCache) Delete(context.Context, int64) error                  { return nil }

type recordingCache struct {
	mu      sync.Mutex
	data    map[int64][]*domain.CartItem
	deletes []int64
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: make(map[int64][]*domain.CartItem)}
}

func (c *recordingCache) Get(_ context.Context, userID int64) ([]*domain.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.data[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return items, nil
}

func (c *recordingCache) Set(_ context.Context, userID int64, items []*domain.CartItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[userID] = items
	return nil
}

func (c *recordingCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	c.deletes = append(c.deletes, userID)
	return nil
}
