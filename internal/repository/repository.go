package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateCartItem = errors.New("cart item already exists for the given product and user")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already taken")
	ErrInsufficientStock = errors.New("insufficient product stock")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, page, pageSize int, sort string) ([]*domain.Product, int, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error

	// DecrementStock atomically subtracts amount from the product's
	// quantity. It fails with ErrInsufficientStock when amount exceeds
	// the current quantity, leaving the row untouched.
	DecrementStock(ctx context.Context, productID int64, amount float64) (*domain.Product, error)
}

type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	GetByID(ctx context.Context, id int64) (*domain.CartItem, error)
	Insert(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, id int64, quantity float64) error
	Delete(ctx context.Context, id int64) error
}

type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	InsertItem(ctx context.Context, item *domain.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

type UserRepository interface {
	Insert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type OutboxEvent struct {
	ID          int64
	EventType   string
	AggregateID string
	Payload     []byte
	Processed   bool
}

type OutboxRepository interface {
	InsertEvent(ctx context.Context, eventType, aggregateID string, payload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// Stores bundles the per-entity repositories bound to a single
// execution scope: either the shared pool or one open transaction.
type Stores struct {
	Products ProductRepository
	Cart     CartRepository
	Orders   OrderRepository
	Users    UserRepository
	Outbox   OutboxRepository
}

// TxRunner executes fn against transaction-bound Stores. The transaction
// commits when fn returns nil and rolls back otherwise, so partial
// completion is never observable.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(s Stores) error) error
}
