package repository

import (
	"context"
	"errors"

	"github.com/mvolkov/go_storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrBannerNotFound  = errors.New("banner not found")
	ErrDuplicateEmail  = errors.New("email already registered")

	// ErrStockConflict means a conditional stock decrement did not apply
	// because current stock was below the requested quantity.
	ErrStockConflict = errors.New("stock conflict")
)

// CartRepository persists whole carts keyed by owner. The service layer
// mutates the cart value and writes it back; the unique (owner kind, owner id)
// index guarantees at most one cart per owner.
type CartRepository interface {
	GetCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, owner domain.CartOwner) error
}

// ProductRepository is the inventory ledger plus catalog access.
// DecrementStock is the only write path that can reduce stock and it is
// conditional: it applies only while stock >= qty, so stock never goes
// negative regardless of interleaving.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	TouchLastActive(ctx context.Context, id string) error
}

type BannerRepository interface {
	CreateBanner(ctx context.Context, b *domain.Banner) error
	GetBanner(ctx context.Context, id string) (*domain.Banner, error)
	ListBanners(ctx context.Context) ([]domain.Banner, error)
	GetActiveBanner(ctx context.Context) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, b *domain.Banner) error
	DeleteBanner(ctx context.Context, id string) error
}
