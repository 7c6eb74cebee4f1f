package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/mvolkov/go_storefront/internal/cache"
	"github.com/mvolkov/go_storefront/internal/domain"
	"github.com/mvolkov/go_storefront/internal/repository"
)

// CartService is the cart engine: every mutation re-reads current stock at
// the point of decision, so a cart can never be persisted with a line the
// inventory could not satisfy at that moment.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, cache cache.CartCache) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		cache:    cache,
	}
}

// GetCart returns the owner's cart, or an empty one when none exists yet.
// Carts materialize lazily; a read never fails with not-found.
func (s *CartService) GetCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(owner.Key(), func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, owner)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.carts.GetCart(ctx, owner)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(owner), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), owner, cart)
			if errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem appends a line or folds the quantity into an existing one.
// A brand-new line is rejected when quantity exceeds stock; a duplicate add
// is clamped to stock instead, the same policy the login merge uses.
func (s *CartService) AddItem(ctx context.Context, owner domain.CartOwner, productID string, quantity int, priceHint *decimal.Decimal) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	cart, err := s.loadOrEmpty(ctx, owner)
	if err != nil {
		return nil, err
	}

	if idx := cart.FindItem(productID); idx >= 0 {
		newQty := cart.Items[idx].Quantity + quantity
		if newQty > product.Stock {
			newQty = product.Stock
		}
		cart.Items[idx].Quantity = newQty
	} else {
		snapshot := product.Price
		if priceHint != nil {
			snapshot = *priceHint
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID:     productID,
			Quantity:      quantity,
			PriceSnapshot: snapshot,
			AddedAt:       time.Now(),
		})
	}

	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity sets an existing line's quantity. Unlike AddItem and the
// login merge, an over-stock quantity here is rejected rather than clamped:
// this is a direct user action on a line they can see.
func (s *CartService) UpdateQuantity(ctx context.Context, owner domain.CartOwner, productID string, quantity int) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	if quantity < 1 {
		cart.RemoveItem(idx)
		if err := s.persist(ctx, owner, cart); err != nil {
			return nil, err
		}
		return cart, nil
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	cart.Items[idx].Quantity = quantity
	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops the line if present. Removing an absent line is not an
// error; the caller gets the cart as it stands.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.CartOwner, productID string) (*domain.Cart, error) {
	cart, err := s.loadOrEmpty(ctx, owner)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return cart, nil
	}

	cart.RemoveItem(idx)
	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearCart deletes all lines. The cart record itself survives; only a merge
// retires a guest cart's identity.
func (s *CartService) ClearCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	cart, err := s.loadOrEmpty(ctx, owner)
	if err != nil {
		return nil, err
	}

	cart.Items = []domain.CartItem{}
	if err := s.persist(ctx, owner, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) loadOrEmpty(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(owner), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) persist(ctx context.Context, owner domain.CartOwner, cart *domain.Cart) error {
	if err := s.carts.UpsertCart(ctx, cart); err != nil {
		log.Printf("cart upsert error: %v", err)
		return err
	}
	s.invalidateCache(owner)
	return nil
}

func (s *CartService) invalidateCache(owner domain.CartOwner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
