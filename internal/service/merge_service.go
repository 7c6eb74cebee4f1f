package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mvolkov/go_storefront/internal/cache"
	"github.com/mvolkov/go_storefront/internal/domain"
	"github.com/mvolkov/go_storefront/internal/repository"
)

// MergeService folds a guest cart into the user's persistent cart at login.
// The merge is total: individual stale lines are dropped, never surfaced as
// errors, so a forgotten guest cart cannot block sign-in.
type MergeService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
}

func NewMergeService(carts repository.CartRepository, products repository.ProductRepository, cache cache.CartCache) *MergeService {
	return &MergeService{
		carts:    carts,
		products: products,
		cache:    cache,
	}
}

// MergeGuestCart transfers the session's guest cart into the user cart and
// retires the guest cart entirely. A missing or empty guest cart leaves
// everything untouched, and re-invoking with an already-consumed session id
// is a no-op returning the user cart unchanged.
func (s *MergeService) MergeGuestCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	userOwner := domain.UserOwner(userID)

	userCart, err := s.carts.GetCart(ctx, userOwner)
	if errors.Is(err, repository.ErrCartNotFound) {
		userCart = domain.NewCart(userOwner)
	} else if err != nil {
		return nil, err
	}

	if sessionID == "" {
		return userCart, nil
	}

	guestOwner := domain.GuestOwner(sessionID)
	guestCart, err := s.carts.GetCart(ctx, guestOwner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return userCart, nil
	}
	if err != nil {
		return nil, err
	}

	// A guest cart with zero lines contributes nothing; leave it alone
	// rather than retiring it.
	if guestCart.IsEmpty() {
		return userCart, nil
	}

	for _, line := range guestCart.Items {
		product, err := s.products.GetProduct(ctx, line.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			// The product vanished while the guest was away. Drop the
			// line; the rest of the merge still applies.
			log.Printf("merge: skipping vanished product %s for session %s", line.ProductID, sessionID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if product.Stock == 0 {
			log.Printf("merge: skipping out-of-stock product %s for session %s", line.ProductID, sessionID)
			continue
		}

		if idx := userCart.FindItem(line.ProductID); idx >= 0 {
			merged := userCart.Items[idx].Quantity + line.Quantity
			if merged > product.Stock {
				merged = product.Stock
			}
			userCart.Items[idx].Quantity = merged
		} else {
			qty := line.Quantity
			if qty > product.Stock {
				qty = product.Stock
			}
			userCart.Items = append(userCart.Items, domain.CartItem{
				ProductID:     line.ProductID,
				Quantity:      qty,
				PriceSnapshot: line.PriceSnapshot,
				AddedAt:       line.AddedAt,
			})
		}
	}

	if err := s.carts.UpsertCart(ctx, userCart); err != nil {
		return nil, err
	}

	// Retire the guest identity, not just its lines.
	if err := s.carts.DeleteCart(ctx, guestOwner); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	s.invalidate(guestOwner)
	s.invalidate(userOwner)
	return userCart, nil
}

func (s *MergeService) invalidate(owner domain.CartOwner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
