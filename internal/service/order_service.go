package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mvolkov/go_storefront/internal/cache"
	"github.com/mvolkov/go_storefront/internal/domain"
	"github.com/mvolkov/go_storefront/internal/repository"
)

// OrderPublisher emits an event after an order is placed. Publishing is
// fire-and-forget: checkout success never depends on it.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *domain.Order) error
}

type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	cache     cache.CartCache
	publisher OrderPublisher
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, carts repository.CartRepository, cache cache.CartCache, publisher OrderPublisher) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		carts:     carts,
		cache:     cache,
		publisher: publisher,
	}
}

// PlaceOrder converts the user's cart into a pending order, decrementing
// stock for every line. All-or-nothing: if any line cannot take its stock,
// every decrement already applied is returned before the error surfaces.
// The total is always recomputed server-side from the line snapshots.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string) (*domain.Order, error) {
	owner := domain.UserOwner(userID)

	cart, err := s.carts.GetCart(ctx, owner)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Take stock line by line via conditional decrements. Each decrement is
	// atomic on its product, so concurrent checkouts cannot overdraw a unit;
	// a failure part-way rolls back the lines already taken.
	taken := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.restoreStock(ctx, taken)
			return nil, s.mapDecrementError(ctx, line, err)
		}
		taken = append(taken, domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.PriceSnapshot,
		})
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Items:       taken,
		TotalAmount: cart.Subtotal(),
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.restoreStock(ctx, taken)
		return nil, err
	}

	cart.Items = []domain.CartItem{}
	if err := s.carts.UpsertCart(ctx, cart); err != nil {
		// Keep the placement all-or-nothing: undo the order and the
		// decrements rather than leave a charged but still-full cart.
		if delErr := s.orders.DeleteOrder(ctx, order.ID); delErr != nil {
			log.Printf("compensation failed, orphan order %s: %v", order.ID, delErr)
		}
		s.restoreStock(ctx, taken)
		return nil, err
	}

	s.invalidateCache(owner)

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Printf("failed to publish order %s: %v", order.ID, err)
		}
	}

	return order, nil
}

func (s *OrderService) mapDecrementError(ctx context.Context, line domain.CartItem, err error) error {
	if !errors.Is(err, repository.ErrStockConflict) && !errors.Is(err, repository.ErrProductNotFound) {
		return err
	}

	stockErr := &InsufficientStockError{
		ProductID: line.ProductID,
		Requested: line.Quantity,
	}
	// Best effort enrichment; the product may be gone entirely.
	if product, getErr := s.products.GetProduct(ctx, line.ProductID); getErr == nil {
		stockErr.ProductName = product.Name
		stockErr.Available = product.Stock
	}
	return stockErr
}

func (s *OrderService) restoreStock(ctx context.Context, taken []domain.OrderItem) {
	for _, it := range taken {
		if err := s.products.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			// A failed restore is an inventory leak, not a negative-stock
			// violation. Log loudly and move on.
			log.Printf("failed to restore %d units of %s: %v", it.Quantity, it.ProductID, err)
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus applies an administrator-driven status transition, guarded by
// the order state machine.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(order.Status, next) {
		return nil, ErrIllegalTransition
	}

	if err := s.orders.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, err
	}

	order.Status = next
	order.UpdatedAt = time.Now()
	return order, nil
}

func (s *OrderService) invalidateCache(owner domain.CartOwner) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, owner); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
