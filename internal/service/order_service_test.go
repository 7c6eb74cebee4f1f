package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/go_storefront/internal/domain"
)

func TestPlaceOrderHappyPath(t *testing.T) {
	carts := newMemCartRepo()
	products := newMemProductRepo(
		testProduct("p1", "Widget", "10.00", 5),
		testProduct("p2", "Gadget", "5.00", 5),
	)
	orders := newMemOrderRepo()
	publisher := &capturePublisher{}
	svc := NewOrderService(orders, products, carts, newMemCache(), publisher)

	seedCart(t, carts, domain.UserOwner("u-1"),
		domain.CartItem{ProductID: "p1", Quantity: 2, PriceSnapshot: decimal.RequireFromString("10.00")},
		domain.CartItem{ProductID: "p2", Quantity: 1, PriceSnapshot: decimal.RequireFromString("5.00")},
	)

	order, err := svc.PlaceOrder(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("25.00")),
		"got total %s", order.TotalAmount)
	require.Len(t, order.Items, 2)

	// Stock was taken and the cart emptied.
	assert.Equal(t, 3, products.stock("p1"))
	assert.Equal(t, 4, products.stock("p2"))
	stored := carts.stored(domain.UserOwner("u-1"))
	require.NotNil(t, stored)
	assert.True(t, stored.IsEmpty())

	require.Len(t, publisher.published, 1)
	assert.Equal(t, order.ID, publisher.published[0].ID)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	carts := newMemCartRepo()
	svc := NewOrderService(newMemOrderRepo(), newMemProductRepo(), carts, newMemCache(), nil)

	// No cart at all.
	_, err := svc.PlaceOrder(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrEmptyCart)

	// A cart with zero lines behaves the same.
	seedCart(t, carts, domain.UserOwner("u-1"))
	_, err = svc.PlaceOrder(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderRollsBackOnPartialFailure(t *testing.T) {
	carts := newMemCartRepo()
	products := newMemProductRepo(
		testProduct("p1", "Widget", "10.00", 5),
		testProduct("p2", "Gadget", "5.00", 1),
	)
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, products, carts, newMemCache(), nil)

	seedCart(t, carts, domain.UserOwner("u-1"),
		domain.CartItem{ProductID: "p1", Quantity: 3, PriceSnapshot: decimal.RequireFromString("10.00")},
		domain.CartItem{ProductID: "p2", Quantity: 2, PriceSnapshot: decimal.RequireFromString("5.00")},
	)

	_, err := svc.PlaceOrder(context.Background(), "u-1")
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	// The p1 decrement was compensated; nothing was recorded.
	assert.Equal(t, 5, products.stock("p1"))
	assert.Equal(t, 1, products.stock("p2"))
	assert.Equal(t, 0, orders.count())

	// The cart is untouched, the user can retry after adjusting.
	stored := carts.stored(domain.UserOwner("u-1"))
	require.NotNil(t, stored)
	assert.Len(t, stored.Items, 2)
}

func TestPlaceOrderRollsBackWhenOrderInsertFails(t *testing.T) {
	carts := newMemCartRepo()
	products := newMemProductRepo(testProduct("p1", "Widget", "10.00", 5))
	orders := newMemOrderRepo()
	orders.createErr = assert.AnError
	svc := NewOrderService(orders, products, carts, newMemCache(), nil)

	seedCart(t, carts, domain.UserOwner("u-1"),
		domain.CartItem{ProductID: "p1", Quantity: 2, PriceSnapshot: decimal.RequireFromString("10.00")})

	_, err := svc.PlaceOrder(context.Background(), "u-1")
	require.Error(t, err)
	assert.Equal(t, 5, products.stock("p1"))
}

func TestPlaceOrderRollsBackWhenCartClearFails(t *testing.T) {
	carts := newMemCartRepo()
	products := newMemProductRepo(testProduct("p1", "Widget", "10.00", 5))
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, products, carts, newMemCache(), nil)

	seedCart(t, carts, domain.UserOwner("u-1"),
		domain.CartItem{ProductID: "p1", Quantity: 2, PriceSnapshot: decimal.RequireFromString("10.00")})
	carts.upsertErr = assert.AnError

	_, err := svc.PlaceOrder(context.Background(), "u-1")
	require.Error(t, err)

	// The order was undone along with the stock it took.
	assert.Equal(t, 0, orders.count())
	assert.Equal(t, 5, products.stock("p1"))
}

func TestConcurrentCheckoutsTakeLastUnitOnce(t *testing.T) {
	carts := newMemCartRepo()
	products := newMemProductRepo(testProduct("p1", "Widget", "10.00", 1))
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, products, carts, newMemCache(), nil)

	seedCart(t, carts, domain.UserOwner("u-1"),
		domain.CartItem{ProductID: "p1", Quantity: 1, PriceSnapshot: decimal.RequireFromString("10.00")})
	seedCart(t, carts, domain.UserOwner("u-2"),
		domain.CartItem{ProductID: "p1", Quantity: 1, PriceSnapshot: decimal.RequireFromString("10.00")})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{"u-1", "u-2"} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), userID)
		}(i, userID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var stockErr *InsufficientStockError
			assert.ErrorAs(t, err, &stockErr)
		}
	}

	// Exactly one checkout wins the last unit; stock never goes negative.
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, products.stock("p1"))
	assert.Equal(t, 1, orders.count())
}

func TestUpdateStatusHonorsStateMachine(t *testing.T) {
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, newMemProductRepo(), newMemCartRepo(), newMemCache(), nil)

	seed := &domain.Order{ID: "o-1", UserID: "u-1", Status: domain.OrderStatusPending}
	require.NoError(t, orders.CreateOrder(context.Background(), seed))

	order, err := svc.UpdateStatus(context.Background(), "o-1", domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)

	// processing -> delivered skips shipped and is refused.
	_, err = svc.UpdateStatus(context.Background(), "o-1", domain.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	order, err = svc.UpdateStatus(context.Background(), "o-1", domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	// Terminal states accept nothing further.
	_, err = svc.UpdateStatus(context.Background(), "o-1", domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	svc := NewOrderService(newMemOrderRepo(), newMemProductRepo(), newMemCartRepo(), newMemCache(), nil)

	_, err := svc.UpdateStatus(context.Background(), "ghost", domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByUser(t *testing.T) {
	orders := newMemOrderRepo()
	svc := NewOrderService(orders, newMemProductRepo(), newMemCartRepo(), newMemCache(), nil)

	require.NoError(t, orders.CreateOrder(context.Background(), &domain.Order{ID: "o-1", UserID: "u-1"}))
	require.NoError(t, orders.CreateOrder(context.Background(), &domain.Order{ID: "o-2", UserID: "u-2"}))

	mine, err := svc.ListOrders(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "o-1", mine[0].ID)

	all, err := svc.ListAllOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
