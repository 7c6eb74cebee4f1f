package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/go_storefront/internal/domain"
)

func TestBuildOrderPlacedMessage(t *testing.T) {
	placedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:     "o-1",
		UserID: "u-1",
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Quantity: 1, Price: decimal.RequireFromString("5.00")},
		},
		TotalAmount: decimal.RequireFromString("25.00"),
		Status:      domain.OrderStatusPending,
		CreatedAt:   placedAt,
	}

	msg, err := buildOrderPlacedMessage(order)
	require.NoError(t, err)
	assert.Equal(t, []byte("o-1"), msg.Key)

	var event OrderPlacedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "o-1", event.OrderID)
	assert.Equal(t, "u-1", event.UserID)
	assert.Equal(t, "25", event.TotalAmount)
	assert.Equal(t, placedAt, event.PlacedAt)
	require.Len(t, event.Items, 2)
	assert.Equal(t, "p1", event.Items[0].ProductID)
	assert.Equal(t, 2, event.Items[0].Quantity)
	assert.Equal(t, "10", event.Items[0].Price)
}

func TestNewPublisherWithoutBrokersIsDisabled(t *testing.T) {
	p := NewPublisher("")
	assert.False(t, p.Enabled())

	// Publishing through a disabled publisher is a no-op, never an error.
	err := p.PublishOrderPlaced(context.Background(), &domain.Order{ID: "o-1"})
	assert.NoError(t, err)
	assert.NoError(t, p.Close())

	p = NewPublisher(" , ")
	assert.False(t, p.Enabled())
}

func TestNewPublisherParsesBrokerList(t *testing.T) {
	p := NewPublisher("kafka-1:9092, kafka-2:9092")
	assert.True(t, p.Enabled())
	require.NoError(t, p.Close())
}
