package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mvolkov/go_storefront/internal/domain"
)

const orderPlacedTopic = "storefront-orders"

// OrderPlacedEvent is the wire shape consumed by downstream services
// (fulfilment, notifications). Amounts are decimal strings.
type OrderPlacedEvent struct {
	OrderID     string                 `json:"order_id"`
	UserID      string                 `json:"user_id"`
	TotalAmount string                 `json:"total_amount"`
	Items       []OrderPlacedEventItem `json:"items"`
	PlacedAt    time.Time              `json:"placed_at"`
}

type OrderPlacedEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// Publisher writes order events to Kafka. With no brokers configured it is
// disabled and every publish is a silent no-op, so a broker is optional in
// development.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokersCSV string) *Publisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &Publisher{}
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  orderPlacedTopic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	if !p.Enabled() {
		return nil
	}

	msg, err := buildOrderPlacedMessage(order)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write order event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func buildOrderPlacedMessage(order *domain.Order) (kafka.Message, error) {
	event := OrderPlacedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.String(),
		PlacedAt:    order.CreatedAt,
	}
	for _, it := range order.Items {
		event.Items = append(event.Items, OrderPlacedEventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.String(),
		})
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(order.ID),
		Value: value,
	}, nil
}
