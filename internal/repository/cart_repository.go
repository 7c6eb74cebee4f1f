package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mvolkov/go_storefront/internal/domain"
)

// Prices are stored as decimal strings so they round-trip exactly;
// BSON doubles would reintroduce the float drift the domain avoids.
type cartItemDoc struct {
	ProductID     string    `bson:"product_id"`
	Quantity      int       `bson:"quantity"`
	PriceSnapshot string    `bson:"price_snapshot"`
	AddedAt       time.Time `bson:"added_at"`
}

type cartDoc struct {
	OwnerKind string        `bson:"owner_kind"`
	OwnerID   string        `bson:"owner_id"`
	Items     []cartItemDoc `bson:"items"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
	}
}

func ownerFilter(owner domain.CartOwner) bson.M {
	return bson.M{
		"owner_kind": string(owner.Kind),
		"owner_id":   owner.ID,
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("cart owner is empty")
	}

	var doc cartDoc
	err := m.collection.FindOne(ctx, ownerFilter(owner)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return mapCartDocToDomain(doc)
}

func (m *mongoCartRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	if cart.Owner.IsZero() {
		return fmt.Errorf("cart owner is empty")
	}

	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	doc := mapCartToDoc(cart)
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, ownerFilter(cart.Owner), update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, owner domain.CartOwner) error {
	result, err := m.collection.DeleteOne(ctx, ownerFilter(owner))
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func mapCartToDoc(cart *domain.Cart) cartDoc {
	items := make([]cartItemDoc, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, cartItemDoc{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot.String(),
			AddedAt:       it.AddedAt,
		})
	}
	return cartDoc{
		OwnerKind: string(cart.Owner.Kind),
		OwnerID:   cart.Owner.ID,
		Items:     items,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}

func mapCartDocToDomain(doc cartDoc) (*domain.Cart, error) {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		price, err := decimal.NewFromString(it.PriceSnapshot)
		if err != nil {
			return nil, fmt.Errorf("price_snapshot[%s] is not valid: %w", it.PriceSnapshot, err)
		}
		items = append(items, domain.CartItem{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			PriceSnapshot: price,
			AddedAt:       it.AddedAt,
		})
	}

	return &domain.Cart{
		Owner: domain.CartOwner{
			Kind: domain.OwnerKind(doc.OwnerKind),
			ID:   doc.OwnerID,
		},
		Items:     items,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
