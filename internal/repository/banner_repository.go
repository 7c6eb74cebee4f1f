package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mvolkov/go_storefront/internal/domain"
)

type bannerDoc struct {
	ID        string     `bson:"_id"`
	Message   string     `bson:"message"`
	Link      string     `bson:"link"`
	IsActive  bool       `bson:"is_active"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type mongoBannerRepository struct {
	collection *mongo.Collection
}

func NewBannerRepository(db *mongo.Database) BannerRepository {
	return &mongoBannerRepository{
		collection: db.Collection(bannersCollection),
	}
}

func (m *mongoBannerRepository) CreateBanner(ctx context.Context, b *domain.Banner) error {
	now := time.Now()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Link == "" {
		b.Link = domain.DefaultBannerLink
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, mapBannerToDoc(b)); err != nil {
		return fmt.Errorf("failed to create banner: %w", err)
	}
	return nil
}

func (m *mongoBannerRepository) GetBanner(ctx context.Context, id string) (*domain.Banner, error) {
	var doc bannerDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to get banner: %w", err)
	}
	return mapBannerDocToDomain(doc), nil
}

func (m *mongoBannerRepository) ListBanners(ctx context.Context) ([]domain.Banner, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer cursor.Close(ctx)

	banners := make([]domain.Banner, 0)
	for cursor.Next(ctx) {
		var doc bannerDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode banner: %w", err)
		}
		banners = append(banners, *mapBannerDocToDomain(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("banner cursor error: %w", err)
	}
	return banners, nil
}

func (m *mongoBannerRepository) GetActiveBanner(ctx context.Context) (*domain.Banner, error) {
	// A banner without expires_at never expires.
	filter := bson.M{
		"is_active": true,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gte": time.Now()}},
		},
	}

	var doc bannerDoc
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to get active banner: %w", err)
	}
	return mapBannerDocToDomain(doc), nil
}

func (m *mongoBannerRepository) UpdateBanner(ctx context.Context, b *domain.Banner) error {
	b.UpdatedAt = time.Now()
	if b.Link == "" {
		b.Link = domain.DefaultBannerLink
	}

	update := bson.M{"$set": bson.M{
		"message":    b.Message,
		"link":       b.Link,
		"is_active":  b.IsActive,
		"expires_at": b.ExpiresAt,
		"updated_at": b.UpdatedAt,
	}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": b.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update banner: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrBannerNotFound
	}
	return nil
}

func (m *mongoBannerRepository) DeleteBanner(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete banner: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrBannerNotFound
	}
	return nil
}

func mapBannerToDoc(b *domain.Banner) bannerDoc {
	return bannerDoc{
		ID:        b.ID,
		Message:   b.Message,
		Link:      b.Link,
		IsActive:  b.IsActive,
		ExpiresAt: b.ExpiresAt,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func mapBannerDocToDomain(doc bannerDoc) *domain.Banner {
	return &domain.Banner{
		ID:        doc.ID,
		Message:   doc.Message,
		Link:      doc.Link,
		IsActive:  doc.IsActive,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
