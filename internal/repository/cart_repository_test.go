package repository

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mvolkov/go_storefront/internal/domain"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	require.NoError(t, CreateIndexes(ctx, db))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func fakeCartItem() domain.CartItem {
	return domain.CartItem{
		ProductID:     gofakeit.UUID(),
		Quantity:      gofakeit.Number(1, 10),
		PriceSnapshot: decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2),
		AddedAt:       time.Now().Truncate(time.Millisecond),
	}
}

func TestGetCart_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCartRepository(db)

	cart, err := repo.GetCart(context.Background(), domain.GuestOwner("nonexistent"))
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestUpsertCart_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCartRepository(db)
	ctx := context.Background()

	owner := domain.GuestOwner(gofakeit.UUID())
	cart := domain.NewCart(owner)
	cart.Items = []domain.CartItem{fakeCartItem(), fakeCartItem()}

	require.NoError(t, repo.UpsertCart(ctx, cart))

	got, err := repo.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, got.Owner)
	require.Len(t, got.Items, 2)
	assert.Equal(t, cart.Items[0].ProductID, got.Items[0].ProductID)
	assert.Equal(t, cart.Items[0].Quantity, got.Items[0].Quantity)
	// Prices survive the round trip exactly; they are stored as strings.
	assert.True(t, got.Items[0].PriceSnapshot.Equal(cart.Items[0].PriceSnapshot))
}

func TestUpsertCart_ReplacesExisting(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCartRepository(db)
	ctx := context.Background()

	owner := domain.UserOwner(gofakeit.UUID())
	cart := domain.NewCart(owner)
	cart.Items = []domain.CartItem{fakeCartItem()}
	require.NoError(t, repo.UpsertCart(ctx, cart))

	cart.Items = []domain.CartItem{}
	require.NoError(t, repo.UpsertCart(ctx, cart))

	got, err := repo.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCartOwnerNamespacesAreDisjoint(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCartRepository(db)
	ctx := context.Background()

	// Same raw id under both kinds must address two different carts.
	id := gofakeit.UUID()
	guestCart := domain.NewCart(domain.GuestOwner(id))
	guestCart.Items = []domain.CartItem{fakeCartItem()}
	require.NoError(t, repo.UpsertCart(ctx, guestCart))

	userCart := domain.NewCart(domain.UserOwner(id))
	require.NoError(t, repo.UpsertCart(ctx, userCart))

	gotGuest, err := repo.GetCart(ctx, domain.GuestOwner(id))
	require.NoError(t, err)
	assert.Len(t, gotGuest.Items, 1)

	gotUser, err := repo.GetCart(ctx, domain.UserOwner(id))
	require.NoError(t, err)
	assert.Empty(t, gotUser.Items)
}

func TestCartTTLIndexOnlyCoversGuestCarts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cursor, err := db.Collection(cartsCollection).Indexes().List(ctx)
	require.NoError(t, err)

	type indexSpec struct {
		Name                    string `bson:"name"`
		ExpireAfterSeconds      *int32 `bson:"expireAfterSeconds"`
		PartialFilterExpression bson.M `bson:"partialFilterExpression"`
	}
	var indexes []indexSpec
	require.NoError(t, cursor.All(ctx, &indexes))

	var ttlIndex *indexSpec
	for i := range indexes {
		if indexes[i].ExpireAfterSeconds != nil {
			ttlIndex = &indexes[i]
		}
	}
	require.NotNil(t, ttlIndex, "expected a TTL index on the carts collection")

	// The TTL must be scoped to guest carts; a user cart is never
	// auto-destroyed no matter how long it sits idle.
	require.NotNil(t, ttlIndex.PartialFilterExpression, "TTL index must carry a partial filter expression")
	assert.Equal(t, string(domain.OwnerGuest), ttlIndex.PartialFilterExpression["owner_kind"])
}

func TestDeleteCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewCartRepository(db)
	ctx := context.Background()

	owner := domain.GuestOwner(gofakeit.UUID())
	cart := domain.NewCart(owner)
	require.NoError(t, repo.UpsertCart(ctx, cart))

	require.NoError(t, repo.DeleteCart(ctx, owner))

	_, err := repo.GetCart(ctx, owner)
	assert.ErrorIs(t, err, ErrCartNotFound)

	// Deleting again reports not found.
	assert.ErrorIs(t, repo.DeleteCart(ctx, owner), ErrCartNotFound)
}
