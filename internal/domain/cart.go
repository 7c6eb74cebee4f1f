package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerKind tells whether a cart belongs to an anonymous browser session
// or to a registered user.
type OwnerKind string

const (
	OwnerGuest OwnerKind = "guest"
	OwnerUser  OwnerKind = "user"
)

// CartOwner identifies exactly one cart. A guest owner carries the
// client-generated session id, a user owner carries the user id. The two
// namespaces never overlap in storage.
type CartOwner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func GuestOwner(sessionID string) CartOwner {
	return CartOwner{Kind: OwnerGuest, ID: sessionID}
}

func UserOwner(userID string) CartOwner {
	return CartOwner{Kind: OwnerUser, ID: userID}
}

// Key returns a stable identifier usable as a cache key.
func (o CartOwner) Key() string {
	return string(o.Kind) + ":" + o.ID
}

func (o CartOwner) IsZero() bool {
	return o.ID == ""
}

// CartItem is one line in a cart. PriceSnapshot is the catalog price at the
// time the line was created; it is deliberately not refreshed when the
// catalog price changes later.
type CartItem struct {
	ProductID     string          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
	AddedAt       time.Time       `json:"added_at"`
}

type Cart struct {
	Owner     CartOwner  `json:"owner"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart for the owner. Carts are created lazily:
// nothing is persisted until the first mutation.
func NewCart(owner CartOwner) *Cart {
	now := time.Now()
	return &Cart{
		Owner:     owner,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindItem returns the index of the line holding productID, or -1.
// A product appears in at most one line.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// RemoveItem drops the line at idx, preserving line order.
func (c *Cart) RemoveItem(idx int) {
	if idx < 0 || idx >= len(c.Items) {
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

// Subtotal sums price_snapshot * quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.PriceSnapshot.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
