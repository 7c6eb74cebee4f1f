package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog. The only field this core writes is Stock,
// and only through the order placement decrement.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductFilter narrows catalog listings. Search matches name or description
// case-insensitively.
type ProductFilter struct {
	Search   string
	Category string
}
