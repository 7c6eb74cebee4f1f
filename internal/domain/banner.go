package domain

import "time"

// Banner is a promotional message managed by administrators. At most one
// banner is shown to customers: the first active, unexpired one.
type Banner struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Link      string     `json:"link"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const DefaultBannerLink = "/products"
