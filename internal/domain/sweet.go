package domain

import "time"

// Categories is the fixed set of sweet categories the shop sells.
var Categories = []string{"Traditional", "Bengali", "Premium", "South Indian"}

// Sweet mirrors one catalog item as the Catalog Service serves it.
// The engine only ever reads it; quantity moves downward after a
// confirmed purchase and is overwritten wholesale on refresh.
type Sweet struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	Quantity    int        `json:"quantity"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// InStock reports whether at least one unit can be added to a cart.
func (s Sweet) InStock() bool {
	return s.Quantity > 0
}
