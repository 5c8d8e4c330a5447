package shop

import "time"

type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	Quantity    int       `db:"quantity" json:"quantity"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	Category    *Category `db:"-" json:"category,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// HasStock reports whether quantity units can be taken from stock.
func (p Product) HasStock(quantity int) bool {
	return p.Quantity >= quantity
}
