package shop

import "time"

type Category struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   *string   `db:"description" json:"description,omitempty"`
	ProductsCount *int      `db:"products_count" json:"products_count,omitempty"`
	Products      []Product `db:"-" json:"products,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
