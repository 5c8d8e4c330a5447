package shop

import "time"

// Order statuses accepted by the API.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

var OrderStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

type Order struct {
	ID              int64       `db:"id" json:"id"`
	UserID          int64       `db:"user_id" json:"user_id"`
	TotalPrice      float64     `db:"total_price" json:"total_price"`
	Status          string      `db:"status" json:"status"`
	ShippingAddress *string     `db:"shipping_address" json:"shipping_address"`
	BillingAddress  *string     `db:"billing_address" json:"billing_address"`
	Notes           *string     `db:"notes" json:"notes"`
	Items           []OrderItem `db:"-" json:"-"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is a row of order_details: the unit price is frozen at purchase time.
type OrderItem struct {
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
