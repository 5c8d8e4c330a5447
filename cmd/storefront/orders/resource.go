package orders

import (
	"time"

	"github.com/SanteonNL/storefront/models/shop"
)

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ItemResource struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

// Resource is the API representation of an order.
type Resource struct {
	ID              int64          `json:"id"`
	TotalPrice      float64        `json:"total_price"`
	Status          string         `json:"status"`
	ShippingAddress *string        `json:"shipping_address"`
	BillingAddress  *string        `json:"billing_address"`
	Notes           *string        `json:"notes"`
	User            UserSummary    `json:"user"`
	Products        []ItemResource `json:"products"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func NewResource(o shop.Order, owner shop.User) Resource {
	products := make([]ItemResource, 0, len(o.Items))
	for _, item := range o.Items {
		products = append(products, ItemResource{
			ID:       item.ProductID,
			Name:     item.ProductName,
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
	}

	return Resource{
		ID:              o.ID,
		TotalPrice:      o.TotalPrice,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Notes:           o.Notes,
		User:            UserSummary{ID: owner.ID, Name: owner.Name, Email: owner.Email},
		Products:        products,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func NewResources(orders []shop.Order, owner shop.User) []Resource {
	resources := make([]Resource, 0, len(orders))
	for _, o := range orders {
		resources = append(resources, NewResource(o, owner))
	}
	return resources
}
