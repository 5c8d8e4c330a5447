package validation

import (
	"context"
	"io"
	"strconv"

	"github.com/SanteonNL/storefront/cmd/storefront/orders"
)

type OrderLineRequest struct {
	ProductID *int64 `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"required,min=1"`
}

type StoreOrderRequest struct {
	Products        []OrderLineRequest `json:"products" validate:"required,min=1,dive"`
	ShippingAddress *string            `json:"shipping_address" validate:"omitempty,max=500"`
	BillingAddress  *string            `json:"billing_address" validate:"omitempty,max=500"`
	Notes           *string            `json:"notes" validate:"omitempty,max=1000"`
}

var storeOrderMessages = map[string]string{
	"products.required":              "Products are required.",
	"products.min":                   "At least one product is required.",
	"products.type":                  "Products must be an array.",
	"products.*.product_id.required": "Product ID is required.",
	"products.*.product_id.exists":   "The selected product does not exist.",
	"products.product_id.type":       "Each product ID must be a number.",
	"products.*.quantity.required":   "Quantity is required.",
	"products.*.quantity.min":        "Quantity must be at least 1.",
	"products.quantity.type":         "Quantity must be a whole number.",
	"shipping_address.max":           "Shipping address cannot exceed 500 characters.",
	"shipping_address.type":          "Shipping address must be a string.",
	"billing_address.max":            "Billing address cannot exceed 500 characters.",
	"billing_address.type":           "Billing address must be a string.",
	"notes.max":                      "Notes cannot exceed 1000 characters.",
	"notes.type":                     "Notes must be a string.",
}

// StoreOrder validates an order placement body for userID.
func StoreOrder(ctx context.Context, body io.Reader, userID int64, lookup Lookup) (*orders.PlaceOrderInput, error) {
	raw, err := readBody(body)
	if err != nil {
		return nil, err
	}

	errs := NewErrors()
	var req StoreOrderRequest
	ok, err := decodeJSON(raw, &req, errs, storeOrderMessages)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs
	}

	nilIfEmpty(&req.ShippingAddress, &req.BillingAddress, &req.Notes)
	if err := collect(errs, req, storeOrderMessages); err != nil {
		return nil, err
	}

	var ids []int64
	for _, line := range req.Products {
		if line.ProductID != nil {
			ids = append(ids, *line.ProductID)
		}
	}
	if len(ids) > 0 && lookup != nil {
		existing, err := lookup.ExistingProductIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, line := range req.Products {
			if line.ProductID != nil && !existing[*line.ProductID] {
				key := "products." + strconv.Itoa(i) + ".product_id"
				errs.Add(key, messageFor(storeOrderMessages, key, "exists"))
			}
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	in := &orders.PlaceOrderInput{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	}
	for _, line := range req.Products {
		in.Lines = append(in.Lines, orders.Line{ProductID: *line.ProductID, Quantity: *line.Quantity})
	}
	return in, nil
}
