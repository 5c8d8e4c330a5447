package validation

import (
	"context"
	"encoding/json"
	"io"

	"github.com/SanteonNL/storefront/cmd/storefront/catalog"
	"github.com/SanteonNL/storefront/models/shop"
)

type StoreProductRequest struct {
	Name        *string  `json:"name" validate:"required,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Price       *float64 `json:"price" validate:"required,min=0,max=999999.99"`
	Quantity    *int     `json:"quantity" validate:"required,min=0,max=999999"`
	CategoryID  *int64   `json:"category_id" validate:"required"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url,max=500"`
	IsActive    *bool    `json:"is_active"`
}

// UpdateProductRequest only checks the fields that are present.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Price       *float64 `json:"price" validate:"omitempty,min=0,max=999999.99"`
	Quantity    *int     `json:"quantity" validate:"omitempty,min=0,max=999999"`
	CategoryID  *int64   `json:"category_id"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url,max=500"`
	IsActive    *bool    `json:"is_active"`
}

var productMessages = map[string]string{
	"name.required":        "Product name is required.",
	"name.max":             "Product name cannot exceed 255 characters.",
	"name.unique":          "A product with this name already exists.",
	"name.type":            "Product name must be a string.",
	"description.max":      "Description cannot exceed 1000 characters.",
	"description.type":     "Description must be a string.",
	"price.required":       "Price is required.",
	"price.type":           "Price must be a number.",
	"price.min":            "Price cannot be negative.",
	"price.max":            "Price cannot exceed 999,999.99.",
	"quantity.required":    "Quantity is required.",
	"quantity.type":        "Quantity must be a whole number.",
	"quantity.min":         "Quantity cannot be negative.",
	"quantity.max":         "Quantity cannot exceed 999,999.",
	"category_id.required": "Category is required.",
	"category_id.type":     "Category must be a number.",
	"category_id.exists":   "The selected category does not exist.",
	"image_url.url":        "Image URL must be a valid URL.",
	"image_url.max":        "Image URL cannot exceed 500 characters.",
	"image_url.type":       "Image URL must be a string.",
	"is_active.required":   "The is active field is required.",
	"is_active.type":       "The is active field must be true or false.",
}

// StoreProduct validates a product creation body.
func StoreProduct(ctx context.Context, body io.Reader, lookup Lookup) (*shop.Product, error) {
	raw, err := readBody(body)
	if err != nil {
		return nil, err
	}

	errs := NewErrors()
	var req StoreProductRequest
	ok, err := decodeJSON(raw, &req, errs, productMessages)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs
	}

	nilIfEmpty(&req.Name, &req.Description, &req.ImageURL)
	if err := collect(errs, req, productMessages); err != nil {
		return nil, err
	}
	if err := checkProductRefs(ctx, errs, lookup, req.Name, req.CategoryID, 0); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	product := &shop.Product{
		Name:        *req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
		CategoryID:  *req.CategoryID,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	return product, nil
}

// nonNullable are the update fields that may be omitted but not set to null
// or "".
var nonNullable = []string{"name", "price", "quantity", "category_id", "is_active"}

// UpdateProduct validates a partial product update of product id.
func UpdateProduct(ctx context.Context, body io.Reader, id int64, lookup Lookup) (*catalog.ProductPatch, error) {
	raw, err := readBody(body)
	if err != nil {
		return nil, err
	}

	errs := NewErrors()
	var present map[string]json.RawMessage
	ok, err := decodeJSON(raw, &present, errs, productMessages)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs
	}
	for _, field := range nonNullable {
		if value, ok := present[field]; ok && blank(value) {
			errs.Add(field, productMessages[field+".required"])
			delete(present, field)
		}
	}
	if raw, err = json.Marshal(present); err != nil {
		return nil, err
	}

	var req UpdateProductRequest
	if ok, err := decodeJSON(raw, &req, errs, productMessages); err != nil || !ok {
		if err != nil {
			return nil, err
		}
		return nil, errs
	}

	nilIfEmpty(&req.Name, &req.Description, &req.ImageURL)
	if err := collect(errs, req, productMessages); err != nil {
		return nil, err
	}
	if err := checkProductRefs(ctx, errs, lookup, req.Name, req.CategoryID, id); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	patch := &catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	}
	if value, ok := present["description"]; ok && blank(value) {
		patch.ClearDescription = true
	}
	if value, ok := present["image_url"]; ok && blank(value) {
		patch.ClearImageURL = true
	}
	return patch, nil
}

func checkProductRefs(ctx context.Context, errs *Errors, lookup Lookup, name *string, categoryID *int64, exceptID int64) error {
	if lookup == nil {
		return nil
	}

	if name != nil && !errs.Has("name") {
		taken, err := lookup.ProductNameTaken(ctx, *name, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("name", productMessages["name.unique"])
		}
	}

	if categoryID != nil && !errs.Has("category_id") {
		existing, err := lookup.ExistingCategoryIDs(ctx, []int64{*categoryID})
		if err != nil {
			return err
		}
		if !existing[*categoryID] {
			errs.Add("category_id", productMessages["category_id.exists"])
		}
	}
	return nil
}
