package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrProductNotFound   = errors.New("product not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockError rejects an order line the stock cannot cover. Nothing of the
// order is stored when it is returned.
type StockError struct {
	Err       error
	ProductID int64
	Product   string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	if errors.Is(e.Err, ErrOutOfStock) {
		return fmt.Sprintf("Product %s is out of stock", e.Product)
	}
	return fmt.Sprintf("Insufficient stock for product %s. Available: %d", e.Product, e.Available)
}

func (e *StockError) Unwrap() error {
	return e.Err
}
