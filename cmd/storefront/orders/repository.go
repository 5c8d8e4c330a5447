package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/jmoiron/sqlx"
)

const orderColumns = "id, user_id, total_price, status, shipping_address, billing_address, notes, created_at, updated_at"

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// lockProduct reads a product row and holds its lock until the
// transaction ends.
func lockProduct(ctx context.Context, tx *sqlx.Tx, id int64) (*shop.Product, error) {
	var product shop.Product
	err := tx.GetContext(ctx, &product, `SELECT id, name, price, quantity, category_id, is_active
		FROM products WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}
	return &product, nil
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, o *shop.Order) error {
	err := tx.GetContext(ctx, o, `INSERT INTO orders (user_id, total_price, status, shipping_address, billing_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orderColumns,
		o.UserID, o.TotalPrice, o.Status, o.ShippingAddress, o.BillingAddress, o.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, tx *sqlx.Tx, item shop.OrderItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO order_details (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)`, item.OrderID, item.ProductID, item.Quantity, item.Price)
	if err != nil {
		return fmt.Errorf("failed to insert order item for product %d: %w", item.ProductID, err)
	}
	return nil
}

// decrementStock takes quantity units of a product. The guard keeps the
// stock from going negative even without the row lock.
func decrementStock(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `UPDATE products SET quantity = quantity - $1, updated_at = now()
		WHERE id = $2 AND quantity >= $1`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock of product %d: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("stock of product %d changed during the order", productID)
	}
	return nil
}

// ListOrders counts the orders matching q and loads one page with items.
func (r *Repository) ListOrders(ctx context.Context, q *query.Query, page, perPage int) ([]shop.Order, int, error) {
	stmt, args, err := q.Count()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(stmt), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	stmt, args, err = q.Page(page, perPage).Select(orderColumns)
	if err != nil {
		return nil, 0, err
	}
	orders := []shop.Order{}
	if err := r.db.SelectContext(ctx, &orders, r.db.Rebind(stmt), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// GetOrder returns an order with its items, whoever owns it.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*shop.Order, error) {
	var order shop.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	orders := []shop.Order{order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *Repository) loadItems(ctx context.Context, orders []shop.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	stmt, args, err := sqlx.In(`SELECT d.order_id, d.product_id, p.name AS product_name, d.quantity, d.price
		FROM order_details d
		JOIN products p ON p.id = d.product_id
		WHERE d.order_id IN (?)
		ORDER BY d.order_id, d.id`, ids)
	if err != nil {
		return err
	}
	var items []shop.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(stmt), args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[int64][]shop.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []shop.OrderItem{}
		}
	}
	return nil
}
