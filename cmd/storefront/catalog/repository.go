package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

const (
	categoryColumns = "id, name, description, created_at, updated_at"
	productColumns  = "id, name, description, price, quantity, category_id, image_url, is_active, created_at, updated_at"
)

// Repository reads and writes categories and products.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListCategories returns every category with the number of products in it.
func (r *Repository) ListCategories(ctx context.Context) ([]shop.Category, error) {
	categories := []shop.Category{}
	err := r.db.SelectContext(ctx, &categories, `SELECT c.id, c.name, c.description, c.created_at, c.updated_at,
		COUNT(p.id) AS products_count
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category with all of its products.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*shop.Category, error) {
	var category shop.Category
	err := r.db.GetContext(ctx, &category, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}

	category.Products = []shop.Product{}
	err = r.db.SelectContext(ctx, &category.Products,
		`SELECT `+productColumns+` FROM products WHERE category_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load products of category %d: %w", id, err)
	}
	return &category, nil
}

// ExistingCategoryIDs reports which of ids exist.
func (r *Repository) ExistingCategoryIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return r.existingIDs(ctx, "categories", ids)
}

// ExistingProductIDs reports which of ids exist.
func (r *Repository) ExistingProductIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return r.existingIDs(ctx, "products", ids)
}

func (r *Repository) existingIDs(ctx context.Context, table string, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	stmt, args, err := sqlx.In("SELECT id FROM "+table+" WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var existing []int64
	if err := r.db.SelectContext(ctx, &existing, r.db.Rebind(stmt), args...); err != nil {
		return nil, fmt.Errorf("failed to check %s ids: %w", table, err)
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// ListProducts counts the rows matching q, then loads one page of them with
// their category.
func (r *Repository) ListProducts(ctx context.Context, q *query.Query, page, perPage int) ([]shop.Product, int, error) {
	stmt, args, err := q.Count()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(stmt), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	stmt, args, err = q.Page(page, perPage).Select(productColumns)
	if err != nil {
		return nil, 0, err
	}
	products := []shop.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(stmt), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	if err := r.loadCategories(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *Repository) loadCategories(ctx context.Context, products []shop.Product) error {
	if len(products) == 0 {
		return nil
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range products {
		if !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			ids = append(ids, p.CategoryID)
		}
	}

	stmt, args, err := sqlx.In("SELECT "+categoryColumns+" FROM categories WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	var categories []shop.Category
	if err := r.db.SelectContext(ctx, &categories, r.db.Rebind(stmt), args...); err != nil {
		return fmt.Errorf("failed to load product categories: %w", err)
	}

	byID := make(map[int64]*shop.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	for i := range products {
		products[i].Category = byID[products[i].CategoryID]
	}
	return nil
}

// GetProduct returns a product with its category, active or not.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*shop.Product, error) {
	var product shop.Product
	err := r.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}

	products := []shop.Product{product}
	if err := r.loadCategories(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ProductNameTaken reports whether another product than exceptID uses name.
func (r *Repository) ProductNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND id <> $2)`, name, exceptID)
	if err != nil {
		return false, fmt.Errorf("failed to check product name: %w", err)
	}
	return taken, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *shop.Product) error {
	err := r.db.GetContext(ctx, p, `INSERT INTO products (name, description, price, quantity, category_id, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.Quantity, p.CategoryID, p.ImageURL, p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// ProductPatch holds the fields of a partial product update. Nil fields are
// left untouched; the Clear flags set the nullable columns to NULL.
type ProductPatch struct {
	Name             *string
	Description      *string
	ClearDescription bool
	Price            *float64
	Quantity         *int
	CategoryID       *int64
	ImageURL         *string
	ClearImageURL    bool
	IsActive         *bool
}

func (p ProductPatch) assignments() ([]string, []any) {
	var (
		columns []string
		args    []any
	)
	set := func(column string, value any) {
		columns = append(columns, column+" = ?")
		args = append(args, value)
	}

	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.ClearDescription {
		set("description", nil)
	} else if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Price != nil {
		set("price", *p.Price)
	}
	if p.Quantity != nil {
		set("quantity", *p.Quantity)
	}
	if p.CategoryID != nil {
		set("category_id", *p.CategoryID)
	}
	if p.ClearImageURL {
		set("image_url", nil)
	} else if p.ImageURL != nil {
		set("image_url", *p.ImageURL)
	}
	if p.IsActive != nil {
		set("is_active", *p.IsActive)
	}
	return columns, args
}

// UpdateProduct applies patch and returns the stored product.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*shop.Product, error) {
	columns, args := patch.assignments()
	columns = append(columns, "updated_at = now()")
	args = append(args, id)

	stmt := "UPDATE products SET " + strings.Join(columns, ", ") + " WHERE id = ? RETURNING " + productColumns

	var product shop.Product
	err := r.db.GetContext(ctx, &product, r.db.Rebind(stmt), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return &product, nil
}
