package datasource

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var catalogSeed []byte

type SeedData struct {
	Categories []SeedCategory `yaml:"categories"`
	Products   []SeedProduct  `yaml:"products"`
	Users      []SeedUser     `yaml:"users"`
}

type SeedCategory struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
}

type SeedProduct struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Price       float64 `yaml:"price"`
	Quantity    int     `yaml:"quantity"`
	Category    string  `yaml:"category"`
	ImageURL    *string `yaml:"image_url"`
	IsActive    *bool   `yaml:"is_active"`
}

type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// PasswordHasher turns a plain seed password into the stored hash.
type PasswordHasher func(password string) (string, error)

// Seed loads the embedded catalog and demo users.
func (ds *DataSource) Seed(ctx context.Context, hash PasswordHasher) error {
	return ds.SeedFrom(ctx, catalogSeed, hash)
}

// SeedFrom inserts the YAML seed document in one transaction. Existing
// categories, products and users (matched by name or email) are kept.
func (ds *DataSource) SeedFrom(ctx context.Context, data []byte, hash PasswordHasher) error {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	err := ds.WithTransaction(ctx, "seed", func(tx *sqlx.Tx) error {
		categoryIDs := make(map[string]int64, len(seed.Categories))
		for _, c := range seed.Categories {
			var id int64
			err := tx.GetContext(ctx, &id, `INSERT INTO categories (name, description) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET description = COALESCE(EXCLUDED.description, categories.description)
				RETURNING id`, c.Name, c.Description)
			if err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
			}
			categoryIDs[c.Name] = id
		}

		for _, p := range seed.Products {
			categoryID, ok := categoryIDs[p.Category]
			if !ok {
				return fmt.Errorf("product %s references unknown category %s", p.Name, p.Category)
			}
			active := true
			if p.IsActive != nil {
				active = *p.IsActive
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO products (name, description, price, quantity, category_id, image_url, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (name) DO NOTHING`,
				p.Name, p.Description, p.Price, p.Quantity, categoryID, p.ImageURL, active)
			if err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
			}
		}

		for _, u := range seed.Users {
			hashed, err := hash(u.Password)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3)
				ON CONFLICT (email) DO NOTHING`, u.Name, u.Email, hashed)
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	ds.log.Info().
		Int("categories", len(seed.Categories)).
		Int("products", len(seed.Products)).
		Int("users", len(seed.Users)).
		Msg("Seeded database")
	return nil
}
