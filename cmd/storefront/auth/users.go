package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SanteonNL/storefront/models/shop"
	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = "id, name, email, password_hash, created_at, updated_at"

type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*shop.User, error) {
	return u.find(ctx, "email", email)
}

func (u *Users) FindByID(ctx context.Context, id int64) (*shop.User, error) {
	return u.find(ctx, "id", id)
}

func (u *Users) find(ctx context.Context, column string, value any) (*shop.User, error) {
	var user shop.User
	err := u.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by %s: %w", column, err)
	}
	return &user, nil
}
