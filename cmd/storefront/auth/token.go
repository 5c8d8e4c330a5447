package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SanteonNL/storefront/cmd/storefront/cache"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

const revokedPrefix = "revoked:"

// Claims are the JWT claims of an API token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 tokens and tracks revoked token ids.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked cache.Store
	now     func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, revoked cache.Store) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a new token for user.
func (s *TokenService) Issue(user shop.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims, nil
}

// Parse validates token and rejects revoked ones.
func (s *TokenService) Parse(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if s.revoked != nil {
		var revoked bool
		ok, err := s.revoked.Get(ctx, revokedPrefix+claims.ID, &revoked)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if ok && revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke blocks the token of claims until it expires.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoked == nil {
		return errors.New("token revocation is not configured")
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Set(ctx, revokedPrefix+claims.ID, true, ttl)
}
