package auth

import (
	"context"
	"errors"

	"github.com/SanteonNL/storefront/models/shop"
	"github.com/rs/zerolog"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginResult struct {
	User  shop.User
	Token string
}

type Service struct {
	users  *Users
	tokens *TokenService
	log    zerolog.Logger
}

func NewService(users *Users, tokens *TokenService, log zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		log:    log.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) Users() *Users {
	return s.users
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.log.Warn().Str("email", email).Msg("Rejected login")
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", user.ID).Str("jti", claims.ID).Msg("Issued token")
	return &LoginResult{User: *user, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", claims.UserID).Str("jti", claims.ID).Msg("Revoked token")
	return nil
}
