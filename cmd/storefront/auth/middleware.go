package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/SanteonNL/storefront/models/shop"
	"github.com/rs/zerolog"
)

type contextKey int

const (
	userKey contextKey = iota
	claimsKey
)

// ErrorResponder writes the response for a rejected request.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware requires a valid "Authorization: Bearer <token>" header and
// puts the token's user and claims on the request context.
func Middleware(tokens *TokenService, users *Users, respond ErrorResponder, log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respond(w, r, http.StatusUnauthorized, "Unauthenticated.")
				return
			}

			claims, err := tokens.Parse(r.Context(), strings.TrimSpace(token))
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
				respond(w, r, http.StatusUnauthorized, "Unauthenticated.")
				return
			}

			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				log.Warn().Err(err).Int64("user_id", claims.UserID).Msg("Token user lookup failed")
				respond(w, r, http.StatusUnauthorized, "Unauthenticated.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, claims)))
		})
	}
}

func UserFromContext(ctx context.Context) (*shop.User, bool) {
	user, ok := ctx.Value(userKey).(*shop.User)
	return user, ok
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// WithUser returns ctx carrying user, as Middleware does.
func WithUser(ctx context.Context, user *shop.User, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, claimsKey, claims)
}
