package api

import (
	"errors"
	"net/http"

	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/validation"
	"github.com/SanteonNL/storefront/models/shop"
)

type userResource struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResource(u shop.User) userResource {
	return userResource{ID: u.ID, Name: u.Name, Email: u.Email}
}

type loginResponse struct {
	Message string       `json:"message"`
	User    userResource `json:"user"`
	Token   string       `json:"token"`
}

func (sr *StorefrontRouter) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.Login(r.Body)
	if err != nil {
		sr.respondInvalid(w, r, err, "")
		return
	}

	result, err := sr.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "The provided credentials are incorrect.")
		return
	}
	if err != nil {
		sr.log.Error().Err(err).Msg("Login failed")
		respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	respondData(w, http.StatusOK, "", loginResponse{
		Message: "Login successful",
		User:    newUserResource(result.User),
		Token:   result.Token,
	})
}

func (sr *StorefrontRouter) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	if err := sr.auth.Logout(r.Context(), claims); err != nil {
		sr.log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Logout failed")
		respondError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	respondData(w, http.StatusOK, "Logged out successfully", nil)
}

func (sr *StorefrontRouter) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, "", newUserResource(currentUser(r)))
}
