package api

import (
	"errors"
	"net/http"

	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/orders"
	"github.com/SanteonNL/storefront/cmd/storefront/validation"
	"github.com/SanteonNL/storefront/models/shop"
)

// currentUser is set by the auth middleware on every order route.
func currentUser(r *http.Request) shop.User {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return shop.User{}
	}
	return *user
}

func (sr *StorefrontRouter) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	in, err := validation.StoreOrder(r.Context(), r.Body, user.ID, sr.lookup)
	if err != nil {
		sr.respondInvalid(w, r, err, "")
		return
	}

	order, err := sr.orders.PlaceOrder(r.Context(), *in)

	var stockErr *orders.StockError
	switch {
	case errors.As(err, &stockErr):
		sr.countOrder("rejected")
		respondError(w, http.StatusBadRequest, stockErr.Error())
		return
	case err != nil:
		sr.countOrder("failed")
		sr.log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to place order")
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Failed to place order",
			Error:   err.Error(),
		})
		return
	}

	sr.countOrder("placed")
	sr.catalog.InvalidateProducts(r.Context())
	respondData(w, http.StatusCreated, "Order placed successfully", orders.NewResource(*order, user))
}

func (sr *StorefrontRouter) countOrder(result string) {
	if sr.metrics != nil {
		sr.metrics.OrderPlaced(result)
	}
}

func (sr *StorefrontRouter) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	params, err := validation.OrderIndex(r.URL.Query())
	if err != nil {
		sr.respondInvalid(w, r, err, "")
		return
	}

	page, err := sr.orders.ListOrders(r.Context(), user.ID, params.Filter, params.Page, params.PerPage)
	if err != nil {
		sr.log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list orders")
		respondError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	respondPage(w, orders.NewResources(page.Orders, user), page.Pagination)
}

func (sr *StorefrontRouter) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}

	order, err := sr.orders.GetOrder(r.Context(), user.ID, id)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
		return
	case errors.Is(err, orders.ErrForbidden):
		sr.log.Warn().Int64("user_id", user.ID).Int64("order_id", id).Msg("Denied access to order")
		respondError(w, http.StatusForbidden, "Unauthorized")
		return
	case err != nil:
		sr.log.Error().Err(err).Int64("order_id", id).Msg("Failed to get order")
		respondError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}
	respondData(w, http.StatusOK, "", orders.NewResource(*order, user))
}
