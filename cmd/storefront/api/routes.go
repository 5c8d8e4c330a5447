package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/catalog"
	"github.com/SanteonNL/storefront/cmd/storefront/metrics"
	"github.com/SanteonNL/storefront/cmd/storefront/orders"
	"github.com/SanteonNL/storefront/cmd/storefront/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Dependencies are the services the router serves. Lookup answers the
// existence checks of validation and defaults to the catalog repository.
type Dependencies struct {
	Catalog *catalog.Service
	Orders  *orders.Service
	Auth    *auth.Service
	Lookup  validation.Lookup
	Metrics *metrics.Metrics
	Limiter *RateLimiter
	Ping    func(ctx context.Context) error
}

type StorefrontRouter struct {
	catalog *catalog.Service
	orders  *orders.Service
	auth    *auth.Service
	lookup  validation.Lookup
	metrics *metrics.Metrics
	limiter *RateLimiter
	ping    func(ctx context.Context) error
	log     zerolog.Logger
}

func NewStorefrontRouter(deps Dependencies, log zerolog.Logger) *StorefrontRouter {
	lookup := deps.Lookup
	if lookup == nil && deps.Catalog != nil {
		lookup = deps.Catalog.Repository()
	}

	return &StorefrontRouter{
		catalog: deps.Catalog,
		orders:  deps.Orders,
		auth:    deps.Auth,
		lookup:  lookup,
		metrics: deps.Metrics,
		limiter: deps.Limiter,
		ping:    deps.Ping,
		log:     log.With().Str("component", "api").Logger(),
	}
}

func (sr *StorefrontRouter) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLog(sr.log))
	r.Use(middleware.Recoverer)
	if sr.metrics != nil {
		r.Use(sr.metrics.InstrumentHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", sr.handleHealth)
	if sr.metrics != nil {
		r.Method(http.MethodGet, "/metrics", sr.metrics.Handler())
	}

	authenticate := auth.Middleware(sr.auth.Tokens(), sr.auth.Users(), sr.respondUnauthorized, sr.log)

	r.Route("/api", func(r chi.Router) {
		if sr.limiter != nil {
			r.Use(sr.limiter.Handler)
		}

		r.Get("/categories", sr.handleListCategories)
		r.Get("/categories/{id}", sr.handleGetCategory)
		r.Get("/products", sr.handleListProducts)
		r.Get("/products/{id}", sr.handleGetProduct)
		r.Post("/login", sr.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/products", sr.handleCreateProduct)
			r.Put("/products/{id}", sr.handleUpdateProduct)

			r.Get("/orders", sr.handleListOrders)
			r.Post("/orders", sr.handlePlaceOrder)
			r.Get("/orders/{id}", sr.handleGetOrder)

			r.Post("/logout", sr.handleLogout)
			r.Get("/user", sr.handleCurrentUser)
		})
	})

	return r
}

func (sr *StorefrontRouter) respondUnauthorized(w http.ResponseWriter, _ *http.Request, status int, message string) {
	respondError(w, status, message)
}

func (sr *StorefrontRouter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if sr.ping != nil {
		if err := sr.ping(r.Context()); err != nil {
			sr.log.Error().Err(err).Msg("Health check failed")
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// idParam reads the numeric {id} route parameter.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// respondInvalid answers a validation failure: a *validation.Errors gives
// 422, a malformed body 400 and anything else 500.
func (sr *StorefrontRouter) respondInvalid(w http.ResponseWriter, r *http.Request, err error, message string) {
	var errs *validation.Errors
	if errors.As(err, &errs) {
		respondValidation(w, errs, message)
		return
	}

	var bodyErr *validation.BodyError
	if errors.As(err, &bodyErr) {
		respondError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	sr.log.Error().Err(err).Str("path", r.URL.Path).Msg("Validation failed unexpectedly")
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
