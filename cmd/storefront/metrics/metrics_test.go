package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/api/products/1", "/api/products/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/products/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.OrderPlaced("placed")
	m.OrderPlaced("rejected")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.NotificationDelivered(nil)
	m.NotificationDelivered(errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("placed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("failed")))
}

func TestWatchCacheSize(t *testing.T) {
	m := New()

	entries := 3
	m.WatchCacheSize("products", func() int { return entries })
	m.WatchCacheSize("revoked_tokens", func() int { return 0 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `storefront_cache_entries{store="products"} 3`)
	assert.Contains(t, rec.Body.String(), `storefront_cache_entries{store="revoked_tokens"} 0`)

	entries = 5
	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `storefront_cache_entries{store="products"} 5`)
}
