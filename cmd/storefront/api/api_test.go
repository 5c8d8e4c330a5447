package api

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SanteonNL/storefront/cmd/storefront/auth"
	"github.com/SanteonNL/storefront/cmd/storefront/cache"
	"github.com/SanteonNL/storefront/cmd/storefront/catalog"
	"github.com/SanteonNL/storefront/cmd/storefront/datasource"
	"github.com/SanteonNL/storefront/cmd/storefront/metrics"
	"github.com/SanteonNL/storefront/cmd/storefront/orders"
	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userRowColumns     = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}
	productRowColumns  = []string{"id", "name", "description", "price", "quantity", "category_id", "image_url", "is_active", "created_at", "updated_at"}
	categoryRowColumns = []string{"id", "name", "description", "created_at", "updated_at"}
	lockColumns        = []string{"id", "name", "price", "quantity", "category_id", "is_active"}
	orderRowColumns    = []string{"id", "user_id", "total_price", "status", "shipping_address", "billing_address", "notes", "created_at", "updated_at"}
	itemColumns        = []string{"order_id", "product_id", "product_name", "quantity", "price"}
	stamp              = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	testUser           = shop.User{ID: 7, Name: "Test User", Email: "test@example.com"}
)

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Errors     map[string][]string `json:"errors"`
	Error      string              `json:"error"`
	Pagination *query.Pagination   `json:"pagination"`
}

type testServer struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	tokens  *auth.TokenService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	store := cache.NewMemory(cache.Config{DefaultTTL: time.Hour}, zerolog.Nop())
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	tokens := auth.NewTokenService("test-secret", time.Hour, store)
	router := NewStorefrontRouter(Dependencies{
		Catalog: catalog.NewService(catalog.NewRepository(db), zerolog.Nop()),
		Orders:  orders.NewService(datasource.New(db, zerolog.Nop()), nil, zerolog.Nop()),
		Auth:    auth.NewService(auth.NewUsers(db), tokens, zerolog.Nop()),
		Metrics: m,
		Limiter: limiter,
		Ping:    func(context.Context) error { return nil },
	}, zerolog.Nop())

	return &testServer{handler: router.SetupRoutes(), mock: mock, tokens: tokens, metrics: m}
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(testUser)
	require.NoError(t, err)
	return token
}

// expectAuthUser answers the user lookup of the auth middleware.
func (ts *testServer) expectAuthUser() {
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(testUser.ID).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(testUser.ID, testUser.Name, testUser.Email, "x", stamp, stamp))
}

func (ts *testServer) do(t *testing.T, method, target, token string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestListProductsRejectsScalarCategoryID(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/products?category_id=1", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Category ID must be an array.", env.Message)
	assert.Equal(t, []string{"Category ID must be an array."}, env.Errors["category_id"])
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestListProductsByCategoryList(t *testing.T) {
	for name, target := range map[string]string{
		"appended": "/api/products?category_id%5B%5D=1",
		"indexed":  "/api/products?category_id%5B0%5D=1",
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			ts.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id IN ($1)")).
				WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			where := "FROM products WHERE is_active = $1 AND category_id IN ($2)"
			ts.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) "+where)).
				WithArgs(true, int64(1)).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			ts.mock.ExpectQuery(regexp.QuoteMeta(where+" ORDER BY id ASC LIMIT $3 OFFSET $4")).
				WithArgs(true, int64(1), 15, 0).
				WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(1, "Smartphone", nil, 699.99, 50, 1, nil, true, stamp, stamp))
			ts.mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id IN ($1)")).
				WithArgs(int64(1)).
				WillReturnRows(sqlmock.NewRows(categoryRowColumns).AddRow(1, "Electronics", nil, stamp, stamp))

			rec, env := ts.do(t, http.MethodGet, target, "", "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, env.Success)

			var products []shop.Product
			require.NoError(t, json.Unmarshal(env.Data, &products))
			require.Len(t, products, 1)
			assert.Equal(t, "Electronics", products[0].Category.Name)
			require.NotNil(t, env.Pagination)
			assert.Equal(t, 1, env.Pagination.Total)
			assert.NoError(t, ts.mock.ExpectationsWereMet())
		})
	}
}

func TestListProductsValidationSummary(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/products?min_price=abc&per_page=500", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Minimum price must be a number. (and 1 more error)", env.Message)
	assert.Equal(t, []string{"Per page cannot exceed 100."}, env.Errors["per_page"])
}

func TestGetProductNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	rec, env := ts.do(t, http.MethodGet, "/api/products/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestGetCategoryNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/categories/abc", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category not found", env.Message)
}

func TestOrderRoutesRequireAuthentication(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated.", env.Message)

	rec, _ = ts.do(t, http.MethodPost, "/api/orders", "not-a-token", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func (ts *testServer) expectProductsExist(ids ...int64) {
	rows := sqlmock.NewRows([]string{"id"})
	args := make([]driver.Value, len(ids))
	for i, id := range ids {
		rows.AddRow(id)
		args[i] = id
	}
	ts.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE id IN (")).
		WithArgs(args...).
		WillReturnRows(rows)
}

func (ts *testServer) expectLock(id int64, name string, price float64, quantity int) {
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(lockColumns).AddRow(id, name, price, quantity, 1, true))
}

func TestPlaceOrder(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.expectProductsExist(1)
	ts.mock.ExpectBegin()
	ts.expectLock(1, "Keyboard", 10.5, 5)
	ts.mock.ExpectQuery("INSERT INTO orders").
		WithArgs(testUser.ID, 21.0, "pending", "Main Street 1", nil, nil).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(100, 7, 21.0, "pending", "Main Street 1", nil, nil, stamp, stamp))
	ts.mock.ExpectExec("INSERT INTO order_details").WithArgs(int64(100), int64(1), 2, 10.5).WillReturnResult(sqlmock.NewResult(1, 1))
	ts.mock.ExpectExec("UPDATE products SET quantity = quantity - \\$1").WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectCommit()

	body := `{"products":[{"product_id":1,"quantity":2}],"shipping_address":"Main Street 1"}`
	rec, env := ts.do(t, http.MethodPost, "/api/orders", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order placed successfully", env.Message)

	var res orders.Resource
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, int64(100), res.ID)
	assert.Equal(t, 21.0, res.TotalPrice)
	assert.Equal(t, "Test User", res.User.Name)
	require.Len(t, res.Products, 1)
	assert.Equal(t, 21.0, res.Products[0].Subtotal)
	assert.NoError(t, ts.mock.ExpectationsWereMet())

	metricsRec, _ := ts.do(t, http.MethodGet, "/metrics", "", "")
	assert.Contains(t, metricsRec.Body.String(), `storefront_orders_placed_total{result="placed"} 1`)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.expectProductsExist(2)
	ts.mock.ExpectBegin()
	ts.expectLock(2, "Mouse", 3, 1)
	ts.mock.ExpectRollback()

	rec, env := ts.do(t, http.MethodPost, "/api/orders", token, `{"products":[{"product_id":2,"quantity":3}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Insufficient stock for product Mouse. Available: 1", env.Message)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestPlaceOrderUnexpectedFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.expectProductsExist(1)
	ts.mock.ExpectBegin()
	ts.expectLock(1, "Keyboard", 10.5, 5)
	ts.mock.ExpectQuery("INSERT INTO orders").WillReturnError(errors.New("connection reset"))
	ts.mock.ExpectRollback()

	rec, env := ts.do(t, http.MethodPost, "/api/orders", token, `{"products":[{"product_id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to place order", env.Message)
	assert.Contains(t, env.Error, "connection reset")
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestPlaceOrderValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	rec, env := ts.do(t, http.MethodPost, "/api/orders", token, `{"products":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "products")

	ts.expectAuthUser()
	rec, _ = ts.do(t, http.MethodPost, "/api/orders", token, `{"products":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestListOrders(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders WHERE user_id = $1")).
		WithArgs(testUser.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE user_id = $1 ORDER BY total_price ASC LIMIT $2 OFFSET $3")).
		WithArgs(testUser.ID, 5, 0).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(5, 7, 42.0, "shipped", nil, nil, nil, stamp, stamp))
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM order_details d")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(5, 1, "Keyboard", 2, 21.0))

	rec, env := ts.do(t, http.MethodGet, "/api/orders?sort_by=total_price&sort_direction=asc&per_page=5", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res []orders.Resource
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res, 1)
	assert.Equal(t, "Keyboard", res[0].Products[0].Name)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.PerPage)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestListOrdersRejectsUnknownSort(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	rec, env := ts.do(t, http.MethodGet, "/api/orders?sort_by=name", token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"Sort by must be one of: created_at, total_price, status."}, env.Errors["sort_by"])
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestGetOrderOwnership(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(2, 8, 10.0, "pending", nil, nil, nil, stamp, stamp))
	ts.mock.ExpectQuery("FROM order_details d").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	rec, env := ts.do(t, http.MethodGet, "/api/orders/2", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized", env.Message)

	ts.expectAuthUser()
	ts.mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	rec, env = ts.do(t, http.MethodGet, "/api/orders/3", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", env.Message)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestCreateProductValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	rec, env := ts.do(t, http.MethodPost, "/api/products", token, `{"price":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Equal(t, []string{"Product name is required."}, env.Errors["name"])
	assert.Equal(t, []string{"Price cannot be negative."}, env.Errors["price"])
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestUpdateProductNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t)

	ts.expectAuthUser()
	ts.mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE id IN ($1)")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec, env := ts.do(t, http.MethodPut, "/api/products/42", token, `{"price":5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestLoginAndLogout(t *testing.T) {
	ts := newTestServer(t, nil)

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	expectLogin := func() {
		ts.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WithArgs(testUser.Email).
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(testUser.ID, testUser.Name, testUser.Email, hash, stamp, stamp))
	}

	expectLogin()
	rec, env := ts.do(t, http.MethodPost, "/api/login", "", `{"email":"test@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "The provided credentials are incorrect.", env.Message)

	expectLogin()
	rec, env = ts.do(t, http.MethodPost, "/api/login", "", `{"email":"test@example.com","password":"password"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, testUser.Email, login.User.Email)
	require.NotEmpty(t, login.Token)

	ts.expectAuthUser()
	rec, env = ts.do(t, http.MethodGet, "/api/user", login.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"name":"Test User","email":"test@example.com"}`, string(env.Data))

	ts.expectAuthUser()
	rec, env = ts.do(t, http.MethodPost, "/api/logout", login.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", env.Message)

	rec, _ = ts.do(t, http.MethodGet, "/api/user", login.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodPost, "/api/login", "", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"The email field must be a valid email address."}, env.Errors["email"])
	assert.Equal(t, []string{"The password field is required."}, env.Errors["password"])
}

func TestRateLimiter(t *testing.T) {
	ts := newTestServer(t, NewRateLimiter(1, 1, zerolog.Nop()))

	rec, _ := ts.do(t, http.MethodGet, "/api/products?category_id=1", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env := ts.do(t, http.MethodGet, "/api/products?category_id=1", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too Many Attempts.", env.Message)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec, _ = ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, zerolog.Nop())
	rl.getLimiter("a")
	rl.getLimiter("b")

	rl.Cleanup(5)
	assert.Len(t, rl.limiters, 2)
	rl.Cleanup(1)
	assert.Empty(t, rl.limiters)
}

func TestHealthAndNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec, env := ts.do(t, http.MethodGet, "/api/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
