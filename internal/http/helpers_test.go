package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/backend"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/currency"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	m         sync.Mutex
	products  map[int64]domain.Product
	err       error
	lastQuery backend.ProductQuery
}

func (c *mockCatalog) Categories(ctx context.Context) ([]domain.Category, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []domain.Category{{ID: 1, Name: "Perfumes"}}, nil
}

func (c *mockCatalog) Products(ctx context.Context, q backend.ProductQuery) ([]domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lastQuery = q
	if c.err != nil {
		return nil, c.err
	}
	out := []domain.Product{}
	for id := int64(1); id <= int64(len(c.products)); id++ {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *mockCatalog) Product(ctx context.Context, id int64) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

type mockAccounts struct {
	session *domain.Session
	user    *domain.User
	err     error
}

func (a *mockAccounts) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	return a.session, a.err
}

func (a *mockAccounts) Register(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	return a.session, a.err
}

func (a *mockAccounts) Profile(ctx context.Context, token string) (*domain.User, error) {
	return a.user, a.err
}

type mockOrders struct {
	m         sync.Mutex
	placement *domain.OrderPlacement
	order     *domain.Order
	err       error
	last      *domain.OrderRequest
	lastToken string
}

func (o *mockOrders) PlaceOrder(ctx context.Context, token string, req domain.OrderRequest) (*domain.OrderPlacement, error) {
	o.m.Lock()
	defer o.m.Unlock()
	o.last = &req
	o.lastToken = token
	return o.placement, o.err
}

func (o *mockOrders) Order(ctx context.Context, token string, id int64) (*domain.Order, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.order, nil
}

// flakyStorage fails reads while readErr is set.
type flakyStorage struct {
	*storage.Memory
	m       sync.Mutex
	readErr error
}

func (f *flakyStorage) failReads(err error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.readErr = err
}

func (f *flakyStorage) Get(ctx context.Context, key string) (string, bool, error) {
	f.m.Lock()
	err := f.readErr
	f.m.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.Memory.Get(ctx, key)
}

type mockRates struct {
	rt *currency.RateTable
}

func (r mockRates) Fetch(ctx context.Context) *currency.RateTable {
	return r.rt
}

func strPtr(s string) *string { return &s }

func usdETB() *currency.RateTable {
	return currency.NewRateTable("USD", map[string]decimal.Decimal{
		"ETB": decimal.NewFromInt(57),
		"EUR": decimal.RequireFromString("0.92"),
	})
}

func testProducts() map[int64]domain.Product {
	return map[int64]domain.Product{
		1: {
			ID:              1,
			Name:            "Oud Royale",
			DefaultCurrency: "USD",
			BasePrice:       "100.00",
			Images:          strPtr(`["oud.jpg"]`),
			Sizes: []domain.ProductSize{
				{ID: 1, Size: "50ml", Price: "100.00", SizeImages: []string{"oud-50.jpg"}},
				{ID: 2, Size: "100ml", Price: "150.00"},
			},
		},
		2: {
			ID:              2,
			Name:            "Musk",
			DefaultCurrency: "ETB",
			BasePrice:       "1200",
		},
		3: {
			ID:              3,
			Name:            "Mystery",
			DefaultCurrency: "USD",
			BasePrice:       "n/a",
		},
	}
}

type testEnv struct {
	handler  http.Handler
	catalog  *mockCatalog
	accounts *mockAccounts
	orders   *mockOrders
	carts    *cart.Service
}

func setupTestEnv(t *testing.T, rt *currency.RateTable) *testEnv {
	t.Helper()
	return setupTestEnvWithStorage(t, rt, storage.NewMemory())
}

func setupTestEnvWithStorage(t *testing.T, rt *currency.RateTable, st cart.Storage) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog:  &mockCatalog{products: testProducts()},
		accounts: &mockAccounts{},
		orders:   &mockOrders{},
		carts:    cart.NewService(st, "", cart.DefaultShippingPolicy(), nil),
	}

	pricer := NewPricer(mockRates{rt: rt}, nil, "ETB", "http://api.local/uploads")
	timeout := 5 * time.Second
	env.handler = NewRouter(RouterConfig{
		RequestTimeout:     timeout,
		MaxRequestBodySize: 1 << 20,
		AllowedOrigins:     []string{"*"},
	}, Handlers{
		Catalog:  NewCatalogHandler(env.catalog, pricer, timeout),
		Cart:     NewCartHandler(env.carts, env.catalog, pricer, timeout),
		Auth:     NewAuthHandler(env.accounts, timeout),
		Checkout: NewCheckoutHandler(env.orders, env.carts, timeout, 1<<20),
		Orders:   NewOrdersHandler(env.orders, pricer, timeout),
	}, nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func session() map[string]string {
	return map[string]string{SessionHeader: uuid.NewString()}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
