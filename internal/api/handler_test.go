package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcatalog/internal/cache"
	"tvcatalog/internal/db"
	"tvcatalog/internal/model"
	"tvcatalog/internal/observability"
	"tvcatalog/internal/repository"
)

type stubCatalog struct {
	listFn    func(ctx context.Context, req repository.ListRequest) (model.Page, error)
	findFn    func(ctx context.Context, value string) (model.Product, error)
	brandsFn  func(ctx context.Context, limit int) ([]model.BrandCount, error)
	panelsFn  func(ctx context.Context) ([]model.PanelCount, error)
	statsFn   func(ctx context.Context, brand string) (model.Stats, error)
	pingErr   error
	listCalls int
}

func (s *stubCatalog) List(ctx context.Context, req repository.ListRequest) (model.Page, error) {
	s.listCalls++
	if s.listFn == nil {
		return model.Page{Page: 1, PageSize: 24, Items: []model.Product{}}, nil
	}
	return s.listFn(ctx, req)
}

func (s *stubCatalog) FindByURL(ctx context.Context, value string) (model.Product, error) {
	if s.findFn == nil {
		return model.Product{}, repository.ErrNotFound
	}
	return s.findFn(ctx, value)
}

func (s *stubCatalog) Brands(ctx context.Context, limit int) ([]model.BrandCount, error) {
	if s.brandsFn == nil {
		return []model.BrandCount{}, nil
	}
	return s.brandsFn(ctx, limit)
}

func (s *stubCatalog) Panels(ctx context.Context) ([]model.PanelCount, error) {
	if s.panelsFn == nil {
		return []model.PanelCount{}, nil
	}
	return s.panelsFn(ctx)
}

func (s *stubCatalog) Stats(ctx context.Context, brand string) (model.Stats, error) {
	if s.statsFn == nil {
		return model.Stats{TopByRating: []model.RatedProduct{}}, nil
	}
	return s.statsFn(ctx, brand)
}

func (s *stubCatalog) Ping(context.Context) error {
	return s.pingErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, catalog Catalog, c *cache.Cache, metrics *observability.Metrics) http.Handler {
	t.Helper()
	h := NewHandler(catalog, c, discardLogger(), HandlerConfig{Driver: "sqlite", Table: "products", MaxPageSize: 200})
	return NewRouter(RouterParams{
		Logger:       discardLogger(),
		Handler:      h,
		Metrics:      metrics,
		MountMetrics: metrics != nil,
	})
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var p ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	return p
}

func TestListProductsParsesQuery(t *testing.T) {
	var got repository.ListRequest
	catalog := &stubCatalog{listFn: func(_ context.Context, req repository.ListRequest) (model.Page, error) {
		got = req
		return model.Page{Total: 0, Page: req.Page, PageSize: req.PageSize, Items: []model.Product{}}, nil
	}}
	router := newTestRouter(t, catalog, nil, nil)

	rr := do(t, router, "/products?q=Sony&min_price=100&max_price=5e4&is_smart_tv=yes&is_4k=maybe"+
		"&panel=OLED&brand=Sony&hdmi_min=2&in_stock=0&sort_by=price&sort_dir=desc&page=2&page_size=10")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "Sony", got.Criteria.Query)
	assert.Equal(t, 100.0, *got.Criteria.MinPrice)
	assert.Equal(t, 50000.0, *got.Criteria.MaxPrice)
	assert.True(t, *got.Criteria.SmartTV)
	assert.Nil(t, got.Criteria.Is4K)
	assert.False(t, *got.Criteria.InStock)
	assert.Equal(t, "OLED", got.Criteria.Panel)
	assert.Equal(t, "Sony", got.Criteria.Brand)
	assert.Equal(t, 2, *got.Criteria.MinHDMI)
	assert.Nil(t, got.Criteria.MinUSB)
	assert.Equal(t, "price", got.SortBy)
	assert.Equal(t, "desc", got.SortDir)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.PageSize)

	var page model.Page
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, 2, page.Page)
	assert.NotNil(t, page.Items)
}

func TestListProductsDefaults(t *testing.T) {
	var got repository.ListRequest
	catalog := &stubCatalog{listFn: func(_ context.Context, req repository.ListRequest) (model.Page, error) {
		got = req
		return model.Page{Items: []model.Product{}}, nil
	}}
	rr := do(t, newTestRouter(t, catalog, nil, nil), "/products")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 0, got.PageSize)
	assert.Equal(t, model.Criteria{}, got.Criteria)
}

func TestListProductsRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		detail string
	}{
		{"non numeric price", "min_price=cheap", "min_price must be a number"},
		{"nan price", "max_price=NaN", "max_price must be a number"},
		{"negative price", "min_price=-1", "min_price must be >= 0"},
		{"fractional port count", "hdmi_min=1.5", "hdmi_min must be an integer"},
		{"page zero", "page=0", "page must be >= 1"},
		{"page size zero", "page_size=0", "page_size must be between 1 and 200"},
		{"page size too large", "page_size=201", "page_size must be between 1 and 200"},
		{"negative rating", "min_rating=-0.5", "min_rating must be >= 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			catalog := &stubCatalog{}
			rr := do(t, newTestRouter(t, catalog, nil, nil), "/products?"+tc.query)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			p := decodeProblem(t, rr)
			assert.Equal(t, http.StatusBadRequest, p.Status)
			assert.Contains(t, p.Detail, tc.detail)
			assert.Zero(t, catalog.listCalls)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"store down", fmt.Errorf("%w: dial tcp: refused", repository.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"table missing", fmt.Errorf("%w: table products not found", repository.ErrSchemaUnavailable), http.StatusServiceUnavailable},
		{"query failed", errors.New("repository: page: syntax error"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			catalog := &stubCatalog{listFn: func(context.Context, repository.ListRequest) (model.Page, error) {
				return model.Page{}, tc.err
			}}
			rr := do(t, newTestRouter(t, catalog, nil, nil), "/products")

			require.Equal(t, tc.status, rr.Code)
			p := decodeProblem(t, rr)
			assert.NotContains(t, p.Detail, "refused")
			assert.NotContains(t, p.Detail, "syntax")
		})
	}
}

func TestGetProduct(t *testing.T) {
	var asked string
	catalog := &stubCatalog{findFn: func(_ context.Context, value string) (model.Product, error) {
		asked = value
		if value == "/tv/sony-x90/p/1" {
			name := "Sony X90"
			return model.Product{Name: &name}, nil
		}
		return model.Product{}, repository.ErrNotFound
	}}
	router := newTestRouter(t, catalog, nil, nil)

	rr := do(t, router, "/products/"+url.PathEscape("/tv/sony-x90/p/1"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/tv/sony-x90/p/1", asked)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Sony X90", body["name"])
	assert.Contains(t, body, "price")
	assert.Nil(t, body["price"])

	rr = do(t, router, "/products/unknown")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not Found", decodeProblem(t, rr).Title)
}

func TestHealth(t *testing.T) {
	catalog := &stubCatalog{}
	rr := do(t, newTestRouter(t, catalog, nil, nil), "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","driver":"sqlite","table":"products"}`, rr.Body.String())

	catalog.pingErr = fmt.Errorf("%w: closed", repository.ErrStoreUnavailable)
	rr = do(t, newTestRouter(t, catalog, nil, nil), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetaEndpointsAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	calls := 0
	sony := "Sony"
	catalog := &stubCatalog{brandsFn: func(_ context.Context, limit int) ([]model.BrandCount, error) {
		calls++
		assert.Equal(t, 5, limit)
		return []model.BrandCount{{Brand: &sony, Count: 3}}, nil
	}}
	router := newTestRouter(t, catalog, cache.New(client, time.Minute, nil, nil), nil)

	for i := 0; i < 2; i++ {
		rr := do(t, router, "/meta/brands?limit=5")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[{"brand":"Sony","count":3}]`, rr.Body.String())
	}
	assert.Equal(t, 1, calls)

	rr := do(t, router, "/meta/brands?limit=0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatsBrandIsTrimmed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var brands []string
	catalog := &stubCatalog{statsFn: func(_ context.Context, brand string) (model.Stats, error) {
		brands = append(brands, brand)
		return model.Stats{Count: 16, TopByRating: []model.RatedProduct{}}, nil
	}}
	router := newTestRouter(t, catalog, cache.New(client, time.Minute, nil, nil), nil)

	for _, target := range []string{"/meta/stats?brand=%20Sony%20", "/meta/stats?brand=Sony"} {
		rr := do(t, router, target)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"count":16,"avg_price":null,"top_by_rating":[]}`, rr.Body.String())
	}
	assert.Equal(t, []string{"Sony"}, brands)
}

func TestMetaErrorsAreNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fail := true
	catalog := &stubCatalog{panelsFn: func(context.Context) ([]model.PanelCount, error) {
		if fail {
			return nil, fmt.Errorf("%w: closed", repository.ErrStoreUnavailable)
		}
		return []model.PanelCount{{Type: "LED", Count: 4}}, nil
	}}
	router := newTestRouter(t, catalog, cache.New(client, time.Minute, nil, nil), nil)

	rr := do(t, router, "/meta/panels")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	fail = false
	rr = do(t, router, "/meta/panels")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"type":"LED","count":4}]`, rr.Body.String())
}

func TestMiddlewareHeaders(t *testing.T) {
	router := newTestRouter(t, &stubCatalog{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://shop.example")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))
}

func TestMetricsMounted(t *testing.T) {
	router := newTestRouter(t, &stubCatalog{}, nil, observability.NewMetrics())

	require.Equal(t, http.StatusOK, do(t, router, "/products").Code)
	rr := do(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{code="200",route="/products"} 1`)
}

func TestProductsAgainstSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	seed, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE products (name TEXT, product_url TEXT, "amount 2" TEXT, catalog_rank INTEGER, panel_led INTEGER)`)
	require.NoError(t, err)
	for i := 1; i <= 30; i++ {
		_, err := seed.Exec(`INSERT INTO products VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprintf("TV %02d", i), fmt.Sprintf("/tv/%02d", i), fmt.Sprintf("₹%d,999", i), i, i%2)
		require.NoError(t, err)
	}
	require.NoError(t, seed.Close())

	conn, dialect, err := db.Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	repo := &repository.ProductRepository{DB: conn, Dialect: dialect, Table: "products", DefaultPageSize: 24, MaxPageSize: 200}
	router := newTestRouter(t, repo, nil, nil)

	rr := do(t, router, "/products?page=2&page_size=20&panel=oled&sort_by=price&sort_dir=desc")
	require.Equal(t, http.StatusOK, rr.Code)
	var page model.Page
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, 30, page.Total)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(21), *page.Items[0].CatalogRank)
	assert.Equal(t, 21999.0, *page.Items[0].Price)

	rr = do(t, router, "/products?panel=led")
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	assert.Equal(t, 15, page.Total)

	rr = do(t, router, "/products/"+url.PathEscape("/tv/07"))
	require.Equal(t, http.StatusOK, rr.Code)
	var p model.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	assert.Equal(t, "TV 07", *p.Name)
	assert.Equal(t, 7999.0, *p.Price)

	rr = do(t, router, "/meta/brands")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
