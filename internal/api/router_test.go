package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/farm2home/internal/api/middleware"
	"github.com/example/farm2home/internal/auth"
	"github.com/example/farm2home/internal/command"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/example/farm2home/internal/metrics"
	"github.com/example/farm2home/internal/query"
	"github.com/example/farm2home/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
	token   string
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	products := catalog.NewMemoryCatalog(
		catalog.Product{ID: "p1", Name: "Tomatoes", Category: catalog.CategoryVegetable, Price: decimal.NewFromInt(100), AvailableQuantity: 10},
		catalog.Product{ID: "p2", Name: "Mangoes", Category: catalog.CategoryFruit, Price: decimal.NewFromInt(35), AvailableQuantity: 10},
		catalog.Product{ID: "p3", Name: "Ragi", Category: catalog.CategoryGrain, Price: decimal.NewFromInt(70), AvailableQuantity: 0},
	)
	sessions, err := session.NewManager(session.Config{
		Store:   kv.NewMemoryStore(),
		Catalog: products,
	})
	require.NoError(t, err)

	m := metrics.New()
	tokens := auth.NewTokenService("router-test-secret-key-0123456789", time.Hour)
	handlers := NewHandlers(
		command.NewHandler(sessions, m, nil),
		query.NewHandler(sessions, nil),
		tokens, false, nil,
	)
	return &testServer{
		handler: NewRouter(RouterConfig{
			Handlers:          handlers,
			Products:          NewProductHandlers(products, nil),
			Tokens:            tokens,
			Metrics:           m,
			PlaceOrderLimiter: limiter,
		}),
		metrics: m,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if issued := rec.Header().Get(middleware.SessionTokenHeader); issued != "" {
		s.token = issued
	}

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func shipping() map[string]string {
	return map[string]string{
		"name":    "Asha Rao",
		"email":   "asha@example.com",
		"phone":   "9876543210",
		"address": "12 Market Road",
		"city":    "Pune",
		"state":   "MH",
		"pincode": "411001",
	}
}

// ============================================
// Full Flow Tests
// ============================================

func TestRouter_CheckoutFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, s.token, "first request should start a session")
	assert.Equal(t, 2.0, body["item_count"])

	rec, _ = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p2", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	amounts := body["amounts"].(map[string]any)
	assert.Equal(t, "235", amounts["subtotal"])
	assert.Equal(t, "296.75", amounts["grand_total"])
	assert.Equal(t, 23.0, body["points_to_earn"])
	assert.Equal(t, "4.7", body["footprint"])

	rec, body = s.do(t, http.MethodPost, "/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "shipping", body["step"])

	incomplete := shipping()
	delete(incomplete, "email")
	rec, body = s.do(t, http.MethodPut, "/checkout/shipping", incomplete)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"email"}, body["fields"])

	rec, body = s.do(t, http.MethodPut, "/checkout/shipping", shipping())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment", body["step"])

	rec, body = s.do(t, http.MethodPut, "/checkout/payment", map[string]string{"method": "upi", "upi_id": "asha@upi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review", body["step"])

	rec, body = s.do(t, http.MethodPost, "/checkout/place", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := body["order_id"].(string)
	assert.True(t, strings.HasPrefix(orderID, "ORD-"))
	assert.Equal(t, "296.75", body["total"])
	status := body["status"].(map[string]any)
	assert.Equal(t, 25.0, status["progress_percent"])
	assert.Equal(t, "Pune", body["location"])

	rec, body = s.do(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["item_count"])
	assert.Equal(t, 23.0, body["wallet_points"])

	rec, body = s.do(t, http.MethodGet, "/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12 Market Road, Pune, MH 411001", body["shipping_address"])

	rec, _ = s.do(t, http.MethodPost, "/orders/"+orderID+"/status", map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/orders/"+orderID+"/status", map[string]string{"status": "processing", "location": "Pune hub"})
	require.Equal(t, http.StatusOK, rec.Code)
	status = body["status"].(map[string]any)
	assert.Equal(t, "Processing", status["label"])

	rec, _ = s.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, orderID, list[0]["order_id"])
}

// ============================================
// Error Mapping Tests
// ============================================

func TestRouter_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown product", http.MethodPost, "/cart/items", map[string]any{"product_id": "nope", "quantity": 1}, http.StatusNotFound},
		{"out of stock", http.MethodPost, "/cart/items", map[string]any{"product_id": "p3", "quantity": 1}, http.StatusConflict},
		{"bad quantity", http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "quantity": 0}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/cart/items", "not an object", http.StatusBadRequest},
		{"empty cart checkout", http.MethodPost, "/checkout", nil, http.StatusConflict},
		{"no checkout in progress", http.MethodGet, "/checkout", nil, http.StatusConflict},
		{"place without checkout", http.MethodPost, "/checkout/place", nil, http.StatusConflict},
		{"unknown order", http.MethodGet, "/orders/ORD-NOPE", nil, http.StatusNotFound},
		{"advance unknown order", http.MethodPost, "/orders/ORD-NOPE/status", map[string]string{"status": "processing"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			rec, body := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouter_CartItemRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	_, _ = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "quantity": 1})
	_, _ = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p2", "quantity": 1})

	rec, body := s.do(t, http.MethodPut, "/cart/items/p1", map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, body["item_count"])

	rec, body = s.do(t, http.MethodDelete, "/cart/items/p2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, body["item_count"])

	rec, body = s.do(t, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["item_count"])
}

// ============================================
// Session & Ops Route Tests
// ============================================

func TestRouter_StartSession(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodPost, "/session", nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, s.token, body["token"])
}

func TestRouter_SessionsDoNotShareCarts(t *testing.T) {
	alice := newTestServer(t, nil)
	_, _ = alice.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "quantity": 1})

	bob := &testServer{handler: alice.handler}
	rec, body := bob.do(t, http.MethodGet, "/cart", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["item_count"])
	assert.NotEqual(t, alice.token, bob.token)
}

func TestRouter_PlaceOrderRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.NewRateLimiter(0.001, 1))
	_, _ = s.do(t, http.MethodGet, "/cart", nil)

	first, _ := s.do(t, http.MethodPost, "/checkout/place", nil)
	second, _ := s.do(t, http.MethodPost, "/checkout/place", nil)

	assert.Equal(t, http.StatusConflict, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	_, _ = s.do(t, http.MethodPost, "/cart/items", map[string]any{"product_id": "p1", "quantity": 1})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	s.handler.ServeHTTP(metricsRec, req)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `farm2home_cart_mutations_total{op="add",outcome="ok"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `farm2home_http_requests_total`)
}
