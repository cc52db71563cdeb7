package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/example/farm2home/internal/infrastructure/kv/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(name string, price int64, qty int) Product {
	return Product{Name: name, Category: "Vegetable", Price: decimal.NewFromInt(price), AvailableQuantity: qty}
}

// ============================================
// Validation Tests
// ============================================

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		wantErr bool
	}{
		{"valid", listing("Okra", 30, 5), false},
		{"free and sold out", listing("Okra", 0, 0), false},
		{"blank name", listing("  ", 30, 5), true},
		{"negative price", listing("Okra", -1, 5), true},
		{"negative quantity", listing("Okra", 30, -1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidListing)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ============================================
// Listing Implementations
// ============================================

func listingImplementations(t *testing.T) map[string]Listing {
	t.Helper()
	store, err := OpenStoreCatalog(context.Background(), mocks.NewStore(), nil, nil)
	require.NoError(t, err)
	return map[string]Listing{
		"memory": NewMemoryCatalog(),
		"store":  store,
	}
}

func TestListing_CreateUpdateDelete(t *testing.T) {
	for name, c := range listingImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := c.Put(ctx, listing(" Okra ", 30, 5))
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, "Okra", created.Name)
			assert.Equal(t, CategoryVegetable, created.Category)

			created.AvailableQuantity = 0
			updated, err := c.Put(ctx, created)
			require.NoError(t, err)
			assert.False(t, updated.InStock())

			got, err := c.Product(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, got.AvailableQuantity)

			list, err := c.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			require.NoError(t, c.Delete(ctx, created.ID))
			_, err = c.Product(ctx, created.ID)
			assert.ErrorIs(t, err, ErrProductNotFound)
		})
	}
}

func TestListing_Errors(t *testing.T) {
	for name, c := range listingImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := c.Put(ctx, listing("", 30, 5))
			assert.ErrorIs(t, err, ErrInvalidListing)

			missing := listing("Okra", 30, 5)
			missing.ID = "nope"
			_, err = c.Put(ctx, missing)
			assert.ErrorIs(t, err, ErrProductNotFound)

			assert.ErrorIs(t, c.Delete(ctx, "nope"), ErrProductNotFound)

			list, err := c.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

// ============================================
// StoreCatalog Tests
// ============================================

func TestStoreCatalog_SeedsOnceAndReloads(t *testing.T) {
	ctx := context.Background()
	backing := mocks.NewStore()

	first, err := OpenStoreCatalog(ctx, backing, Seed(), nil)
	require.NoError(t, err)
	require.Len(t, backing.ApplyCalls, 1)

	created, err := first.Put(ctx, listing("Okra", 30, 5))
	require.NoError(t, err)
	require.NoError(t, first.Delete(ctx, "veg-tomato"))

	reopened, err := OpenStoreCatalog(ctx, backing, Seed(), nil)
	require.NoError(t, err)
	assert.Len(t, backing.ApplyCalls, 3, "a stored catalog is never reseeded")

	list, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(Seed()))

	got, err := reopened.Product(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Okra", got.Name)
	_, err = reopened.Product(ctx, "veg-tomato")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStoreCatalog_PersistedShape(t *testing.T) {
	ctx := context.Background()
	backing := mocks.NewStore()
	c, err := OpenStoreCatalog(ctx, backing, []Product{
		{ID: "b", Name: "Beans", Category: CategoryVegetable, Price: decimal.RequireFromString("42.5"), AvailableQuantity: 3},
		{ID: "a", Name: "Apples", Category: CategoryFruit, Price: decimal.NewFromInt(90)},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	var stored []map[string]any
	require.NoError(t, json.Unmarshal(backing.Value(KeyProducts), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "a", stored[0]["id"])
	assert.Equal(t, "42.5", stored[1]["price"])
}

func TestStoreCatalog_WriteFailureLeavesListingsUnchanged(t *testing.T) {
	ctx := context.Background()
	backing := mocks.NewStore()
	c, err := OpenStoreCatalog(ctx, backing, Seed(), nil)
	require.NoError(t, err)

	backing.FailWrites(kv.ErrPersistence)

	_, err = c.Put(ctx, listing("Okra", 30, 5))
	assert.ErrorIs(t, err, kv.ErrPersistence)
	assert.ErrorIs(t, c.Delete(ctx, "veg-tomato"), kv.ErrPersistence)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(Seed()))
}

func TestOpenStoreCatalog_ReadFailure(t *testing.T) {
	backing := mocks.NewStore()
	backing.GetErr = kv.ErrPersistence

	_, err := OpenStoreCatalog(context.Background(), backing, Seed(), nil)

	assert.ErrorIs(t, err, kv.ErrPersistence)
}

// ============================================
// HTTPCatalog Listing Tests
// ============================================

type productService struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
}

func (s *productService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				var body map[string]any
				assert.NoError(t, json.Unmarshal(raw, &body))
				s.bodies = append(s.bodies, body)
			}
		}
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /products":
			w.Write([]byte(`[{"id":1,"name":"Okra","category":"vegetable","price":30,"quantity":5},
				{"id":2,"name":"Jowar","category":"Grain","price":"55.5","quantity":0,"image_url":"/j.png"}]`))
		case "POST /products":
			w.Write([]byte(`{"id":3,"name":"Okra","category":"vegetable","price":30,"quantity":5}`))
		case "PUT /products/3":
			w.Write([]byte(`{"id":3,"name":"Okra","category":"vegetable","price":25,"quantity":5}`))
		case "DELETE /products/3":
			w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestHTTPCatalog_Listing(t *testing.T) {
	svc := &productService{}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL, 0)
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[1].ID)
	assert.Equal(t, CategoryGrain, list[1].Category)
	assert.Equal(t, "/j.png", list[1].ImageURL)

	created, err := c.Put(ctx, listing("Okra", 30, 5))
	require.NoError(t, err)
	assert.Equal(t, "3", created.ID)

	created.Price = decimal.NewFromInt(25)
	updated, err := c.Put(ctx, created)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(updated.Price))

	require.NoError(t, c.Delete(ctx, "3"))
	assert.ErrorIs(t, c.Delete(ctx, "4"), ErrProductNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "abc"), ErrProductNotFound)

	assert.Equal(t, []string{"GET /products", "POST /products", "PUT /products/3", "DELETE /products/3", "DELETE /products/4"}, svc.requests)
	require.Len(t, svc.bodies, 2)
	assert.Equal(t, "vegetable", svc.bodies[0]["category"])
	assert.Equal(t, float64(30), svc.bodies[0]["price"])
	assert.Nil(t, svc.bodies[0]["image_url"])
}

func TestHTTPCatalog_PutRejectsInvalidListing(t *testing.T) {
	c := NewHTTPCatalog("http://127.0.0.1:0", 0)

	_, err := c.Put(context.Background(), listing("", 30, 5))

	assert.True(t, errors.Is(err, ErrInvalidListing))
}
