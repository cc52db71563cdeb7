package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"vegetable", CategoryVegetable},
		{"Fruit", CategoryFruit},
		{" grain ", CategoryGrain},
		{"dairy", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategory(tt.in))
		})
	}
}

func TestMemoryCatalog(t *testing.T) {
	c := NewMemoryCatalog(
		Product{ID: "2", Name: "Mango", Category: CategoryFruit, Price: decimal.NewFromInt(80)},
		Product{ID: "1", Name: "Tomato", Category: CategoryVegetable, Price: decimal.NewFromInt(40), AvailableQuantity: 5},
	)

	p, err := c.Product(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Tomato", p.Name)
	assert.True(t, p.InStock())

	_, err = c.Product(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.False(t, list[1].InStock())
}

func TestHTTPCatalog_Product(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/7":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":7,"farmer_id":1,"name":"Basmati Rice","category":"grain","price":120.5,"quantity":30,"image_url":null}`))
		case "/products/9":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Product not found"}`))
		}
	}))
	defer srv.Close()

	c := NewHTTPCatalog(srv.URL+"/", 0)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		p, err := c.Product(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, "7", p.ID)
		assert.Equal(t, CategoryGrain, p.Category)
		assert.True(t, decimal.RequireFromString("120.5").Equal(p.Price))
		assert.Equal(t, 30, p.AvailableQuantity)
		assert.Empty(t, p.ImageURL)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.Product(ctx, "8")
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("non numeric id never hits the service", func(t *testing.T) {
		_, err := c.Product(ctx, "abc")
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := c.Product(ctx, "9")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrProductNotFound)
	})
}

func TestSeed(t *testing.T) {
	c := NewMemoryCatalog(Seed()...)
	products, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, len(Seed()))

	seen := map[Category]bool{}
	for _, p := range products {
		assert.NotEmpty(t, p.Name, p.ID)
		assert.True(t, p.Price.IsPositive(), p.ID)
		seen[p.Category] = true
	}
	assert.Len(t, seen, 4)

	honey, err := c.Product(context.Background(), "other-honey")
	require.NoError(t, err)
	assert.False(t, honey.InStock())
}
