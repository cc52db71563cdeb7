package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidListing  = errors.New("invalid product listing")
)

type Category string

const (
	CategoryVegetable Category = "vegetable"
	CategoryFruit     Category = "fruit"
	CategoryGrain     Category = "grain"
	CategoryOther     Category = "other"
)

// ParseCategory maps free-form catalog values onto the known categories.
// Anything unrecognised is CategoryOther.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryVegetable, CategoryFruit, CategoryGrain:
		return c
	default:
		return CategoryOther
	}
}

type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Category          Category        `json:"category"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	ImageURL          string          `json:"image_url,omitempty"`
}

func (p Product) InStock() bool {
	return p.AvailableQuantity > 0
}

// Catalog supplies product records to the cart.
type Catalog interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Listing is a catalog producers edit and buyers browse
type Listing interface {
	Catalog
	List(ctx context.Context) ([]Product, error)
	// Put creates p when its ID is empty, otherwise replaces the listing with that ID
	Put(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
}

// Validate checks a producer's listing before it is stored
func (p Product) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.Price.IsNegative() {
		problems = append(problems, "price must not be negative")
	}
	if p.AvailableQuantity < 0 {
		problems = append(problems, "available_quantity must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidListing, strings.Join(problems, ", "))
	}
	return nil
}

func (p Product) normalized() Product {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = ParseCategory(string(p.Category))
	return p
}

// MemoryCatalog is an in-process catalog
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryCatalog(products ...Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) Product(ctx context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// List returns all products sorted by ID
func (c *MemoryCatalog) List(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedProducts(c.products), nil
}

func (c *MemoryCatalog) Put(ctx context.Context, p Product) (Product, error) {
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, ok := c.products[p.ID]; !ok {
		return Product{}, ErrProductNotFound
	}
	c.products[p.ID] = p
	return p, nil
}

func (c *MemoryCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(c.products, id)
	return nil
}

func sortedProducts(products map[string]Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
