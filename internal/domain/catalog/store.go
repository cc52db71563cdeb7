package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyProducts holds every listing as one JSON array
const KeyProducts = "catalog:products"

// StoreCatalog keeps the listings in the durable store and serves reads
// from memory. Each edit rewrites the whole record.
type StoreCatalog struct {
	kv     kv.Store
	logger *zap.Logger

	mu       sync.RWMutex
	products map[string]Product
}

// OpenStoreCatalog loads the listings from s. A store that has never held a
// catalog is seeded with seed.
func OpenStoreCatalog(ctx context.Context, s kv.Store, seed []Product, logger *zap.Logger) (*StoreCatalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &StoreCatalog{
		kv:       s,
		logger:   logger.Named("catalog"),
		products: make(map[string]Product),
	}

	var stored []Product
	found, err := kv.GetJSON(ctx, s, KeyProducts, &stored)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if !found {
		for _, p := range seed {
			c.products[p.ID] = p
		}
		if len(seed) > 0 {
			if err := c.commit(ctx, c.products); err != nil {
				return nil, err
			}
			c.logger.Info("catalog seeded", zap.Int("products", len(seed)))
		}
		return c, nil
	}

	for _, p := range stored {
		if p.ID == "" {
			c.logger.Warn("dropping stored listing without id", zap.String("name", p.Name))
			continue
		}
		c.products[p.ID] = p
	}
	return c, nil
}

func (c *StoreCatalog) Product(ctx context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// List returns all products sorted by ID
func (c *StoreCatalog) List(ctx context.Context) ([]Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedProducts(c.products), nil
}

func (c *StoreCatalog) Put(ctx context.Context, p Product) (Product, error) {
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

	next := c.copyLocked()
	next[p.ID] = p
	if err := c.commit(ctx, next); err != nil {
		return Product{}, err
	}
	c.products = next
	c.logger.Debug("listing stored", zap.String("product_id", p.ID))
	return p, nil
}

func (c *StoreCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[id]; !ok {
		return ErrProductNotFound
	}
	next := c.copyLocked()
	delete(next, id)
	if err := c.commit(ctx, next); err != nil {
		return err
	}
	c.products = next
	return nil
}

func (c *StoreCatalog) copyLocked() map[string]Product {
	next := make(map[string]Product, len(c.products)+1)
	for id, p := range c.products {
		next[id] = p
	}
	return next
}

func (c *StoreCatalog) commit(ctx context.Context, products map[string]Product) error {
	data, err := json.Marshal(sortedProducts(products))
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return c.kv.Apply(ctx, kv.Op{Key: KeyProducts, Value: data})
}
