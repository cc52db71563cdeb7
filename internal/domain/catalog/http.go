package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPCatalog talks to the producer-facing product service
// ({baseURL}/products and {baseURL}/products/{id}).
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// remoteProduct is the product service's wire shape
type remoteProduct struct {
	ID       json.Number     `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	ImageURL *string         `json:"image_url"`
}

// remoteListing is what the service accepts on create and update
type remoteListing struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	ImageURL *string     `json:"image_url"`
}

func (rp remoteProduct) product(fallbackID string) (Product, error) {
	p := Product{
		ID:                rp.ID.String(),
		Name:              rp.Name,
		Category:          ParseCategory(rp.Category),
		Price:             rp.Price,
		AvailableQuantity: rp.Quantity,
	}
	if p.ID == "" {
		p.ID = fallbackID
	}
	if rp.ImageURL != nil {
		p.ImageURL = *rp.ImageURL
	}
	if p.AvailableQuantity < 0 {
		p.AvailableQuantity = 0
	}
	if p.Price.IsNegative() {
		return Product{}, fmt.Errorf("product %s has negative price", p.ID)
	}
	return p, nil
}

// The service uses integer ids; anything else cannot exist there.
func validRemoteID(id string) bool {
	_, err := strconv.Atoi(id)
	return err == nil
}

func (c *HTTPCatalog) Product(ctx context.Context, id string) (Product, error) {
	if !validRemoteID(id) {
		return Product{}, ErrProductNotFound
	}

	var rp remoteProduct
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &rp); err != nil {
		return Product{}, err
	}
	return rp.product(id)
}

func (c *HTTPCatalog) List(ctx context.Context) ([]Product, error) {
	var remote []remoteProduct
	if err := c.do(ctx, http.MethodGet, "/products", nil, &remote); err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(remote))
	for _, rp := range remote {
		p, err := rp.product("")
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *HTTPCatalog) Put(ctx context.Context, p Product) (Product, error) {
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	body := remoteListing{
		Name:     p.Name,
		Category: string(p.Category),
		Price:    json.Number(p.Price.String()),
		Quantity: p.AvailableQuantity,
	}
	if p.ImageURL != "" {
		body.ImageURL = &p.ImageURL
	}

	method, path := http.MethodPost, "/products"
	if p.ID != "" {
		if !validRemoteID(p.ID) {
			return Product{}, ErrProductNotFound
		}
		method, path = http.MethodPut, "/products/"+url.PathEscape(p.ID)
	}

	var rp remoteProduct
	if err := c.do(ctx, method, path, body, &rp); err != nil {
		return Product{}, err
	}
	return rp.product(p.ID)
}

func (c *HTTPCatalog) Delete(ctx context.Context, id string) error {
	if !validRemoteID(id) {
		return ErrProductNotFound
	}
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

// do sends one request and decodes a 200 response into out when out is set
func (c *HTTPCatalog) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode catalog request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProductNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: rejected by product service", ErrInvalidListing)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}
