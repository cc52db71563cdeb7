package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductHandlers serves the produce listings: producers edit, buyers browse
type ProductHandlers struct {
	listing catalog.Listing
	logger  *zap.Logger
}

func NewProductHandlers(listing catalog.Listing, logger *zap.Logger) *ProductHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandlers{
		listing: listing,
		logger:  logger.Named("products"),
	}
}

// productRequest carries the fields a producer sends. Absent fields keep
// their current value on update.
type productRequest struct {
	Name              *string          `json:"name"`
	Category          *string          `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	AvailableQuantity *int             `json:"available_quantity"`
	ImageURL          *string          `json:"image_url"`
}

func (req productRequest) applyTo(p catalog.Product) catalog.Product {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = catalog.Category(*req.Category)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.AvailableQuantity != nil {
		p.AvailableQuantity = *req.AvailableQuantity
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	return p
}

// ListProducts returns every listing, optionally filtered by ?category= and ?in_stock=
func (h *ProductHandlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.listing.List(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	q := r.URL.Query()
	inStockOnly, _ := strconv.ParseBool(q.Get("in_stock"))
	category := q.Get("category")

	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != catalog.ParseCategory(category) {
			continue
		}
		if inStockOnly && !p.InStock() {
			continue
		}
		out = append(out, p)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *ProductHandlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.listing.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// CreateProduct lists new produce. Name, price and quantity are required.
func (h *ProductHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Price == nil || req.AvailableQuantity == nil {
		writeError(h.logger, w, r, fmt.Errorf("%w: price and available_quantity are required", catalog.ErrInvalidListing))
		return
	}

	p, err := h.listing.Put(r.Context(), req.applyTo(catalog.Product{}))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	h.logger.Info("product listed", zap.String("product_id", p.ID), zap.String("name", p.Name))
	respondJSON(w, http.StatusCreated, p)
}

func (h *ProductHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}

	current, err := h.listing.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	p, err := h.listing.Put(r.Context(), req.applyTo(current))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.listing.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
