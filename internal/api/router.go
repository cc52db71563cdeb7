package api

import (
	"net/http"

	"github.com/example/farm2home/internal/api/middleware"
	"github.com/example/farm2home/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Handlers *Handlers
	// Products serves /products; nil leaves the routes out
	Products *ProductHandlers
	Tokens   middleware.Tokens
	Metrics  *metrics.Metrics
	// PlaceOrderLimiter throttles POST /checkout/place; nil disables it
	PlaceOrderLimiter *middleware.RateLimiter
	SecureCookie      bool
	Logger            *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handlers

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Observe(cfg.Metrics, logger.Named("http")))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Post("/session", h.StartSession)

	// Products
	if p := cfg.Products; p != nil {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", p.ListProducts)
			r.Post("/", p.CreateProduct)
			r.Get("/{id}", p.GetProduct)
			r.Put("/{id}", p.UpdateProduct)
			r.Delete("/{id}", p.DeleteProduct)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Tokens, cfg.SecureCookie, logger.Named("session")))

		// Cart
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Put("/items/{id}", h.SetQuantity)
			r.Delete("/items/{id}", h.RemoveFromCart)
		})

		// Checkout
		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/", h.StartCheckout)
			r.Put("/shipping", h.SubmitShipping)
			r.Put("/payment", h.SubmitPayment)
			r.Post("/back", h.BackCheckout)
			if cfg.PlaceOrderLimiter != nil {
				r.With(cfg.PlaceOrderLimiter.Middleware).Post("/place", h.PlaceOrder)
			} else {
				r.Post("/place", h.PlaceOrder)
			}
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.GetOrders)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/status", h.AdvanceStatus)
		})
	})

	return r
}
