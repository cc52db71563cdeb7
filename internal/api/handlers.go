package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/farm2home/internal/api/middleware"
	"github.com/example/farm2home/internal/command"
	"github.com/example/farm2home/internal/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	tokens       middleware.Tokens
	secureCookie bool
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, tokens middleware.Tokens, secureCookie bool, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		tokens:       tokens,
		secureCookie: secureCookie,
		logger:       logger.Named("api"),
	}
}

// Session Handlers

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StartSession always issues a new session, abandoning any previous one
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	sessionID, token, expiresAt, err := h.tokens.Issue()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	middleware.SetSessionToken(w, token, expiresAt, h.secureCookie)
	respondJSON(w, http.StatusCreated, sessionResponse{SessionID: sessionID, Token: token, ExpiresAt: expiresAt})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if !decode(w, r, &cmd) {
		return
	}
	if err := h.cmdHandler.AddToCart(r.Context(), getSessionID(r), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var cmd command.SetQuantity
	if !decode(w, r, &cmd) {
		return
	}
	cmd.ProductID = chi.URLParam(r, "id")
	if err := h.cmdHandler.SetQuantity(r.Context(), getSessionID(r), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cmd := command.RemoveFromCart{ProductID: chi.URLParam(r, "id")}
	if err := h.cmdHandler.RemoveFromCart(r.Context(), getSessionID(r), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.ClearCart(r.Context(), getSessionID(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handlers) respondCart(w http.ResponseWriter, r *http.Request, status int) {
	view, err := h.queryHandler.Cart(r.Context(), getSessionID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, status, view)
}

// Checkout Handlers

func (h *Handlers) StartCheckout(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cmdHandler.StartCheckout(r.Context(), getSessionID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, summary)
}

func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request) {
	summary, err := h.queryHandler.Checkout(r.Context(), getSessionID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var cmd command.SubmitShipping
	if !decode(w, r, &cmd) {
		return
	}
	summary, err := h.cmdHandler.SubmitShipping(r.Context(), getSessionID(r), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var cmd command.SubmitPayment
	if !decode(w, r, &cmd) {
		return
	}
	summary, err := h.cmdHandler.SubmitPayment(r.Context(), getSessionID(r), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) BackCheckout(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cmdHandler.BackCheckout(r.Context(), getSessionID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r)
	o, err := h.cmdHandler.PlaceOrder(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.queryHandler.TrackOrder(r.Context(), sessionID, o.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context(), getSessionID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.TrackOrder(r.Context(), getSessionID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.AdvanceStatus
	if !decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	sessionID := getSessionID(r)
	if _, err := h.cmdHandler.AdvanceStatus(r.Context(), sessionID, cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	view, err := h.queryHandler.TrackOrder(r.Context(), sessionID, cmd.OrderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func getSessionID(r *http.Request) string {
	return middleware.GetSessionID(r.Context())
}
