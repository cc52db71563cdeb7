package api

import (
	"errors"
	"net/http"

	"github.com/example/farm2home/internal/checkout"
	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/example/farm2home/internal/session"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, catalog.ErrInvalidListing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidPoints),
		errors.Is(err, order.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidStep),
		errors.Is(err, session.ErrNoCheckout),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrDuplicateOrder),
		errors.Is(err, catalog.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, kv.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(h.logger, w, r, err)
}

func writeError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var ve *checkout.ValidationError
	if errors.As(err, &ve) {
		resp.Error = "missing required fields"
		resp.Fields = ve.Fields
	}

	switch {
	case status >= 500:
		logger.Error("request failed",
			zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	default:
		logger.Debug("request rejected",
			zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	respondJSON(w, status, resp)
}
