package shipping

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/common"
	"github.com/maisonlune/boutique-api/internal/money"
	"github.com/maisonlune/boutique-api/internal/settings"
)

// Handler exposes the public shipping quote endpoint.
type Handler struct {
	Settings *settings.Service
	Logger   zerolog.Logger
}

type quoteRequest struct {
	Subtotal decimal.Decimal `json:"subtotal"`
}

type quoteResponse struct {
	ShippingCost          money.Money `json:"shippingCost"`
	EstimatedDeliveryDays int         `json:"estimatedDeliveryDays"`
}

// Quote computes the shipping cost for a given subtotal.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Settings == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Subtotal.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must not be negative", nil)
		return
	}
	cfg, err := h.Settings.Shipping(r.Context())
	if err != nil {
		// cfg still carries usable defaults; quoting must not fail on settings
		h.Logger.Warn().Err(err).Msg("shipping settings unavailable, using defaults")
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quoteResponse{
		ShippingCost:          money.RoundCurrency(Cost(req.Subtotal, cfg)),
		EstimatedDeliveryDays: cfg.EstimatedDeliveryDays,
	}})
}
