package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/common"
)

// Handler exposes checkout endpoints plus the order retry, which needs the
// full aggregator.
type Handler struct {
	Svc *Service
}

type checkoutRequest struct {
	CartID     string  `json:"cartId"`
	UserID     *string `json:"userId"`
	CouponCode string  `json:"couponCode"`
}

func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Request{}, false
	}
	cartID, err := uuid.Parse(strings.TrimSpace(req.CartID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return Request{}, false
	}
	out := Request{CartID: cartID, Code: req.CouponCode}
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != "" {
		userID, err := uuid.Parse(strings.TrimSpace(*req.UserID))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
			return Request{}, false
		}
		out.UserID = &userID
	}
	return out, true
}

// Quote handles POST /api/v1/checkout/quote, a dry run with no writes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Quote(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Create handles POST /api/v1/checkout, committing the quote as an order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Retry handles POST /api/v1/orders/{id}/retry, returning a fresh quote for
// a stored order's lines at today's prices.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	q, err := h.Svc.RetryQuote(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
}
