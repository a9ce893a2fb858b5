package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/common"
)

// Handler exposes cart endpoints.
type Handler struct {
	Svc *Service
}

type ensureRequest struct {
	UserID *string `json:"userId"`
}

// Ensure handles POST /api/v1/carts.
func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	userID, ok := parseOptionalUUID(req.UserID)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	c, err := h.Svc.Ensure(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.Svc.Get(r.Context(), cartID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddItem handles POST /api/v1/carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), cartID, productID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PATCH /api/v1/carts/{id}/items/{productId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productId")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Svc.UpdateQuantity(r.Context(), cartID, productID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem handles DELETE /api/v1/carts/{id}/items/{productId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathUUID(w, r, "productId")
	if !ok {
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), cartID, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type applyCouponRequest struct {
	Code   string  `json:"code"`
	UserID *string `json:"userId"`
}

// ApplyCoupon handles POST /api/v1/carts/{id}/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	userID, ok := parseOptionalUUID(req.UserID)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	res, err := h.Svc.ApplyCoupon(r.Context(), cartID, req.Code, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, res)
}

// RemoveCoupon handles DELETE /api/v1/carts/{id}/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.RemoveCoupon(r.Context(), cartID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(raw *string) (*uuid.UUID, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, false
	}
	return &id, true
}
