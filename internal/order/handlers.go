package order

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonlune/boutique-api/internal/common"
)

// Handler exposes read endpoints for order snapshots. Retry lives with the
// checkout handler because re-pricing needs the full aggregator.
type Handler struct {
	Store *Store
}

// Get handles GET /api/v1/orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	items, err := h.Store.ListItems(r.Context(), id)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": View{Order: o, Items: items}})
}

// List handles GET /api/v1/orders?userId=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "userId is required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, err := h.Store.ListByUser(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	w.Header().Set("X-Page", strconv.Itoa(page))
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}
