package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maisonlune/boutique-api/internal/common"
)

// Handler exposes administrative settings endpoints.
type Handler struct {
	Svc *Service
}

// Get returns the current settings blob for a key, defaults included.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	switch strings.TrimSpace(chi.URLParam(r, "key")) {
	case KeyTax:
		cfg, err := h.Svc.Tax(r.Context())
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load tax settings", nil)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
	case KeyShipping:
		cfg, err := h.Svc.Shipping(r.Context())
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load shipping settings", nil)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
	default:
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown settings key", nil)
	}
}

// Update validates and replaces the settings blob for a key.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	switch key {
	case KeyTax:
		var cfg Tax
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
		if err := h.Svc.UpdateTax(r.Context(), cfg); err != nil {
			writeUpdateError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
	case KeyShipping:
		var cfg Shipping
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
		if err := h.Svc.UpdateShipping(r.Context(), cfg); err != nil {
			writeUpdateError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
	default:
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown settings key", nil)
	}
}

func writeUpdateError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_SETTINGS", fieldErrs.Error(), nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update settings", nil)
}
