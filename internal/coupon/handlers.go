package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/maisonlune/boutique-api/internal/common"
	"github.com/maisonlune/boutique-api/internal/obs"
)

// Handler exposes the public validation endpoint and administrative CRUD.
type Handler struct {
	Store    *Store
	Svc      *Service
	Validate *validator.Validate
	Metrics  *obs.DomainMetrics
}

type validateRequest struct {
	Code         string          `json:"code" validate:"required"`
	CartSubtotal decimal.Decimal `json:"cartSubtotal"`
	ProductIDs   []string        `json:"productIds"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	CartItems    []validateItem  `json:"cartItems"`
	UserID       *string         `json:"userId"`
}

type validateItem struct {
	ProductID  string          `json:"productId"`
	CategoryID *string         `json:"categoryId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
}

// ValidateCode evaluates a coupon against the submitted cart context without
// mutating any state.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	in, err := h.buildInput(req)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	result, err := h.Svc.Validate(r.Context(), req.Code, in)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to validate coupon", nil)
		return
	}
	h.observe(result)
	common.JSON(w, http.StatusOK, result)
}

func (h *Handler) buildInput(req validateRequest) (Input, error) {
	in := Input{
		Subtotal:     req.CartSubtotal,
		ShippingCost: req.ShippingCost,
	}
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != "" {
		uid, err := uuid.Parse(strings.TrimSpace(*req.UserID))
		if err != nil {
			return Input{}, errors.New("invalid user id")
		}
		in.UserID = &uid
	}
	for _, item := range req.CartItems {
		pid, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			return Input{}, errors.New("invalid product id in cart items")
		}
		engineItem := Item{ProductID: pid, UnitPrice: item.UnitPrice, Quantity: item.Quantity}
		if item.CategoryID != nil && strings.TrimSpace(*item.CategoryID) != "" {
			cid, err := uuid.Parse(strings.TrimSpace(*item.CategoryID))
			if err != nil {
				return Input{}, errors.New("invalid category id in cart items")
			}
			engineItem.CategoryID = &cid
		}
		in.Items = append(in.Items, engineItem)
	}
	// clients that only know product ids still get scope checks
	if len(in.Items) == 0 {
		for _, raw := range req.ProductIDs {
			pid, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return Input{}, errors.New("invalid product id")
			}
			in.Items = append(in.Items, Item{ProductID: pid, Quantity: 1})
		}
	}
	return in, nil
}

func (h *Handler) observe(result Result) {
	if h.Metrics == nil {
		return
	}
	outcome := "valid"
	if !result.Valid {
		outcome = string(result.Reason)
	}
	h.Metrics.CouponValidations.WithLabelValues(outcome).Inc()
}

type couponPayload struct {
	Code                 string           `json:"code" validate:"required"`
	Description          string           `json:"description"`
	DiscountType         string           `json:"discountType" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING BUY_X_GET_Y"`
	DiscountValue        decimal.Decimal  `json:"discountValue"`
	BuyMode              *string          `json:"buyMode" validate:"omitempty,oneof=CATEGORY PRODUCT CONDITIONAL_FREE"`
	BuyTargetID          *uuid.UUID       `json:"buyTargetId"`
	GetTargetID          *uuid.UUID       `json:"getTargetId"`
	BuyQuantity          int              `json:"buyQuantity"`
	GetQuantity          int              `json:"getQuantity"`
	MaxFreeQuantity      *int             `json:"maxFreeQuantity"`
	IsActive             *bool            `json:"isActive"`
	TotalUsageLimit      *int             `json:"totalUsageLimit"`
	CustomerUsageLimit   *int             `json:"customerUsageLimit"`
	StartDate            *time.Time       `json:"startDate"`
	EndDate              *time.Time       `json:"endDate"`
	MinimumAmount        *decimal.Decimal `json:"minimumAmount"`
	ApplicableProducts   []uuid.UUID      `json:"applicableProducts"`
	ApplicableCategories []uuid.UUID      `json:"applicableCategories"`
	ApplicableUsers      []uuid.UUID      `json:"applicableUsers"`
}

func (p couponPayload) toCoupon() Coupon {
	c := Coupon{
		Code:                 strings.ToUpper(strings.TrimSpace(p.Code)),
		Description:          strings.TrimSpace(p.Description),
		DiscountType:         DiscountType(p.DiscountType),
		DiscountValue:        p.DiscountValue,
		BuyTargetID:          p.BuyTargetID,
		GetTargetID:          p.GetTargetID,
		BuyQuantity:          p.BuyQuantity,
		GetQuantity:          p.GetQuantity,
		MaxFreeQuantity:      p.MaxFreeQuantity,
		IsActive:             true,
		TotalUsageLimit:      p.TotalUsageLimit,
		CustomerUsageLimit:   1,
		StartAt:              p.StartDate,
		EndAt:                p.EndDate,
		MinimumAmount:        p.MinimumAmount,
		ApplicableProducts:   p.ApplicableProducts,
		ApplicableCategories: p.ApplicableCategories,
		ApplicableUsers:      p.ApplicableUsers,
	}
	if p.BuyMode != nil {
		mode := BuyMode(*p.BuyMode)
		c.BuyMode = &mode
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.CustomerUsageLimit != nil {
		c.CustomerUsageLimit = *p.CustomerUsageLimit
	}
	return c
}

// Create inserts a new coupon rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	coupon, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	created, err := h.Store.CreateCoupon(r.Context(), coupon)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update mutates an existing coupon identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	coupon, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	coupon.Code = code
	updated, err := h.Store.UpdateCoupon(r.Context(), coupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Get returns a single coupon by code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	coupon, err := h.Store.GetCouponByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupon})
}

// List returns coupons newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	coupons, err := h.Store.ListCoupons(r.Context(), limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// Delete removes a coupon by code.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	deleted, err := h.Store.DeleteCoupon(r.Context(), code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	if !deleted {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (Coupon, bool) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Coupon{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return Coupon{}, false
		}
	}
	coupon := payload.toCoupon()
	if err := coupon.ValidateStructure(); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_COUPON", err.Error(), nil)
		return Coupon{}, false
	}
	return coupon, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
