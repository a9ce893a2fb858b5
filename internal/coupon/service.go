package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maisonlune/boutique-api/internal/money"
)

// Querier captures the storage methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (Coupon, error)
	GetCouponByCodeForUpdate(ctx context.Context, code string) (Coupon, error)
	CountUsage(ctx context.Context, couponID uuid.UUID) (int, error)
	CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int, error)
	InsertUsage(ctx context.Context, arg InsertUsageParams) error
}

// InsertUsageParams describes one redemption row.
type InsertUsageParams struct {
	CouponID uuid.UUID
	OrderID  uuid.UUID
	UserID   *uuid.UUID
}

// Result is the outcome of a validation pass. Invalid results carry a typed
// reason and its user-facing message; valid results carry the coupon and the
// computed discount.
type Result struct {
	Valid          bool         `json:"valid"`
	Coupon         *Coupon      `json:"coupon,omitempty"`
	DiscountAmount money.Money  `json:"discountAmount"`
	Reason         Reason       `json:"reason,omitempty"`
	Message        string       `json:"error,omitempty"`
}

// Service evaluates coupons against carts. Validation is read-only and
// recomputed on every call; redemption happens inside the checkout
// transaction via ValidateLocked plus a usage insert.
type Service struct {
	Q   Querier
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Validate runs the full validation chain for a code and computes the
// discount. Storage failures are returned as errors; rule failures come back
// as an invalid Result.
func (s *Service) Validate(ctx context.Context, code string, in Input) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	return s.validate(ctx, s.Q, code, in, false)
}

// ValidateLocked behaves like Validate but reads the coupon row FOR UPDATE
// through the provided transaction-scoped querier, serialising concurrent
// redemptions of the same code so usage limits cannot be oversold.
func (s *Service) ValidateLocked(ctx context.Context, q Querier, code string, in Input) (Result, error) {
	if s == nil || q == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	return s.validate(ctx, q, code, in, true)
}

// Redeem validates under lock and records the usage row in one pass. The
// querier must be transaction-scoped; the caller commits alongside the order.
func (s *Service) Redeem(ctx context.Context, q Querier, code string, orderID uuid.UUID, in Input) (Result, error) {
	res, err := s.ValidateLocked(ctx, q, code, in)
	if err != nil || !res.Valid {
		return res, err
	}
	err = q.InsertUsage(ctx, InsertUsageParams{
		CouponID: res.Coupon.ID,
		OrderID:  orderID,
		UserID:   in.UserID,
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) validate(ctx context.Context, q Querier, code string, in Input, forUpdate bool) (Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return invalid(ReasonCodeNotFound), nil
	}
	var (
		c   Coupon
		err error
	)
	if forUpdate {
		c, err = q.GetCouponByCodeForUpdate(ctx, code)
	} else {
		c, err = q.GetCouponByCode(ctx, code)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalid(ReasonCodeNotFound), nil
		}
		return Result{}, err
	}
	if c.TotalUsageLimit != nil {
		used, err := q.CountUsage(ctx, c.ID)
		if err != nil {
			return Result{}, err
		}
		in.TotalUsed = used
	}
	if in.UserID != nil && c.CustomerUsageLimit > 0 {
		used, err := q.CountUsageByUser(ctx, c.ID, *in.UserID)
		if err != nil {
			return Result{}, err
		}
		in.CustomerUsed = used
	}
	if in.Now.IsZero() {
		in.Now = s.now()
	}
	if verr := Check(c, in); verr != nil {
		return invalid(verr.Reason), nil
	}
	return Result{
		Valid:          true,
		Coupon:         &c,
		DiscountAmount: Discount(c, in),
	}, nil
}

func invalid(reason Reason) Result {
	return Result{Valid: false, Reason: reason, Message: reason.Message()}
}
