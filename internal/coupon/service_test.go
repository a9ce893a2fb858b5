package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	coupons     map[string]Coupon
	totalUsed   map[uuid.UUID]int
	userUsed    map[uuid.UUID]map[uuid.UUID]int
	usages      []InsertUsageParams
	lockedReads int
}

func newFakeQuerier(coupons ...Coupon) *fakeQuerier {
	q := &fakeQuerier{
		coupons:   map[string]Coupon{},
		totalUsed: map[uuid.UUID]int{},
		userUsed:  map[uuid.UUID]map[uuid.UUID]int{},
	}
	for _, c := range coupons {
		q.coupons[c.Code] = c
	}
	return q
}

func (q *fakeQuerier) GetCouponByCode(_ context.Context, code string) (Coupon, error) {
	c, ok := q.coupons[code]
	if !ok {
		return Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (q *fakeQuerier) GetCouponByCodeForUpdate(ctx context.Context, code string) (Coupon, error) {
	q.lockedReads++
	return q.GetCouponByCode(ctx, code)
}

func (q *fakeQuerier) CountUsage(_ context.Context, couponID uuid.UUID) (int, error) {
	return q.totalUsed[couponID], nil
}

func (q *fakeQuerier) CountUsageByUser(_ context.Context, couponID, userID uuid.UUID) (int, error) {
	return q.userUsed[couponID][userID], nil
}

func (q *fakeQuerier) InsertUsage(_ context.Context, arg InsertUsageParams) error {
	q.usages = append(q.usages, arg)
	q.totalUsed[arg.CouponID]++
	if arg.UserID != nil {
		if q.userUsed[arg.CouponID] == nil {
			q.userUsed[arg.CouponID] = map[uuid.UUID]int{}
		}
		q.userUsed[arg.CouponID][*arg.UserID]++
	}
	return nil
}

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestValidatePercentageScenario(t *testing.T) {
	save10 := activeCoupon(DiscountPercentage, "10")
	save10.Code = "SAVE10"
	svc := &Service{Q: newFakeQuerier(save10), Now: fixedNow}

	res, err := svc.Validate(context.Background(), "save10", Input{Subtotal: dec("1000")})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.NotNil(t, res.Coupon)
	require.Equal(t, "SAVE10", res.Coupon.Code)
	require.True(t, res.DiscountAmount.Equal(dec("100")), "got %s", res.DiscountAmount)
	require.Empty(t, res.Message)
}

func TestValidateUnknownCode(t *testing.T) {
	svc := &Service{Q: newFakeQuerier(), Now: fixedNow}

	res, err := svc.Validate(context.Background(), "NOPE", Input{Subtotal: dec("100")})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonCodeNotFound, res.Reason)
	require.NotEmpty(t, res.Message)
}

func TestValidateEmptyCode(t *testing.T) {
	svc := &Service{Q: newFakeQuerier(), Now: fixedNow}

	res, err := svc.Validate(context.Background(), "   ", Input{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonCodeNotFound, res.Reason)
}

func TestValidateCustomerLimitSecondAttempt(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "10")
	c.Code = "ONCE"
	c.CustomerUsageLimit = 1
	q := newFakeQuerier(c)
	svc := &Service{Q: q, Now: fixedNow}
	user := uuid.New()
	in := Input{Subtotal: dec("200"), UserID: &user}

	res, err := svc.Validate(context.Background(), "ONCE", in)
	require.NoError(t, err)
	require.True(t, res.Valid)

	q.userUsed[c.ID] = map[uuid.UUID]int{user: 1}

	res, err = svc.Validate(context.Background(), "ONCE", in)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonCustomerLimitReached, res.Reason)
}

func TestValidateTotalUsageLimit(t *testing.T) {
	c := activeCoupon(DiscountFixedAmount, "25")
	c.Code = "LIMITED"
	c.TotalUsageLimit = ptr(2)
	q := newFakeQuerier(c)
	q.totalUsed[c.ID] = 2
	svc := &Service{Q: q, Now: fixedNow}

	res, err := svc.Validate(context.Background(), "LIMITED", Input{Subtotal: dec("200")})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonUsageLimitReached, res.Reason)
}

func TestValidateLockedUsesLockingRead(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "10")
	c.Code = "LOCKME"
	q := newFakeQuerier(c)
	svc := &Service{Q: newFakeQuerier(), Now: fixedNow}

	res, err := svc.ValidateLocked(context.Background(), q, "LOCKME", Input{Subtotal: dec("100")})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Equal(t, 1, q.lockedReads)
}

func TestRedeemRecordsUsage(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "10")
	c.Code = "SAVE10"
	c.CustomerUsageLimit = 1
	q := newFakeQuerier(c)
	svc := &Service{Q: q, Now: fixedNow}
	user := uuid.New()
	orderID := uuid.New()
	in := Input{Subtotal: dec("1000"), UserID: &user}

	res, err := svc.Redeem(context.Background(), q, "SAVE10", orderID, in)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Len(t, q.usages, 1)
	require.Equal(t, c.ID, q.usages[0].CouponID)
	require.Equal(t, orderID, q.usages[0].OrderID)

	// the recorded usage now blocks the same customer
	res, err = svc.Redeem(context.Background(), q, "SAVE10", uuid.New(), in)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, ReasonCustomerLimitReached, res.Reason)
	require.Len(t, q.usages, 1)
}

func TestRedeemInvalidCouponWritesNothing(t *testing.T) {
	c := activeCoupon(DiscountPercentage, "10")
	c.Code = "OFF"
	c.IsActive = false
	q := newFakeQuerier(c)
	svc := &Service{Q: q, Now: fixedNow}

	res, err := svc.Redeem(context.Background(), q, "OFF", uuid.New(), Input{Subtotal: dec("100")})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Empty(t, q.usages)
}
