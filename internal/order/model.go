package order

import (
	"time"

	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/coupon"
	"github.com/maisonlune/boutique-api/internal/money"
)

// Status enumerates the order lifecycle states this service tracks.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Order is an immutable pricing snapshot taken at checkout. The figures are
// write-once: a retry re-prices against the current catalog but never
// rewrites these columns.
type Order struct {
	ID                    uuid.UUID            `json:"id"`
	UserID                *uuid.UUID           `json:"userId,omitempty"`
	Status                Status               `json:"status"`
	Subtotal              money.Money          `json:"subtotal"`
	Tax                   money.Money          `json:"tax"`
	ShippingCost          money.Money          `json:"shippingCost"`
	DiscountAmount        money.Money          `json:"discountAmount"`
	Total                 money.Money          `json:"total"`
	CouponCode            *string              `json:"couponCode,omitempty"`
	CouponDiscountType    *coupon.DiscountType `json:"couponDiscountType,omitempty"`
	EstimatedDeliveryDays int                  `json:"estimatedDeliveryDays"`
	CreatedAt             time.Time            `json:"createdAt"`
}

// Item is one snapshotted order line.
type Item struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   uuid.UUID   `json:"orderId"`
	ProductID uuid.UUID   `json:"productId"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	LineTotal money.Money `json:"lineTotal"`
}

// View is an order plus its lines.
type View struct {
	Order Order  `json:"order"`
	Items []Item `json:"items"`
}
