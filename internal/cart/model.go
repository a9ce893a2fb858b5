package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/money"
)

// Cart is a mutable working set of items. Name and slug are snapshotted when
// an item is added; unit prices are always joined live from the catalog so a
// cart never quotes a stale price.
type Cart struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	CouponCode *string    `json:"couponCode,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Item is one cart line with the live catalog price resolved at read time.
type Item struct {
	ID         uuid.UUID   `json:"id"`
	ProductID  uuid.UUID   `json:"productId"`
	CategoryID *uuid.UUID  `json:"categoryId,omitempty"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	UnitPrice  money.Money `json:"unitPrice"`
	Quantity   int         `json:"quantity"`
}

// View is a cart plus its priced items.
type View struct {
	Cart     Cart        `json:"cart"`
	Items    []Item      `json:"items"`
	Subtotal money.Money `json:"subtotal"`
}
