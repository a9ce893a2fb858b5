package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/maisonlune/boutique-api/internal/money"
)

// Product is one sellable item. Price is the current catalog price; orders
// snapshot the price at checkout and never read it back from here.
type Product struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	Price       money.Money `json:"price"`
	CategoryID  *uuid.UUID  `json:"categoryId,omitempty"`
	IsActive    bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Category groups products for coupon scoping and browsing.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}
