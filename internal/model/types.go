// Package model defines domain types used by the storefront.
package model

import (
	"github.com/shopspring/decimal"
)

// Inventory maps a size label (e.g. "40") to the remaining quantity.
// A missing key means the size is not offered; a zero value means sold out.
type Inventory map[string]int

// Product is a row of the external products table. It is read-only to the storefront.
type Product struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	RetailPrice decimal.NullDecimal `json:"retail_price"`
	ImageURL    string              `json:"image_url"`
	Inventory   Inventory           `json:"inventory"`
}

// HasSize reports whether the product is offered in size, regardless of stock.
func (p Product) HasSize(size string) bool {
	_, ok := p.Inventory[size]
	return ok
}

// LineItem is one (product, size) entry of a cart.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Size      string          `json:"size"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"max_stock"`
}

// Same reports whether the line item has the given composite identity.
func (li LineItem) Same(productID int64, size string) bool {
	return li.ProductID == productID && li.Size == size
}

// WaitlistEntry is a row written to the external waitlist table.
type WaitlistEntry struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Size        string  `json:"size"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
}

// Toast is the single transient notification shown to a shopper.
type Toast struct {
	Message    string `json:"message"`
	SubMessage string `json:"sub_message,omitempty"`
	Visible    bool   `json:"visible"`
}

// Page is a read request against the products table.
type Page struct {
	Offset int
	Limit  int
}
