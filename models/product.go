package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices and sizes serialize as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog item with its per-size inventory.
type Product struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Price     decimal.Decimal `json:"price"`
	Image     *string         `json:"image"` // Pointer for nullable column
	Inventory []SizeQuantity  `json:"inventory"`
}

// SizeQuantity is the available quantity of one product at one size.
// Sizes support half steps (7.5, 9.5), hence decimal.
type SizeQuantity struct {
	Size     decimal.Decimal `json:"size"`
	Quantity int             `json:"quantity"`
}

// InventoryLevel is the outcome of an inventory patch: the current
// quantity for one (product, size) pair.
type InventoryLevel struct {
	ProductID int             `json:"productId"`
	Size      decimal.Decimal `json:"size"`
	Quantity  int             `json:"quantity"`
}
