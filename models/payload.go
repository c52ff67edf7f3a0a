package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

// ProductInput is one product as submitted to the create endpoint.
// Price is a pointer so a missing field is distinguishable from zero.
type ProductInput struct {
	Name      string           `json:"name"`
	Brand     string           `json:"brand"`
	Price     *decimal.Decimal `json:"price"`
	Image     *string          `json:"image"`
	Inventory []InventoryInput `json:"inventory"`
}

// InventoryInput is one size/quantity entry in a create or update
// payload. Entries with a null size are skipped on insert.
type InventoryInput struct {
	Size     *decimal.Decimal `json:"size"`
	Quantity int              `json:"quantity"`
}

// Validate checks the invariants required of every submitted product.
func (p *ProductInput) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return e.ErrNameRequired
	}
	if strings.TrimSpace(p.Brand) == "" {
		return e.ErrBrandRequired
	}
	if p.Price == nil {
		return e.ErrPriceRequired
	}
	if p.Price.IsNegative() {
		return e.ErrPriceNegative
	}
	return nil
}

// ParseCreateRequest parses a create payload that may be either a single
// product object or a sequence of products. It reports whether the caller
// submitted exactly one product object (which changes the response shape).
// The whole batch is rejected if any item fails validation.
func ParseCreateRequest(body string) ([]ProductInput, bool, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, false, e.Validationf("request body is empty")
	}

	var batch []ProductInput
	if err := json.Unmarshal([]byte(trimmed), &batch); err == nil {
		if len(batch) == 0 {
			return nil, false, e.ErrEmptyBatch
		}
		for i := range batch {
			if err := batch[i].Validate(); err != nil {
				return nil, false, err
			}
		}
		return batch, false, nil
	}

	var single ProductInput
	if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
		return nil, false, e.Validationf("request body is not valid JSON")
	}
	if err := single.Validate(); err != nil {
		return nil, false, err
	}
	return []ProductInput{single}, true, nil
}

// UpdateInput carries the partial field set for a product update. Only
// non-nil fields are applied; a nil Inventory leaves inventory untouched
// while a present (possibly empty) list replaces it wholesale.
type UpdateInput struct {
	Name      *string           `json:"name"`
	Brand     *string           `json:"brand"`
	Price     *decimal.Decimal  `json:"price"`
	Image     *string           `json:"image"`
	Inventory *[]InventoryInput `json:"inventory"`
}

// HasFields reports whether any scalar product field is present.
func (u *UpdateInput) HasFields() bool {
	return u.Name != nil || u.Brand != nil || u.Price != nil || u.Image != nil
}

// Validate checks the fields that are present.
func (u *UpdateInput) Validate() error {
	if !u.HasFields() && u.Inventory == nil {
		return e.Validationf("no updatable fields in request")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return e.ErrNameRequired
	}
	if u.Brand != nil && strings.TrimSpace(*u.Brand) == "" {
		return e.ErrBrandRequired
	}
	if u.Price != nil && u.Price.IsNegative() {
		return e.ErrPriceNegative
	}
	return nil
}

// ParseUpdateRequest parses and validates an update payload.
func ParseUpdateRequest(body string) (*UpdateInput, error) {
	var in UpdateInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return nil, e.Validationf("request body is not valid JSON")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// PatchInput is an inventory adjustment: exactly one of Quantity
// (absolute, non-negative) or Delta (signed) must be present.
type PatchInput struct {
	Size     *decimal.Decimal `json:"size"`
	Quantity *int             `json:"quantity"`
	Delta    *int             `json:"delta"`
}

// Validate enforces the exactly-one-of rule.
func (p *PatchInput) Validate() error {
	if p.Size == nil {
		return e.Validationf("size is required")
	}
	if p.Quantity == nil && p.Delta == nil {
		return e.Validationf("either quantity or delta is required")
	}
	if p.Quantity != nil && p.Delta != nil {
		return e.Validationf("quantity and delta are mutually exclusive")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return e.Validationf("quantity must not be negative")
	}
	return nil
}

// ParsePatchRequest parses and validates an inventory patch payload.
func ParsePatchRequest(body string) (*PatchInput, error) {
	var in PatchInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return nil, e.Validationf("request body is not valid JSON")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}
