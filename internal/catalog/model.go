// Package catalog gives the core read access to priced items: products,
// product variants and combos, plus their promotion overlays.
package catalog

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
)

var (
	ErrItemNotFound    = errors.New("catalog: item not found")
	ErrVariantNotFound = errors.New("catalog: variant not found")
	// ErrVariantRequired is returned when a product with variants is
	// referenced without one: such a product never carries its own price.
	ErrVariantRequired = errors.New("catalog: product requires a variant selection")
	ErrInvalidItemRef  = errors.New("catalog: item reference must name exactly one of product or combo")
)

type Product struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	HasVariants bool      `db:"has_variants"`
	Active      bool      `db:"is_active"`
	pricing.PriceSet
}

func (p Product) Prices() pricing.PriceSet { return p.PriceSet }
func (p Product) IsActive() bool           { return p.Active }

type Variant struct {
	ID        uuid.UUID `db:"id"`
	ProductID uuid.UUID `db:"product_id"`
	Name      string    `db:"name"`
	Active    bool      `db:"is_active"`
	pricing.PriceSet
}

func (v Variant) Prices() pricing.PriceSet { return v.PriceSet }
func (v Variant) IsActive() bool           { return v.Active }

type Combo struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Active      bool      `db:"is_active"`
	pricing.PriceSet
}

func (c Combo) Prices() pricing.PriceSet { return c.PriceSet }
func (c Combo) IsActive() bool           { return c.Active }

// ItemRef is the tagged union referencing a priced item: exactly one of
// product or combo, with an optional variant under a product.
type ItemRef struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	ComboID   *uuid.UUID `json:"combo_id,omitempty"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
}

func (r ItemRef) Validate() error {
	if (r.ProductID == nil) == (r.ComboID == nil) {
		return ErrInvalidItemRef
	}
	if r.ComboID != nil && r.VariantID != nil {
		return ErrInvalidItemRef
	}
	return nil
}

// Resolved is an ItemRef dereferenced once at the boundary: the concrete
// Priceable plus display data and the item's promotions.
type Resolved struct {
	Item        pricing.Priceable
	Name        string
	Description string
	Promotions  []pricing.Promotion
}

func (r Resolved) Active() bool {
	return r.Item != nil && r.Item.IsActive()
}
