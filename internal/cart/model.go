// Package cart owns the customer's single mutable active cart.
package cart

import (
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusConverted Status = "converted"
	StatusAbandoned Status = "abandoned"
)

// MergePolicy controls whether adding an already-present
// (product, variant, options) tuple merges quantities or opens a new line.
type MergePolicy string

const (
	MergeQuantities MergePolicy = "merge"
	DuplicateLines  MergePolicy = "duplicate"
)

// SelectedOption is a snapshot of a chosen customization, frozen with its
// price at selection time.
type SelectedOption struct {
	SectionID uuid.UUID `json:"section_id"`
	OptionID  uuid.UUID `json:"option_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
}

type Item struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	CartID          uuid.UUID        `json:"cart_id" db:"cart_id"`
	ProductID       *uuid.UUID       `json:"product_id,omitempty" db:"product_id"`
	ComboID         *uuid.UUID       `json:"combo_id,omitempty" db:"combo_id"`
	VariantID       *uuid.UUID       `json:"variant_id,omitempty" db:"variant_id"`
	Name            string           `json:"name" db:"name"`
	Quantity        int              `json:"quantity" db:"quantity"`
	SelectedOptions []SelectedOption `json:"selected_options" db:"-"`
	UnitPrice       float64          `json:"unit_price" db:"unit_price"`
	Subtotal        float64          `json:"subtotal" db:"subtotal"`
	PromotionID     *uuid.UUID       `json:"promotion_id,omitempty" db:"promotion_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// RecomputeSubtotal applies the line formula: unit price times quantity plus
// the selected option prices.
func (it *Item) RecomputeSubtotal() {
	optionsTotal := 0.0
	for _, opt := range it.SelectedOptions {
		optionsTotal += opt.Price
	}
	it.Subtotal = pricing.RoundCents(it.UnitPrice*float64(it.Quantity) + optionsTotal)
}

// SameTuple reports whether other references the same product/combo, variant
// and normalized option set, for the quantity-merge policy.
func (it Item) SameTuple(other Item) bool {
	if !uuidPtrEqual(it.ProductID, other.ProductID) ||
		!uuidPtrEqual(it.ComboID, other.ComboID) ||
		!uuidPtrEqual(it.VariantID, other.VariantID) {
		return false
	}
	return optionsFingerprint(it.SelectedOptions) == optionsFingerprint(other.SelectedOptions)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optionsFingerprint(opts []SelectedOption) string {
	keys := make([]string, 0, len(opts))
	for _, opt := range opts {
		keys = append(keys, opt.SectionID.String()+":"+opt.OptionID.String())
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

type Cart struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	CustomerID        uuid.UUID          `json:"customer_id" db:"customer_id"`
	RestaurantID      *uuid.UUID         `json:"restaurant_id,omitempty" db:"restaurant_id"`
	ServiceType       domain.ServiceType `json:"service_type" db:"service_type"`
	Zone              domain.Zone        `json:"zone" db:"zone"`
	DeliveryAddressID *uuid.UUID         `json:"delivery_address_id,omitempty" db:"delivery_address_id"`
	Status            Status             `json:"status" db:"status"`
	Items             []Item             `json:"items" db:"-"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

func (c *Cart) Subtotal() float64 {
	total := 0.0
	for i := range c.Items {
		total += c.Items[i].Subtotal
	}
	return pricing.RoundCents(total)
}

type ValidationError struct {
	Code    string     `json:"code"`
	ItemID  *uuid.UUID `json:"item_id,omitempty"`
	Message string     `json:"message"`
}

type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}
