// Package pricing resolves the unit price for a priced catalog item under a
// {service type, zone} pair, with an optional promotion overlay.
package pricing

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
)

var ErrInactiveItem = errors.New("pricing: item is not active")

// PriceSet is the four-column price matrix every priced item carries.
type PriceSet struct {
	PickupCapital    float64 `json:"pickup_capital" db:"price_pickup_capital"`
	DeliveryCapital  float64 `json:"delivery_capital" db:"price_delivery_capital"`
	PickupInterior   float64 `json:"pickup_interior" db:"price_pickup_interior"`
	DeliveryInterior float64 `json:"delivery_interior" db:"price_delivery_interior"`
}

// For selects one of the four columns. A strict 2x2 lookup, no interpolation.
func (ps PriceSet) For(st domain.ServiceType, zone domain.Zone) float64 {
	switch {
	case st == domain.ServicePickup && zone == domain.ZoneCapital:
		return ps.PickupCapital
	case st == domain.ServiceDelivery && zone == domain.ZoneCapital:
		return ps.DeliveryCapital
	case st == domain.ServicePickup && zone == domain.ZoneInterior:
		return ps.PickupInterior
	default:
		return ps.DeliveryInterior
	}
}

// Priceable is the capability shared by products, variants and combos.
type Priceable interface {
	Prices() PriceSet
	IsActive() bool
}

type PromotionKind string

const (
	PromotionPercent PromotionKind = "percent"
	PromotionSpecial PromotionKind = "special"
)

// Promotion overlays an item's base price inside its validity window.
type Promotion struct {
	ID              uuid.UUID
	Name            string
	Kind            PromotionKind
	DiscountPercent float64
	SpecialPrices   *PriceSet
	StartsAt        *time.Time
	EndsAt          *time.Time
	DailyFrom       string // "HH:MM", empty means no time-of-day bound
	DailyUntil      string
	Weekdays        []time.Weekday // empty means every day
	SortOrder       int
	Active          bool
}

// AppliesAt reports whether the promotion's date range, weekday set and
// time-of-day window all cover now.
func (p Promotion) AppliesAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}

	if len(p.Weekdays) > 0 {
		found := false
		for _, wd := range p.Weekdays {
			if now.Weekday() == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if p.DailyFrom != "" && p.DailyUntil != "" {
		hhmm := now.Format("15:04")
		if p.DailyFrom <= p.DailyUntil {
			if hhmm < p.DailyFrom || hhmm > p.DailyUntil {
				return false
			}
		} else {
			// Window crosses midnight.
			if hhmm < p.DailyFrom && hhmm > p.DailyUntil {
				return false
			}
		}
	}

	return true
}

// Quote is the result of a price resolution.
type Quote struct {
	UnitPrice float64
	BasePrice float64
	Promotion *Promotion
}

// Resolve prices item under {st, zone} at now, overlaying the winning
// promotion if any. When several promotions apply, the lowest sort order
// wins; ties are broken by id so the choice is stable.
func Resolve(item Priceable, promos []Promotion, st domain.ServiceType, zone domain.Zone, now time.Time) (Quote, error) {
	if !item.IsActive() {
		return Quote{}, ErrInactiveItem
	}

	base := RoundCents(item.Prices().For(st, zone))
	quote := Quote{UnitPrice: base, BasePrice: base}

	applicable := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if p.AppliesAt(now) {
			applicable = append(applicable, p)
		}
	}
	if len(applicable) == 0 {
		return quote, nil
	}

	sort.Slice(applicable, func(i, j int) bool {
		if applicable[i].SortOrder != applicable[j].SortOrder {
			return applicable[i].SortOrder < applicable[j].SortOrder
		}
		return applicable[i].ID.String() < applicable[j].ID.String()
	})

	winner := applicable[0]
	switch winner.Kind {
	case PromotionPercent:
		quote.UnitPrice = RoundCents(base * (1 - winner.DiscountPercent/100))
	case PromotionSpecial:
		if winner.SpecialPrices != nil {
			quote.UnitPrice = RoundCents(winner.SpecialPrices.For(st, zone))
		}
	}
	quote.Promotion = &winner

	return quote, nil
}

// RoundCents rounds a money amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
