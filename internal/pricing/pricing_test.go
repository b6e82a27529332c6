package pricing_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
)

type fakeItem struct {
	prices pricing.PriceSet
	active bool
}

func (f fakeItem) Prices() pricing.PriceSet { return f.prices }
func (f fakeItem) IsActive() bool           { return f.active }

var fourPrices = pricing.PriceSet{
	PickupCapital:    50,
	DeliveryCapital:  55,
	PickupInterior:   58,
	DeliveryInterior: 60,
}

// Wednesday 2025-06-11 13:00 local.
var noon = time.Date(2025, 6, 11, 13, 0, 0, 0, time.Local)

func TestPriceSet_For(t *testing.T) {
	tests := []struct {
		name string
		st   domain.ServiceType
		zone domain.Zone
		want float64
	}{
		{"pickup_capital", domain.ServicePickup, domain.ZoneCapital, 50},
		{"delivery_capital", domain.ServiceDelivery, domain.ZoneCapital, 55},
		{"pickup_interior", domain.ServicePickup, domain.ZoneInterior, 58},
		{"delivery_interior", domain.ServiceDelivery, domain.ZoneInterior, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fourPrices.For(tt.st, tt.zone))
		})
	}
}

func TestResolve_NoPromotion(t *testing.T) {
	quote, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, nil, domain.ServiceDelivery, domain.ZoneInterior, noon)
	require.NoError(t, err)
	assert.Equal(t, 60.0, quote.UnitPrice)
	assert.Equal(t, 60.0, quote.BasePrice)
	assert.Nil(t, quote.Promotion)
}

func TestResolve_InactiveItem(t *testing.T) {
	_, err := pricing.Resolve(fakeItem{prices: fourPrices, active: false}, nil, domain.ServicePickup, domain.ZoneCapital, noon)
	assert.ErrorIs(t, err, pricing.ErrInactiveItem)
}

func TestResolve_PercentPromotion(t *testing.T) {
	promo := pricing.Promotion{
		ID:              uuid.Must(uuid.NewV4()),
		Kind:            pricing.PromotionPercent,
		DiscountPercent: 10,
		Active:          true,
	}

	quote, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, []pricing.Promotion{promo}, domain.ServicePickup, domain.ZoneCapital, noon)
	require.NoError(t, err)
	assert.Equal(t, 45.0, quote.UnitPrice)
	assert.Equal(t, 50.0, quote.BasePrice)
	require.NotNil(t, quote.Promotion)
	assert.Equal(t, promo.ID, quote.Promotion.ID)
}

func TestResolve_SpecialPricesFollowColumnSelection(t *testing.T) {
	promo := pricing.Promotion{
		ID:   uuid.Must(uuid.NewV4()),
		Kind: pricing.PromotionSpecial,
		SpecialPrices: &pricing.PriceSet{
			PickupCapital:    39,
			DeliveryCapital:  42,
			PickupInterior:   44,
			DeliveryInterior: 47,
		},
		Active: true,
	}

	quote, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, []pricing.Promotion{promo}, domain.ServiceDelivery, domain.ZoneInterior, noon)
	require.NoError(t, err)
	assert.Equal(t, 47.0, quote.UnitPrice)
}

func TestResolve_LowestSortOrderWins(t *testing.T) {
	first := pricing.Promotion{
		ID:              uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111")),
		Kind:            pricing.PromotionPercent,
		DiscountPercent: 20,
		SortOrder:       1,
		Active:          true,
	}
	second := pricing.Promotion{
		ID:              uuid.Must(uuid.FromString("22222222-2222-2222-2222-222222222222")),
		Kind:            pricing.PromotionPercent,
		DiscountPercent: 50,
		SortOrder:       2,
		Active:          true,
	}

	quote, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, []pricing.Promotion{second, first}, domain.ServicePickup, domain.ZoneCapital, noon)
	require.NoError(t, err)
	assert.Equal(t, 40.0, quote.UnitPrice)
	assert.Equal(t, first.ID, quote.Promotion.ID)
}

func TestResolve_SortOrderTieBrokenByID(t *testing.T) {
	a := pricing.Promotion{
		ID:              uuid.Must(uuid.FromString("11111111-1111-1111-1111-111111111111")),
		Kind:            pricing.PromotionPercent,
		DiscountPercent: 20,
		SortOrder:       5,
		Active:          true,
	}
	b := pricing.Promotion{
		ID:              uuid.Must(uuid.FromString("22222222-2222-2222-2222-222222222222")),
		Kind:            pricing.PromotionPercent,
		DiscountPercent: 50,
		SortOrder:       5,
		Active:          true,
	}

	// Same winner regardless of input order.
	q1, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, []pricing.Promotion{a, b}, domain.ServicePickup, domain.ZoneCapital, noon)
	require.NoError(t, err)
	q2, err := pricing.Resolve(fakeItem{prices: fourPrices, active: true}, []pricing.Promotion{b, a}, domain.ServicePickup, domain.ZoneCapital, noon)
	require.NoError(t, err)

	assert.Equal(t, a.ID, q1.Promotion.ID)
	assert.Equal(t, a.ID, q2.Promotion.ID)
}

func TestPromotion_AppliesAt(t *testing.T) {
	yesterday := noon.Add(-24 * time.Hour)
	tomorrow := noon.Add(24 * time.Hour)

	tests := []struct {
		name  string
		promo pricing.Promotion
		want  bool
	}{
		{
			name:  "inactive_never_applies",
			promo: pricing.Promotion{Active: false},
			want:  false,
		},
		{
			name:  "inside_date_range",
			promo: pricing.Promotion{Active: true, StartsAt: &yesterday, EndsAt: &tomorrow},
			want:  true,
		},
		{
			name:  "before_start",
			promo: pricing.Promotion{Active: true, StartsAt: &tomorrow},
			want:  false,
		},
		{
			name:  "after_end",
			promo: pricing.Promotion{Active: true, EndsAt: &yesterday},
			want:  false,
		},
		{
			name:  "matching_weekday",
			promo: pricing.Promotion{Active: true, Weekdays: []time.Weekday{time.Wednesday}},
			want:  true,
		},
		{
			name:  "wrong_weekday",
			promo: pricing.Promotion{Active: true, Weekdays: []time.Weekday{time.Monday, time.Friday}},
			want:  false,
		},
		{
			name:  "inside_daily_window",
			promo: pricing.Promotion{Active: true, DailyFrom: "12:00", DailyUntil: "15:00"},
			want:  true,
		},
		{
			name:  "outside_daily_window",
			promo: pricing.Promotion{Active: true, DailyFrom: "18:00", DailyUntil: "21:00"},
			want:  false,
		},
		{
			name:  "overnight_window_covers_afternoon_no",
			promo: pricing.Promotion{Active: true, DailyFrom: "22:00", DailyUntil: "02:00"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.AppliesAt(noon))
		})
	}
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 45.0, pricing.RoundCents(45.000000001))
	assert.Equal(t, 45.01, pricing.RoundCents(45.005))
	assert.Equal(t, 44.99, pricing.RoundCents(44.994))
}
