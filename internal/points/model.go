// Package points owns the customer loyalty ledger: the append-only
// transaction log, the denormalized running balance, and tier derivation.
package points

import (
	"math"
	"sort"
	"time"

	"github.com/gofrs/uuid"
)

type TxType string

const (
	TxEarned   TxType = "earned"
	TxRedeemed TxType = "redeemed"
	TxExpired  TxType = "expired"
	TxAdjusted TxType = "adjusted"
)

// Transaction is one ledger row. Points are stored signed (credits positive,
// debits negative) so the balance invariant is a plain sum over the ledger.
type Transaction struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CustomerID uuid.UUID  `json:"customer_id" db:"customer_id"`
	Points     int        `json:"points" db:"points"`
	Type       TxType     `json:"type" db:"type"`
	OrderID    *uuid.UUID `json:"order_id,omitempty" db:"order_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Tier is a loyalty level with an earning multiplier. Tiers are derived from
// the balance against ordered thresholds, never manually assigned.
type Tier struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	MinPoints  int       `json:"min_points" db:"min_points"`
	Multiplier float64   `json:"multiplier" db:"multiplier"`
}

type Customer struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	NIT       string     `json:"nit" db:"nit"`
	Points    int        `json:"points" db:"points"`
	TierID    *uuid.UUID `json:"tier_id,omitempty" db:"tier_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// TierFor picks the tier with the highest threshold not exceeding balance.
// Returns nil when no tier qualifies.
func TierFor(tiers []Tier, balance int) *Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	var winner *Tier
	for i := range sorted {
		if sorted[i].MinPoints <= balance {
			winner = &sorted[i]
		}
	}
	return winner
}

// Earned computes points earned on an order total: total divided by the
// configured currency-per-point ratio, scaled by the tier multiplier. The
// result is rounded down unless the fractional remainder reaches
// roundUpThreshold.
func Earned(total, currencyPerPoint, multiplier, roundUpThreshold float64) int {
	if currencyPerPoint <= 0 || total <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 1
	}

	raw := total / currencyPerPoint * multiplier
	whole := math.Floor(raw)
	if raw-whole >= roundUpThreshold {
		whole++
	}
	return int(whole)
}
