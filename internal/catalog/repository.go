package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
)

type Repository interface {
	// Resolve dereferences ref into a concrete priced item with its
	// promotions loaded.
	Resolve(ctx context.Context, ref ItemRef) (*Resolved, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const priceColumns = "price_pickup_capital, price_delivery_capital, price_pickup_interior, price_delivery_interior"

func (r *postgresRepository) Resolve(ctx context.Context, ref ItemRef) (*Resolved, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	if ref.ComboID != nil {
		return r.resolveCombo(ctx, *ref.ComboID)
	}
	return r.resolveProduct(ctx, *ref.ProductID, ref.VariantID)
}

func (r *postgresRepository) resolveCombo(ctx context.Context, comboID uuid.UUID) (*Resolved, error) {
	query := `
		SELECT id, name, description, is_active, ` + priceColumns + `
		FROM combos
		WHERE id = $1
	`

	var combo Combo
	if err := r.db.GetContext(ctx, &combo, query, comboID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select combo %s: %w", comboID, err)
	}

	promos, err := r.promotionsFor(ctx, ItemRef{ComboID: &comboID})
	if err != nil {
		return nil, err
	}

	return &Resolved{Item: combo, Name: combo.Name, Description: combo.Description, Promotions: promos}, nil
}

func (r *postgresRepository) resolveProduct(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Resolved, error) {
	query := `
		SELECT id, name, description, has_variants, is_active, ` + priceColumns + `
		FROM products
		WHERE id = $1
	`

	var product Product
	if err := r.db.GetContext(ctx, &product, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", productID, err)
	}

	if variantID == nil {
		if product.HasVariants {
			return nil, ErrVariantRequired
		}

		promos, err := r.promotionsFor(ctx, ItemRef{ProductID: &productID})
		if err != nil {
			return nil, err
		}
		return &Resolved{Item: product, Name: product.Name, Description: product.Description, Promotions: promos}, nil
	}

	variantQuery := `
		SELECT id, product_id, name, is_active, ` + priceColumns + `
		FROM product_variants
		WHERE id = $1 AND product_id = $2
	`

	var variant Variant
	if err := r.db.GetContext(ctx, &variant, variantQuery, *variantID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("repository: failed to select variant %s: %w", *variantID, err)
	}

	// A variant is only sellable while its parent product is.
	if !product.Active {
		variant.Active = false
	}

	promos, err := r.promotionsFor(ctx, ItemRef{ProductID: &productID, VariantID: variantID})
	if err != nil {
		return nil, err
	}

	name := product.Name
	if variant.Name != "" {
		name = product.Name + " " + variant.Name
	}

	return &Resolved{Item: variant, Name: name, Description: product.Description, Promotions: promos}, nil
}

type promotionRow struct {
	ID                    uuid.UUID       `db:"id"`
	Name                  string          `db:"name"`
	Kind                  string          `db:"kind"`
	DiscountPercent       sql.NullFloat64 `db:"discount_percent"`
	SpecialPickupCapital  sql.NullFloat64 `db:"special_pickup_capital"`
	SpecialDeliveryCap    sql.NullFloat64 `db:"special_delivery_capital"`
	SpecialPickupInterior sql.NullFloat64 `db:"special_pickup_interior"`
	SpecialDeliveryInt    sql.NullFloat64 `db:"special_delivery_interior"`
	StartsAt              *time.Time      `db:"starts_at"`
	EndsAt                *time.Time      `db:"ends_at"`
	DailyFrom             sql.NullString  `db:"daily_from"`
	DailyUntil            sql.NullString  `db:"daily_until"`
	Weekdays              sql.NullString  `db:"weekdays"`
	SortOrder             int             `db:"sort_order"`
	IsActive              bool            `db:"is_active"`
}

func (r *postgresRepository) promotionsFor(ctx context.Context, ref ItemRef) ([]pricing.Promotion, error) {
	query := `
		SELECT p.id, p.name, p.kind, p.discount_percent,
		       p.special_pickup_capital, p.special_delivery_capital,
		       p.special_pickup_interior, p.special_delivery_interior,
		       p.starts_at, p.ends_at, p.daily_from, p.daily_until,
		       p.weekdays, p.sort_order, p.is_active
		FROM promotions p
		JOIN promotion_items pi ON pi.promotion_id = p.id
		WHERE pi.product_id IS NOT DISTINCT FROM $1
		  AND pi.combo_id IS NOT DISTINCT FROM $2
		  AND pi.variant_id IS NOT DISTINCT FROM $3
	`

	var rows []promotionRow
	if err := r.db.SelectContext(ctx, &rows, query, ref.ProductID, ref.ComboID, ref.VariantID); err != nil {
		return nil, fmt.Errorf("repository: failed to select promotions: %w", err)
	}

	promos := make([]pricing.Promotion, 0, len(rows))
	for _, row := range rows {
		promos = append(promos, row.toPromotion())
	}

	return promos, nil
}

func (row promotionRow) toPromotion() pricing.Promotion {
	p := pricing.Promotion{
		ID:         row.ID,
		Name:       row.Name,
		Kind:       pricing.PromotionKind(row.Kind),
		StartsAt:   row.StartsAt,
		EndsAt:     row.EndsAt,
		DailyFrom:  row.DailyFrom.String,
		DailyUntil: row.DailyUntil.String,
		SortOrder:  row.SortOrder,
		Active:     row.IsActive,
	}

	if row.DiscountPercent.Valid {
		p.DiscountPercent = row.DiscountPercent.Float64
	}
	if row.SpecialPickupCapital.Valid {
		p.SpecialPrices = &pricing.PriceSet{
			PickupCapital:    row.SpecialPickupCapital.Float64,
			DeliveryCapital:  row.SpecialDeliveryCap.Float64,
			PickupInterior:   row.SpecialPickupInterior.Float64,
			DeliveryInterior: row.SpecialDeliveryInt.Float64,
		}
	}
	if row.Weekdays.Valid && row.Weekdays.String != "" {
		p.Weekdays = parseWeekdays(row.Weekdays.String)
	}

	return p
}

// parseWeekdays reads the stored comma-separated weekday numbers (0=Sunday).
func parseWeekdays(raw string) []time.Weekday {
	parts := strings.Split(raw, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			log.Warn().Str("weekdays", raw).Msg("repository: skipping malformed weekday entry")
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}
