package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoActiveCart = errors.New("no active cart for customer")
	ErrItemNotFound = errors.New("cart item not found")
)

type Repository interface {
	GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error
	// GetItemWithOwner returns the item plus the customer owning its cart,
	// so the service can distinguish forbidden from not-found.
	GetItemWithOwner(ctx context.Context, itemID uuid.UUID) (*Item, uuid.UUID, error)
	// SaveRepriced persists the cart header and every item in one
	// transaction: a zone or service-type switch must never leave a
	// partially re-priced cart behind.
	SaveRepriced(ctx context.Context, c *Cart) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	query := `
		SELECT id, customer_id, restaurant_id, service_type, zone, delivery_address_id, status, created_at, updated_at
		FROM carts
		WHERE customer_id = $1 AND status = 'active'
	`

	var c Cart
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.ID, &c.CustomerID, &c.RestaurantID, &c.ServiceType, &c.Zone,
		&c.DeliveryAddressID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveCart
		}
		return nil, fmt.Errorf("repository: failed to select active cart for customer %s: %w", customerID, err)
	}

	items, err := r.itemsByCart(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items

	return &c, nil
}

func (r *postgresRepository) itemsByCart(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	query := `
		SELECT id, cart_id, product_id, combo_id, variant_id, name, quantity,
		       selected_options, unit_price, subtotal, promotion_id, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}

	return items, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	var optionsJSON []byte
	err := row.Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.ComboID, &item.VariantID,
		&item.Name, &item.Quantity, &optionsJSON, &item.UnitPrice, &item.Subtotal,
		&item.PromotionID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
	}

	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &item.SelectedOptions); err != nil {
			return nil, fmt.Errorf("repository: failed to decode selected options for item %s: %w", item.ID, err)
		}
	}

	return &item, nil
}

func (r *postgresRepository) Create(ctx context.Context, c *Cart) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate cart ID: %w", err)
		}
		c.ID = id
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO carts (id, customer_id, restaurant_id, service_type, zone, delivery_address_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.CustomerID, c.RestaurantID, string(c.ServiceType), string(c.Zone),
		c.DeliveryAddressID, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert cart: %w", err)
	}

	return nil
}

func (r *postgresRepository) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
		}
		item.ID = id
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	optionsJSON, err := json.Marshal(item.SelectedOptions)
	if err != nil {
		return fmt.Errorf("repository: failed to encode selected options: %w", err)
	}

	query := `
		INSERT INTO cart_items (id, cart_id, product_id, combo_id, variant_id, name, quantity,
		                        selected_options, unit_price, subtotal, promotion_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.Exec(ctx, query,
		item.ID, item.CartID, item.ProductID, item.ComboID, item.VariantID, item.Name,
		item.Quantity, optionsJSON, item.UnitPrice, item.Subtotal, item.PromotionID,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert cart item: %w", err)
	}

	return nil
}

func (r *postgresRepository) UpdateItem(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()

	optionsJSON, err := json.Marshal(item.SelectedOptions)
	if err != nil {
		return fmt.Errorf("repository: failed to encode selected options: %w", err)
	}

	query := `
		UPDATE cart_items
		SET quantity = $1, selected_options = $2, unit_price = $3, subtotal = $4, promotion_id = $5, updated_at = $6
		WHERE id = $7
	`
	cmdTag, err := r.db.Exec(ctx, query,
		item.Quantity, optionsJSON, item.UnitPrice, item.Subtotal, item.PromotionID,
		item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart %s: %w", cartID, err)
	}
	return nil
}

func (r *postgresRepository) GetItemWithOwner(ctx context.Context, itemID uuid.UUID) (*Item, uuid.UUID, error) {
	query := `
		SELECT i.id, i.cart_id, i.product_id, i.combo_id, i.variant_id, i.name, i.quantity,
		       i.selected_options, i.unit_price, i.subtotal, i.promotion_id, i.created_at, i.updated_at,
		       c.customer_id
		FROM cart_items i
		JOIN carts c ON c.id = i.cart_id
		WHERE i.id = $1
	`

	var item Item
	var optionsJSON []byte
	var ownerID uuid.UUID
	err := r.db.QueryRow(ctx, query, itemID).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.ComboID, &item.VariantID,
		&item.Name, &item.Quantity, &optionsJSON, &item.UnitPrice, &item.Subtotal,
		&item.PromotionID, &item.CreatedAt, &item.UpdatedAt, &ownerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uuid.Nil, ErrItemNotFound
		}
		return nil, uuid.Nil, fmt.Errorf("repository: failed to select cart item %s: %w", itemID, err)
	}

	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &item.SelectedOptions); err != nil {
			return nil, uuid.Nil, fmt.Errorf("repository: failed to decode selected options for item %s: %w", item.ID, err)
		}
	}

	return &item, ownerID, nil
}

func (r *postgresRepository) SaveRepriced(ctx context.Context, c *Cart) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("cart_id", c.ID).Msg("Failed to rollback reprice transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("cart_id", c.ID).Msg("Failed to rollback reprice transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit reprice transaction: %w", commitErr)
			}
		}
	}()

	c.UpdatedAt = time.Now().UTC()

	headerQuery := `
		UPDATE carts
		SET restaurant_id = $1, service_type = $2, zone = $3, delivery_address_id = $4, updated_at = $5
		WHERE id = $6 AND status = 'active'
	`
	cmdTag, err := tx.Exec(ctx, headerQuery,
		c.RestaurantID, string(c.ServiceType), string(c.Zone), c.DeliveryAddressID, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart header %s: %w", c.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoActiveCart
	}

	itemQuery := `
		UPDATE cart_items
		SET unit_price = $1, subtotal = $2, promotion_id = $3, updated_at = $4
		WHERE id = $5
	`
	for i := range c.Items {
		item := &c.Items[i]
		item.UpdatedAt = c.UpdatedAt
		if _, err = tx.Exec(ctx, itemQuery, item.UnitPrice, item.Subtotal, item.PromotionID, item.UpdatedAt, item.ID); err != nil {
			return fmt.Errorf("repository: failed to reprice cart item %s: %w", item.ID, err)
		}
	}

	return nil
}
