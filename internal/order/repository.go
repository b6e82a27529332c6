package order

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
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/points"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrCartGone             = errors.New("cart not found")
	ErrCartAlreadyConverted = errors.New("cart is already converted")
	ErrStatusConflict       = errors.New("order status changed concurrently")
)

// LedgerWriter is the slice of the points repository the conversion needs to
// keep its ledger writes inside the same transaction.
type LedgerWriter interface {
	ApplyDeltaInTx(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, delta int, txType points.TxType, orderID *uuid.UUID) (int, error)
}

type Repository interface {
	// CreateFromCart persists the order snapshot, the initial history row,
	// both points-ledger writes and the cart status flip in one
	// transaction. A concurrent conversion of the same cart fails with
	// ErrCartAlreadyConverted once the first one commits.
	CreateFromCart(ctx context.Context, o *Order, pointsToRedeem, pointsEarned int) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status, actor domain.ActorType, notes string) error
	SetDriver(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) error
	SetRestaurant(ctx context.Context, orderID, restaurantID uuid.UUID) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error)
}

type postgresRepository struct {
	db     *pgxpool.Pool
	ledger LedgerWriter
}

func NewRepository(db *pgxpool.Pool, ledger LedgerWriter) Repository {
	return &postgresRepository{db: db, ledger: ledger}
}

func (r *postgresRepository) CreateFromCart(ctx context.Context, o *Order, pointsToRedeem, pointsEarned int) (err error) {
	if o.ID == uuid.Nil {
		id, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = id
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback conversion after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback conversion")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit conversion: %w", commitErr)
			}
		}
	}()

	// Locking read of the cart row: the first committed conversion wins,
	// every later attempt sees the flipped status.
	var cartStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM carts WHERE id = $1 FOR UPDATE`, o.CartID).Scan(&cartStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartGone
		}
		return fmt.Errorf("repository: failed to lock cart %s: %w", o.CartID, err)
	}
	if cartStatus != "active" {
		return ErrCartAlreadyConverted
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	var addressJSON []byte
	if o.DeliveryAddressSnapshot != nil {
		addressJSON, err = json.Marshal(o.DeliveryAddressSnapshot)
		if err != nil {
			return fmt.Errorf("repository: failed to encode address snapshot: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, restaurant_id, driver_id, cart_id, status, service_type, zone,
		                    payment_method, subtotal, discount_total, delivery_fee, tax, total,
		                    points_earned, points_redeemed, delivery_address_snapshot, nit_snapshot,
		                    scheduled_for, scheduled_pickup_time, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`,
		o.ID, o.CustomerID, o.RestaurantID, o.DriverID, o.CartID, string(o.Status), string(o.ServiceType), string(o.Zone),
		o.PaymentMethod, o.Subtotal, o.DiscountTotal, o.DeliveryFee, o.Tax, o.Total,
		o.PointsEarned, o.PointsRedeemed, addressJSON, o.NITSnapshot,
		o.ScheduledFor, o.ScheduledPickupTime, o.CancellationReason, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = o.ID
		item.CreatedAt = now

		optionsJSON, marshalErr := json.Marshal(item.SelectedOptions)
		if marshalErr != nil {
			return fmt.Errorf("repository: failed to encode selected options: %w", marshalErr)
		}
		snapshotJSON, marshalErr := json.Marshal(item.ProductSnapshot)
		if marshalErr != nil {
			return fmt.Errorf("repository: failed to encode product snapshot: %w", marshalErr)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, combo_id, variant_id, product_snapshot,
			                         quantity, selected_options, unit_price, subtotal, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			item.ID, item.OrderID, item.ProductID, item.ComboID, item.VariantID, snapshotJSON,
			item.Quantity, optionsJSON, item.UnitPrice, item.Subtotal, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	if err = r.insertHistoryTx(ctx, tx, o.ID, nil, o.Status, domain.ActorSystem, "Order created"); err != nil {
		return err
	}

	if pointsToRedeem > 0 {
		if _, err = r.ledger.ApplyDeltaInTx(ctx, tx, o.CustomerID, -pointsToRedeem, points.TxRedeemed, &o.ID); err != nil {
			return fmt.Errorf("repository: failed to redeem points for order %s: %w", o.ID, err)
		}
	}
	if pointsEarned > 0 {
		if _, err = r.ledger.ApplyDeltaInTx(ctx, tx, o.CustomerID, pointsEarned, points.TxEarned, &o.ID); err != nil {
			return fmt.Errorf("repository: failed to credit points for order %s: %w", o.ID, err)
		}
	}

	cmdTag, err := tx.Exec(ctx, `UPDATE carts SET status = 'converted', updated_at = $1 WHERE id = $2 AND status = 'active'`, now, o.CartID)
	if err != nil {
		return fmt.Errorf("repository: failed to mark cart %s converted: %w", o.CartID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartAlreadyConverted
	}

	return nil
}

const orderColumns = `id, customer_id, restaurant_id, driver_id, cart_id, status, service_type, zone,
	payment_method, subtotal, discount_total, delivery_fee, tax, total,
	points_earned, points_redeemed, delivery_address_snapshot, nit_snapshot,
	scheduled_for, scheduled_pickup_time, cancellation_reason, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var addressJSON []byte
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.RestaurantID, &o.DriverID, &o.CartID, &o.Status, &o.ServiceType, &o.Zone,
		&o.PaymentMethod, &o.Subtotal, &o.DiscountTotal, &o.DeliveryFee, &o.Tax, &o.Total,
		&o.PointsEarned, &o.PointsRedeemed, &addressJSON, &o.NITSnapshot,
		&o.ScheduledFor, &o.ScheduledPickupTime, &o.CancellationReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(addressJSON) > 0 {
		var snapshot AddressSnapshot
		if err := json.Unmarshal(addressJSON, &snapshot); err != nil {
			return nil, fmt.Errorf("repository: failed to decode address snapshot for order %s: %w", o.ID, err)
		}
		o.DeliveryAddressSnapshot = &snapshot
	}

	return &o, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.itemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

func (r *postgresRepository) itemsByOrder(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, combo_id, variant_id, product_snapshot,
		       quantity, selected_options, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		var snapshotJSON, optionsJSON []byte
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ComboID, &item.VariantID, &snapshotJSON,
			&item.Quantity, &optionsJSON, &item.UnitPrice, &item.Subtotal, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}

		if len(snapshotJSON) > 0 {
			if err := json.Unmarshal(snapshotJSON, &item.ProductSnapshot); err != nil {
				return nil, fmt.Errorf("repository: failed to decode product snapshot for item %s: %w", item.ID, err)
			}
		}
		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &item.SelectedOptions); err != nil {
				return nil, fmt.Errorf("repository: failed to decode selected options for item %s: %w", item.ID, err)
			}
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return items, nil
}

func (r *postgresRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	return r.listByCustomer(ctx, customerID, `SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`)
}

func (r *postgresRepository) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	return r.listByCustomer(ctx, customerID, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1 AND status NOT IN ('completed', 'cancelled', 'refunded')
		ORDER BY created_at DESC
	`)
}

func (r *postgresRepository) listByCustomer(ctx context.Context, customerID uuid.UUID, query string) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for customer %s: %w", customerID, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for customer %s: %w", customerID, err)
	}

	for i := range orders {
		items, err := r.itemsByOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status, actor domain.ActorType, notes string) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback status update after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("Failed to rollback status update")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit status update: %w", commitErr)
			}
		}
	}()

	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	args := []any{string(to), time.Now().UTC(), orderID, string(from)}
	if to == StatusCancelled {
		query = `UPDATE orders SET status = $1, updated_at = $2, cancellation_reason = $5 WHERE id = $3 AND status = $4`
		args = append(args, notes)
	}

	cmdTag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the order is gone or someone moved it first.
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); checkErr != nil {
			return fmt.Errorf("repository: failed to check order %s: %w", orderID, checkErr)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrStatusConflict
	}

	return r.insertHistoryTx(ctx, tx, orderID, &from, to, actor, notes)
}

func (r *postgresRepository) insertHistoryTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, previous *Status, next Status, actor domain.ActorType, notes string) error {
	historyID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate history ID: %w", err)
	}

	var prev *string
	if previous != nil {
		s := string(*previous)
		prev = &s
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_history (id, order_id, previous_status, new_status, changed_by_type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, historyID, orderID, prev, string(next), string(actor), notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to insert status history for order %s: %w", orderID, err)
	}

	return nil
}

func (r *postgresRepository) SetDriver(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE orders SET driver_id = $1, updated_at = $2 WHERE id = $3`, driverID, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to set driver for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) SetRestaurant(ctx context.Context, orderID, restaurantID uuid.UUID) error {
	// A driver belongs to one restaurant, so rebinding clears the driver.
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders SET restaurant_id = $1, driver_id = NULL, updated_at = $2 WHERE id = $3
	`, restaurantID, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to set restaurant for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, previous_status, new_status, changed_by_type, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query status history for order %s: %w", orderID, err)
	}
	defer rows.Close()

	history := make([]StatusHistory, 0)
	for rows.Next() {
		var entry StatusHistory
		var prev *string
		if err := rows.Scan(&entry.ID, &entry.OrderID, &prev, &entry.NewStatus, &entry.ChangedByType, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan status history: %w", err)
		}
		if prev != nil {
			s := Status(*prev)
			entry.PreviousStatus = &s
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status history for order %s: %w", orderID, err)
	}

	return history, nil
}
