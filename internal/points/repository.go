package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInsufficientPoints  = errors.New("insufficient points balance")
	ErrZeroPointsMutation  = errors.New("points mutation must be non-zero")
	ErrTransactionNotFound = errors.New("points transaction not found")
)

type Repository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	ListTiers(ctx context.Context) ([]Tier, error)
	History(ctx context.Context, customerID uuid.UUID) ([]Transaction, error)
	// ApplyDelta appends one ledger row and adjusts the denormalized balance
	// in a single transaction, recomputing the tier from the new balance.
	ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int, txType TxType, orderID *uuid.UUID) (int, error)
	// ApplyDeltaInTx is the same mutation running inside a caller-owned
	// transaction, used by order conversion to keep its writes atomic.
	ApplyDeltaInTx(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, delta int, txType TxType, orderID *uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `
		SELECT id, name, nit, points, tier_id, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var c Customer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.NIT, &c.Points, &c.TierID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer %s: %w", id, err)
	}

	return &c, nil
}

func (r *postgresRepository) ListTiers(ctx context.Context) ([]Tier, error) {
	query := `SELECT id, name, min_points, multiplier FROM customer_tiers ORDER BY min_points`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query tiers: %w", err)
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.MinPoints, &t.Multiplier); err != nil {
			return nil, fmt.Errorf("repository: failed to scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating tiers: %w", err)
	}

	return tiers, nil
}

func (r *postgresRepository) History(ctx context.Context, customerID uuid.UUID) ([]Transaction, error) {
	query := `
		SELECT id, customer_id, points, type, order_id, created_at
		FROM customer_points_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query points history for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &tx.Points, &tx.Type, &tx.OrderID, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan points transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating points transactions: %w", err)
	}

	return txs, nil
}

func (r *postgresRepository) ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int, txType TxType, orderID *uuid.UUID) (balance int, err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback points transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback points transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit points transaction: %w", commitErr)
			}
		}
	}()

	balance, err = r.ApplyDeltaInTx(ctx, tx, customerID, delta, txType, orderID)
	return balance, err
}

func (r *postgresRepository) ApplyDeltaInTx(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, delta int, txType TxType, orderID *uuid.UUID) (int, error) {
	if delta == 0 {
		return 0, ErrZeroPointsMutation
	}

	// Locking read so concurrent mutations cannot double-spend.
	var current int
	err := tx.QueryRow(ctx, `SELECT points FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCustomerNotFound
		}
		return 0, fmt.Errorf("repository: failed to lock customer %s: %w", customerID, err)
	}

	newBalance := current + delta
	if newBalance < 0 {
		return 0, ErrInsufficientPoints
	}

	txID, err := uuid.NewV4()
	if err != nil {
		return 0, fmt.Errorf("repository: failed to generate transaction ID: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO customer_points_transactions (id, customer_id, points, type, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, txID, customerID, delta, string(txType), orderID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("repository: failed to insert points transaction: %w", err)
	}

	tierID, err := r.tierForBalanceInTx(ctx, tx, newBalance)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE customers SET points = $1, tier_id = $2, updated_at = $3 WHERE id = $4
	`, newBalance, tierID, time.Now().UTC(), customerID)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to update customer balance: %w", err)
	}

	return newBalance, nil
}

func (r *postgresRepository) tierForBalanceInTx(ctx context.Context, tx pgx.Tx, balance int) (*uuid.UUID, error) {
	rows, err := tx.Query(ctx, `SELECT id, name, min_points, multiplier FROM customer_tiers ORDER BY min_points`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query tiers: %w", err)
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.MinPoints, &t.Multiplier); err != nil {
			return nil, fmt.Errorf("repository: failed to scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating tiers: %w", err)
	}

	tier := TierFor(tiers, balance)
	if tier == nil {
		return nil, nil
	}
	return &tier.ID, nil
}
