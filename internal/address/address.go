// Package address is the read side of the customer address book, which is
// owned by an external collaborator. The core only needs coordinates and the
// fields frozen into order snapshots.
package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrAddressNotFound = errors.New("address not found")

type CustomerAddress struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CustomerID  uuid.UUID `json:"customer_id" db:"customer_id"`
	Label       string    `json:"label" db:"label"`
	AddressLine string    `json:"address_line" db:"address_line"`
	Reference   string    `json:"reference" db:"reference"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CustomerAddress, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*CustomerAddress, error) {
	query := `
		SELECT id, customer_id, label, address_line, reference, latitude, longitude
		FROM customer_addresses
		WHERE id = $1
	`

	var addr CustomerAddress
	if err := r.db.GetContext(ctx, &addr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("repository: failed to select address %s: %w", id, err)
	}

	return &addr, nil
}
