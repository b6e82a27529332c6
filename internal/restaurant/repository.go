package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	// ListDeliveryCandidates returns delivery-active restaurants with a
	// usable parsed geofence.
	ListDeliveryCandidates(ctx context.Context) ([]Restaurant, error)
	ListPickupActive(ctx context.Context) ([]Restaurant, error)
	GetDriver(ctx context.Context, id uuid.UUID) (*Driver, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const restaurantColumns = `id, name, address, phone, latitude, longitude, zone,
	delivery_active, pickup_active, minimum_order_amount, geofence_kml`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`

	var rest Restaurant
	if err := r.db.GetContext(ctx, &rest, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("repository: failed to select restaurant %s: %w", id, err)
	}

	parseGeofence(&rest)
	return &rest, nil
}

func (r *postgresRepository) ListDeliveryCandidates(ctx context.Context) ([]Restaurant, error) {
	query := `
		SELECT ` + restaurantColumns + `
		FROM restaurants
		WHERE delivery_active = true AND geofence_kml <> ''
	`

	var rests []Restaurant
	if err := r.db.SelectContext(ctx, &rests, query); err != nil {
		return nil, fmt.Errorf("repository: failed to select delivery candidates: %w", err)
	}

	candidates := rests[:0]
	for i := range rests {
		parseGeofence(&rests[i])
		if len(rests[i].Geofence) >= 3 {
			candidates = append(candidates, rests[i])
		}
	}

	return candidates, nil
}

func (r *postgresRepository) ListPickupActive(ctx context.Context) ([]Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE pickup_active = true`

	var rests []Restaurant
	if err := r.db.SelectContext(ctx, &rests, query); err != nil {
		return nil, fmt.Errorf("repository: failed to select pickup restaurants: %w", err)
	}

	for i := range rests {
		parseGeofence(&rests[i])
	}

	return rests, nil
}

func (r *postgresRepository) GetDriver(ctx context.Context, id uuid.UUID) (*Driver, error) {
	query := `SELECT id, restaurant_id, name, phone, is_active FROM drivers WHERE id = $1`

	var driver Driver
	if err := r.db.GetContext(ctx, &driver, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("repository: failed to select driver %s: %w", id, err)
	}

	return &driver, nil
}

// parseGeofence fills Geofence from the stored KML text. Polygons are taken
// as given, no repair; unparseable text just leaves the geofence empty.
func parseGeofence(rest *Restaurant) {
	if rest.GeofenceKML == "" {
		return
	}

	ring, err := geo.ParseKMLCoordinates(rest.GeofenceKML)
	if err != nil {
		log.Warn().Err(err).Stringer("restaurant_id", rest.ID).Msg("repository: skipping unparseable geofence")
		return
	}
	rest.Geofence = ring
}
