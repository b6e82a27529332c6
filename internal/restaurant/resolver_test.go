package restaurant_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
)

type mockRepository struct {
	listDeliveryFunc func(ctx context.Context) ([]restaurant.Restaurant, error)
	listPickupFunc   func(ctx context.Context) ([]restaurant.Restaurant, error)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error) {
	return nil, restaurant.ErrRestaurantNotFound
}

func (m *mockRepository) ListDeliveryCandidates(ctx context.Context) ([]restaurant.Restaurant, error) {
	return m.listDeliveryFunc(ctx)
}

func (m *mockRepository) ListPickupActive(ctx context.Context) ([]restaurant.Restaurant, error) {
	return m.listPickupFunc(ctx)
}

func (m *mockRepository) GetDriver(ctx context.Context, id uuid.UUID) (*restaurant.Driver, error) {
	return nil, restaurant.ErrDriverNotFound
}

// square returns a ring of side 2*half degrees centered on (lat, lng).
func square(lat, lng, half float64) []geo.Point {
	return []geo.Point{
		{Lat: lat - half, Lng: lng - half},
		{Lat: lat - half, Lng: lng + half},
		{Lat: lat + half, Lng: lng + half},
		{Lat: lat + half, Lng: lng - half},
	}
}

func testRestaurant(name string, lat, lng float64, zone domain.Zone, ring []geo.Point) restaurant.Restaurant {
	return restaurant.Restaurant{
		ID:             uuid.Must(uuid.NewV4()),
		Name:           name,
		Latitude:       lat,
		Longitude:      lng,
		Zone:           zone,
		DeliveryActive: true,
		PickupActive:   true,
		Geofence:       ring,
	}
}

func TestResolver_ResolveZoneAndRestaurant(t *testing.T) {
	capital := testRestaurant("Zona 1", 14.6349, -90.5069, domain.ZoneCapital, square(14.6349, -90.5069, 0.01))

	t.Run("point_inside_polygon", func(t *testing.T) {
		repo := &mockRepository{
			listDeliveryFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
				return []restaurant.Restaurant{capital}, nil
			},
		}
		resolver := restaurant.NewResolver(repo, 3)

		res, err := resolver.ResolveZoneAndRestaurant(context.Background(), 14.6350, -90.5070)
		require.NoError(t, err)
		assert.Equal(t, capital.ID, res.Restaurant.ID)
		assert.Equal(t, domain.ZoneCapital, res.Zone)
	})

	t.Run("overlapping_polygons_nearest_center_wins", func(t *testing.T) {
		near := testRestaurant("Near", 14.6350, -90.5070, domain.ZoneCapital, square(14.6350, -90.5070, 0.05))
		far := testRestaurant("Far", 14.6800, -90.5500, domain.ZoneInterior, square(14.6800, -90.5500, 0.20))

		repo := &mockRepository{
			listDeliveryFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
				return []restaurant.Restaurant{far, near}, nil
			},
		}
		resolver := restaurant.NewResolver(repo, 3)

		res, err := resolver.ResolveZoneAndRestaurant(context.Background(), 14.6350, -90.5070)
		require.NoError(t, err)
		assert.Equal(t, near.ID, res.Restaurant.ID)
		assert.Equal(t, domain.ZoneCapital, res.Zone, "zone comes from the winning restaurant's configuration")
	})

	t.Run("no_polygon_contains_point", func(t *testing.T) {
		repo := &mockRepository{
			listDeliveryFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
				return []restaurant.Restaurant{capital}, nil
			},
		}
		resolver := restaurant.NewResolver(repo, 3)

		_, err := resolver.ResolveZoneAndRestaurant(context.Background(), 15.5000, -91.0000)
		require.Error(t, err)
		assert.Equal(t, restaurant.CodeOutsideDeliveryZone, apperr.CodeOf(err))
	})

	t.Run("degenerate_polygon_never_matches", func(t *testing.T) {
		broken := testRestaurant("Broken", 14.6350, -90.5070, domain.ZoneCapital, square(14.6350, -90.5070, 0.01)[:2])
		repo := &mockRepository{
			listDeliveryFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
				return []restaurant.Restaurant{broken}, nil
			},
		}
		resolver := restaurant.NewResolver(repo, 3)

		_, err := resolver.ResolveZoneAndRestaurant(context.Background(), 14.6350, -90.5070)
		require.Error(t, err)
		assert.Equal(t, restaurant.CodeOutsideDeliveryZone, apperr.CodeOf(err))
	})

	t.Run("out_of_range_coordinates_rejected_before_geometry", func(t *testing.T) {
		repo := &mockRepository{
			listDeliveryFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
				t.Fatal("geometry must not run for invalid input")
				return nil, nil
			},
		}
		resolver := restaurant.NewResolver(repo, 3)

		_, err := resolver.ResolveZoneAndRestaurant(context.Background(), 95.0, -90.5070)
		require.Error(t, err)
		assert.Equal(t, restaurant.CodeInvalidCoordinates, apperr.CodeOf(err))
		appErr := apperr.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
	})
}

func TestResolver_NearestPickup(t *testing.T) {
	a := testRestaurant("A", 14.64, -90.51, domain.ZoneCapital, nil)
	b := testRestaurant("B", 14.70, -90.55, domain.ZoneCapital, nil)
	c := testRestaurant("C", 14.60, -90.50, domain.ZoneInterior, nil)
	d := testRestaurant("D", 15.00, -91.00, domain.ZoneInterior, nil)

	repo := &mockRepository{
		listPickupFunc: func(ctx context.Context) ([]restaurant.Restaurant, error) {
			return []restaurant.Restaurant{a, b, c, d}, nil
		},
	}
	resolver := restaurant.NewResolver(repo, 3)

	suggestions, err := resolver.NearestPickup(context.Background(), 14.6349, -90.5069)
	require.NoError(t, err)
	require.Len(t, suggestions, 3, "capped at the configured limit")

	for i := 1; i < len(suggestions); i++ {
		assert.LessOrEqual(t, suggestions[i-1].DistanceKm, suggestions[i].DistanceKm,
			"suggestions must be sorted ascending by distance")
	}
	assert.Equal(t, a.ID, suggestions[0].Restaurant.ID)
}
