package restaurant

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
)

// Error codes surfaced by the resolver.
const (
	CodeInvalidCoordinates  = "INVALID_COORDINATES"
	CodeOutsideDeliveryZone = "ADDRESS_OUTSIDE_DELIVERY_ZONE"
)

// Resolution is a successful geofence match. Zone is copied from the winning
// restaurant's configuration, not derived from the coordinates.
type Resolution struct {
	Restaurant Restaurant  `json:"restaurant"`
	Zone       domain.Zone `json:"zone"`
}

// PickupSuggestion is a pickup-capable restaurant ranked by distance, offered
// when no delivery polygon contains the point.
type PickupSuggestion struct {
	Restaurant Restaurant `json:"restaurant"`
	DistanceKm float64    `json:"distance_km"`
}

// Resolver decides which restaurant's delivery polygon contains a point.
type Resolver struct {
	repo         Repository
	nearestLimit int
}

func NewResolver(repo Repository, nearestLimit int) *Resolver {
	if nearestLimit <= 0 {
		nearestLimit = 3
	}
	return &Resolver{repo: repo, nearestLimit: nearestLimit}
}

// ResolveZoneAndRestaurant runs the containment test against every delivery
// candidate. When several polygons contain the point (legitimate at shared
// boundaries) the restaurant whose center is closest by great-circle distance
// wins. apperr with CodeOutsideDeliveryZone is returned when nothing matches.
func (r *Resolver) ResolveZoneAndRestaurant(ctx context.Context, lat, lng float64) (*Resolution, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, apperr.Validation(CodeInvalidCoordinates, fmt.Sprintf("coordinates (%f, %f) are out of range", lat, lng))
	}

	candidates, err := r.repo.ListDeliveryCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: failed to list delivery candidates: %w", err)
	}

	point := geo.Point{Lat: lat, Lng: lng}

	var winner *Restaurant
	winnerDist := 0.0
	for i := range candidates {
		if !geo.PointInPolygon(point, candidates[i].Geofence) {
			continue
		}

		dist := geo.Haversine(candidates[i].Center(), point)
		if winner == nil || dist < winnerDist {
			winner = &candidates[i]
			winnerDist = dist
		}
	}

	if winner == nil {
		return nil, apperr.Precondition(CodeOutsideDeliveryZone, "no restaurant delivers to this location")
	}

	log.Debug().
		Stringer("restaurant_id", winner.ID).
		Str("zone", winner.Zone.String()).
		Float64("distance_km", winnerDist).
		Msg("resolver: point resolved to restaurant")

	return &Resolution{Restaurant: *winner, Zone: winner.Zone}, nil
}

// NearestPickup ranks pickup-active restaurants by distance, strictly
// ascending, capped at the configured limit. It suggests, never selects.
func (r *Resolver) NearestPickup(ctx context.Context, lat, lng float64) ([]PickupSuggestion, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, apperr.Validation(CodeInvalidCoordinates, fmt.Sprintf("coordinates (%f, %f) are out of range", lat, lng))
	}

	rests, err := r.repo.ListPickupActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolver: failed to list pickup restaurants: %w", err)
	}

	point := geo.Point{Lat: lat, Lng: lng}

	suggestions := make([]PickupSuggestion, 0, len(rests))
	for i := range rests {
		suggestions = append(suggestions, PickupSuggestion{
			Restaurant: rests[i],
			DistanceKm: geo.Haversine(rests[i].Center(), point),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].DistanceKm < suggestions[j].DistanceKm
	})

	if len(suggestions) > r.nearestLimit {
		suggestions = suggestions[:r.nearestLimit]
	}

	return suggestions, nil
}
