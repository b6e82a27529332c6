// Package restaurant holds the restaurant/driver registry read side and the
// geofence resolver that decides which restaurant serves a geographic point.
package restaurant

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/geo"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrDriverNotFound     = errors.New("driver not found")
)

type Restaurant struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	Name               string      `json:"name" db:"name"`
	Address            string      `json:"address" db:"address"`
	Phone              string      `json:"phone" db:"phone"`
	Latitude           float64     `json:"latitude" db:"latitude"`
	Longitude          float64     `json:"longitude" db:"longitude"`
	Zone               domain.Zone `json:"zone" db:"zone"`
	DeliveryActive     bool        `json:"delivery_active" db:"delivery_active"`
	PickupActive       bool        `json:"pickup_active" db:"pickup_active"`
	MinimumOrderAmount float64     `json:"minimum_order_amount" db:"minimum_order_amount"`
	// GeofenceKML is the raw KML <coordinates> text as uploaded.
	GeofenceKML string `json:"-" db:"geofence_kml"`
	// Geofence is the parsed (lng,lat) ring; empty when the raw text is
	// absent or unparseable.
	Geofence []geo.Point `json:"-" db:"-"`
}

func (r Restaurant) Center() geo.Point {
	return geo.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// Supports reports whether the restaurant currently serves st.
func (r Restaurant) Supports(st domain.ServiceType) bool {
	if st == domain.ServiceDelivery {
		return r.DeliveryActive
	}
	return r.PickupActive
}

type Driver struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id" db:"restaurant_id"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Active       bool      `json:"active" db:"is_active"`
}
