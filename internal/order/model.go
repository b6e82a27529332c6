// Package order owns the immutable order snapshot, its status state machine
// and the transactional cart-to-order conversion.
package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

// AddressSnapshot is a frozen copy of the delivery address, not a live FK:
// the customer may edit or delete the address later.
type AddressSnapshot struct {
	Label       string  `json:"label"`
	AddressLine string  `json:"address_line"`
	Reference   string  `json:"reference"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// ProductSnapshot freezes display data at order time; the catalog row may
// later change or disappear.
type ProductSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Item struct {
	ID              uuid.UUID             `json:"id" db:"id"`
	OrderID         uuid.UUID             `json:"order_id" db:"order_id"`
	ProductID       *uuid.UUID            `json:"product_id,omitempty" db:"product_id"`
	ComboID         *uuid.UUID            `json:"combo_id,omitempty" db:"combo_id"`
	VariantID       *uuid.UUID            `json:"variant_id,omitempty" db:"variant_id"`
	ProductSnapshot ProductSnapshot       `json:"product_snapshot" db:"-"`
	Quantity        int                   `json:"quantity" db:"quantity"`
	SelectedOptions []cart.SelectedOption `json:"selected_options" db:"-"`
	UnitPrice       float64               `json:"unit_price" db:"unit_price"`
	Subtotal        float64               `json:"subtotal" db:"subtotal"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
}

type Order struct {
	ID                      uuid.UUID          `json:"id" db:"id"`
	CustomerID              uuid.UUID          `json:"customer_id" db:"customer_id"`
	RestaurantID            uuid.UUID          `json:"restaurant_id" db:"restaurant_id"`
	DriverID                *uuid.UUID         `json:"driver_id,omitempty" db:"driver_id"`
	CartID                  uuid.UUID          `json:"cart_id" db:"cart_id"`
	Status                  Status             `json:"status" db:"status"`
	ServiceType             domain.ServiceType `json:"service_type" db:"service_type"`
	Zone                    domain.Zone        `json:"zone" db:"zone"`
	PaymentMethod           string             `json:"payment_method" db:"payment_method"`
	Subtotal                float64            `json:"subtotal" db:"subtotal"`
	DiscountTotal           float64            `json:"discount_total" db:"discount_total"`
	DeliveryFee             float64            `json:"delivery_fee" db:"delivery_fee"`
	Tax                     float64            `json:"tax" db:"tax"`
	Total                   float64            `json:"total" db:"total"`
	PointsEarned            int                `json:"points_earned" db:"points_earned"`
	PointsRedeemed          int                `json:"points_redeemed" db:"points_redeemed"`
	DeliveryAddressSnapshot *AddressSnapshot   `json:"delivery_address_snapshot,omitempty" db:"-"`
	NITSnapshot             string             `json:"nit_snapshot" db:"nit_snapshot"`
	ScheduledFor            *time.Time         `json:"scheduled_for,omitempty" db:"scheduled_for"`
	ScheduledPickupTime     *time.Time         `json:"scheduled_pickup_time,omitempty" db:"scheduled_pickup_time"`
	CancellationReason      string             `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	Items                   []Item             `json:"items" db:"-"`
	CreatedAt               time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at" db:"updated_at"`
}

// StatusHistory is one append-only log entry; rows are never mutated.
type StatusHistory struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrderID        uuid.UUID        `json:"order_id" db:"order_id"`
	PreviousStatus *Status          `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus      Status           `json:"new_status" db:"new_status"`
	ChangedByType  domain.ActorType `json:"changed_by_type" db:"changed_by_type"`
	Notes          string           `json:"notes" db:"notes"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}
