package order

import (
	"fmt"

	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
)

const (
	CodeIllegalTransition       = "ILLEGAL_TRANSITION"
	CodeOrderNotCancellable     = "ORDER_NOT_CANCELLABLE"
	CodeDriverAssignmentLocked  = "DRIVER_ASSIGNMENT_LOCKED"
	CodeRestaurantChangeLocked  = "RESTAURANT_CHANGE_LOCKED"
	CodeCancellationNeedsReason = "CANCELLATION_REASON_REQUIRED"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
		StatusRefunded:  true,
	},
	StatusConfirmed: {
		StatusPreparing: true,
		StatusCancelled: true,
		StatusRefunded:  true,
	},
	StatusPreparing: {
		StatusReady:     true,
		StatusCancelled: true,
		StatusRefunded:  true,
	},
	StatusReady: {
		StatusOutForDelivery: true,
		StatusCompleted:      true,
		StatusCancelled:      true,
		StatusRefunded:       true,
	},
	StatusOutForDelivery: {
		StatusDelivered: true,
		StatusRefunded:  true,
	},
	StatusDelivered: {
		StatusCompleted: true,
		StatusRefunded:  true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// deliveryOnlyStatuses can never be reached by a pickup order.
var deliveryOnlyStatuses = map[Status]bool{
	StatusOutForDelivery: true,
	StatusDelivered:      true,
}

var cancellableStatuses = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusReady:     true,
}

// CanTransition validates a status move for an order of the given service
// type. Pickup orders complete straight from ready; delivery orders go out
// for delivery first.
func CanTransition(from, to Status, st domain.ServiceType) error {
	targets, ok := allowedTransitions[from]
	if !ok {
		return apperr.Precondition(CodeIllegalTransition, fmt.Sprintf("no transitions defined for status %s", from))
	}
	if !targets[to] {
		return apperr.Precondition(CodeIllegalTransition, fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	if st == domain.ServicePickup && deliveryOnlyStatuses[to] {
		return apperr.Precondition(CodeIllegalTransition, fmt.Sprintf("pickup orders cannot move to %s", to))
	}
	if st == domain.ServiceDelivery && from == StatusReady && to == StatusCompleted {
		return apperr.Precondition(CodeIllegalTransition, "delivery orders must go out for delivery before completion")
	}
	return nil
}

func IsTerminal(s Status) bool {
	return len(allowedTransitions[s]) == 0
}

// CanCancel reports whether cancellation is still possible: only before the
// order leaves the restaurant, never from a terminal state.
func CanCancel(s Status) bool {
	return cancellableStatuses[s]
}

// CanAssignDriver: drivers can be (re)assigned up through ready, not once
// the order is moving or closed.
func CanAssignDriver(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady:
		return true
	default:
		return false
	}
}

// CanChangeRestaurant: the restaurant can only change strictly before the
// order is ready.
func CanChangeRestaurant(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing:
		return true
	default:
		return false
	}
}
