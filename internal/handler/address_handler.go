package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
)

// GeoResolver is the slice of the geofence resolver address validation needs.
type GeoResolver interface {
	ResolveZoneAndRestaurant(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error)
	NearestPickup(ctx context.Context, lat, lng float64) ([]restaurant.PickupSuggestion, error)
}

type ValidateAddressRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type RestaurantSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Zone    string `json:"zone"`
}

type PickupLocation struct {
	RestaurantSummary
	DistanceKm float64 `json:"distance_km"`
}

type ValidateAddressResponse struct {
	IsValid                bool               `json:"is_valid"`
	DeliveryAvailable      bool               `json:"delivery_available"`
	Zone                   string             `json:"zone,omitempty"`
	Restaurant             *RestaurantSummary `json:"restaurant,omitempty"`
	NearestPickupLocations []PickupLocation   `json:"nearest_pickup_locations,omitempty"`
	Message                string             `json:"message,omitempty"`
}

type AddressHandler struct {
	resolver GeoResolver
	validate *validator.Validate
}

func NewAddressHandler(resolver GeoResolver) *AddressHandler {
	return &AddressHandler{
		resolver: resolver,
		validate: validator.New(),
	}
}

func (h *AddressHandler) RegisterRoutes(router chi.Router) {
	router.Post("/addresses/validate", h.handleValidateAddress)
}

// handleValidateAddress answers "can we deliver here, and if not, where can
// the customer pick up". Resolution failures are part of the payload, not
// HTTP errors; only malformed requests and infrastructure failures escalate.
func (h *AddressHandler) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	var requestPayload ValidateAddressRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	lat, lng := *requestPayload.Latitude, *requestPayload.Longitude

	resolution, err := h.resolver.ResolveZoneAndRestaurant(r.Context(), lat, lng)
	if err == nil {
		summary := summarize(resolution.Restaurant)
		respondWithJSON(w, http.StatusOK, ValidateAddressResponse{
			IsValid:           true,
			DeliveryAvailable: true,
			Zone:              resolution.Zone.String(),
			Restaurant:        &summary,
		})
		return
	}

	appErr := apperr.From(err)
	if appErr == nil {
		respondWithServiceError(w, err, "Failed to validate address")
		return
	}

	response := ValidateAddressResponse{Message: appErr.Message}

	if appErr.Code == restaurant.CodeOutsideDeliveryZone {
		suggestions, err := h.resolver.NearestPickup(r.Context(), lat, lng)
		if err != nil {
			respondWithServiceError(w, err, "Failed to rank pickup locations")
			return
		}
		for _, s := range suggestions {
			response.NearestPickupLocations = append(response.NearestPickupLocations, PickupLocation{
				RestaurantSummary: summarize(s.Restaurant),
				DistanceKm:        s.DistanceKm,
			})
		}
	}

	respondWithJSON(w, http.StatusOK, response)
}

func summarize(r restaurant.Restaurant) RestaurantSummary {
	return RestaurantSummary{
		ID:      r.ID.String(),
		Name:    r.Name,
		Address: r.Address,
		Phone:   r.Phone,
		Zone:    r.Zone.String(),
	}
}
