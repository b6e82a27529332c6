package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/order"
)

type CreateOrderRequest struct {
	RestaurantID        uuid.UUID  `json:"restaurant_id" validate:"required"`
	ServiceType         string     `json:"service_type" validate:"required,oneof=pickup delivery"`
	DeliveryAddressID   *uuid.UUID `json:"delivery_address_id,omitempty"`
	PaymentMethod       string     `json:"payment_method" validate:"required"`
	PointsToRedeem      int        `json:"points_to_redeem" validate:"gte=0"`
	ScheduledFor        *time.Time `json:"scheduled_for,omitempty"`
	ScheduledPickupTime *time.Time `json:"scheduled_pickup_time,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type UpdateOrderStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	ActorType string `json:"actor_type" validate:"required,oneof=customer admin system driver"`
	Notes     string `json:"notes,omitempty"`
}

type AssignDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id" validate:"required"`
}

type ChangeOrderRestaurantRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id" validate:"required"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/active", h.handleListActiveOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Get("/orders/{id}/track", h.handleTrackOrder)
	router.Post("/orders/{id}/cancel", h.handleCancelOrder)
	router.Post("/orders/{id}/reorder", h.handleReorder)

	// Staff lifecycle surface; the gateway restricts who reaches these.
	router.Put("/orders/{id}/status", h.handleUpdateStatus)
	router.Put("/orders/{id}/driver", h.handleAssignDriver)
	router.Put("/orders/{id}/restaurant", h.handleChangeRestaurant)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var requestPayload CreateOrderRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	o, err := h.service.Convert(r.Context(), custID, order.ConvertInput{
		RestaurantID:        requestPayload.RestaurantID,
		ServiceType:         domain.ServiceType(requestPayload.ServiceType),
		DeliveryAddressID:   requestPayload.DeliveryAddressID,
		PaymentMethod:       requestPayload.PaymentMethod,
		PointsToRedeem:      requestPayload.PointsToRedeem,
		ScheduledFor:        requestPayload.ScheduledFor,
		ScheduledPickupTime: requestPayload.ScheduledPickupTime,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), custID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleListActiveOrders(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListActive(r.Context(), custID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list active orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	o, err := h.service.GetByID(r.Context(), custID, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	info, err := h.service.Track(r.Context(), custID, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to track order")
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	var requestPayload CancelOrderRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	o, err := h.service.Cancel(r.Context(), custID, orderID, requestPayload.Reason)
	if err != nil {
		respondWithServiceError(w, err, "Failed to cancel order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleReorder(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	result, err := h.service.Reorder(r.Context(), custID, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to reorder")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	o, err := h.service.Transition(r.Context(), orderID,
		order.Status(requestPayload.Status), domain.ActorType(requestPayload.ActorType), requestPayload.Notes)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleAssignDriver(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	var requestPayload AssignDriverRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	o, err := h.service.AssignDriver(r.Context(), orderID, requestPayload.DriverID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to assign driver")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleChangeRestaurant(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, chi.URLParam(r, "id"), "order_id")
	if !ok {
		return
	}

	var requestPayload ChangeOrderRestaurantRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	o, err := h.service.ChangeRestaurant(r.Context(), orderID, requestPayload.RestaurantID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to change order restaurant")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}
