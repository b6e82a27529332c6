package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
)

type SelectedOptionRequest struct {
	SectionID uuid.UUID `json:"section_id" validate:"required"`
	OptionID  uuid.UUID `json:"option_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Price     float64   `json:"price" validate:"gte=0"`
}

type AddCartItemRequest struct {
	ProductID       *uuid.UUID              `json:"product_id,omitempty"`
	ComboID         *uuid.UUID              `json:"combo_id,omitempty"`
	VariantID       *uuid.UUID              `json:"variant_id,omitempty"`
	Quantity        int                     `json:"quantity" validate:"required,min=1"`
	SelectedOptions []SelectedOptionRequest `json:"selected_options" validate:"dive"`
}

type UpdateCartItemRequest struct {
	Quantity        *int                     `json:"quantity,omitempty" validate:"omitempty,min=1"`
	SelectedOptions *[]SelectedOptionRequest `json:"selected_options,omitempty" validate:"omitempty,dive"`
	Reprice         bool                     `json:"reprice,omitempty"`
}

type SetServiceTypeRequest struct {
	ServiceType string `json:"service_type" validate:"required,oneof=pickup delivery"`
}

type SetDeliveryAddressRequest struct {
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

type SetPickupRestaurantRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id" validate:"required"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleGetCart)
	router.Delete("/cart", h.handleClearCart)
	router.Post("/cart/items", h.handleAddItem)
	router.Put("/cart/items/{id}", h.handleUpdateItem)
	router.Delete("/cart/items/{id}", h.handleRemoveItem)
	router.Put("/cart/service-type", h.handleSetServiceType)
	router.Put("/cart/delivery-address", h.handleSetDeliveryAddress)
	router.Put("/cart/pickup-restaurant", h.handleSetPickupRestaurant)
	router.Post("/cart/validate", h.handleValidate)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetOrCreate(r.Context(), custID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var requestPayload AddCartItemRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	c, err := h.service.AddItem(r.Context(), custID, cart.AddItemInput{
		ProductID:       requestPayload.ProductID,
		ComboID:         requestPayload.ComboID,
		VariantID:       requestPayload.VariantID,
		Quantity:        requestPayload.Quantity,
		SelectedOptions: toSelectedOptions(requestPayload.SelectedOptions),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, chi.URLParam(r, "id"), "item_id")
	if !ok {
		return
	}

	var requestPayload UpdateCartItemRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	input := cart.UpdateItemInput{
		Quantity: requestPayload.Quantity,
		Reprice:  requestPayload.Reprice,
	}
	if requestPayload.SelectedOptions != nil {
		opts := toSelectedOptions(*requestPayload.SelectedOptions)
		input.SelectedOptions = &opts
	}

	c, err := h.service.UpdateItem(r.Context(), custID, itemID, input)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update cart item")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, chi.URLParam(r, "id"), "item_id")
	if !ok {
		return
	}

	c, err := h.service.RemoveItem(r.Context(), custID, itemID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to remove cart item")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), custID); err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleSetServiceType(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var requestPayload SetServiceTypeRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	c, err := h.service.SetServiceType(r.Context(), custID, domain.ServiceType(requestPayload.ServiceType))
	if err != nil {
		respondWithServiceError(w, err, "Failed to switch service type")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleSetDeliveryAddress(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var requestPayload SetDeliveryAddressRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	c, err := h.service.SetDeliveryAddress(r.Context(), custID, requestPayload.AddressID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to set delivery address")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleSetPickupRestaurant(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	var requestPayload SetPickupRestaurantRequest
	if !decodeJSON(w, r, &requestPayload) {
		return
	}
	if !validateStruct(w, h.validate, requestPayload) {
		return
	}

	c, err := h.service.SetPickupRestaurant(r.Context(), custID, requestPayload.RestaurantID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to set pickup restaurant")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Validate(r.Context(), custID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to validate cart")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func toSelectedOptions(reqs []SelectedOptionRequest) []cart.SelectedOption {
	if len(reqs) == 0 {
		return nil
	}
	opts := make([]cart.SelectedOption, 0, len(reqs))
	for _, req := range reqs {
		opts = append(opts, cart.SelectedOption{
			SectionID: req.SectionID,
			OptionID:  req.OptionID,
			Name:      req.Name,
			Price:     req.Price,
		})
	}
	return opts
}
