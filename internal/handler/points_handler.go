package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/points"
)

type PointsHandler struct {
	service points.Service
}

func NewPointsHandler(service points.Service) *PointsHandler {
	return &PointsHandler{service: service}
}

func (h *PointsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/customers/me/points", h.handleGetBalance)
}

func (h *PointsHandler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	custID, ok := customerID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), custID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load points balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}
