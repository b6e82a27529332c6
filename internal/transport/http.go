// Package transport assembles the repositories, services and handlers into
// the service's chi router.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/address"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/catalog"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/config"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/db"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/handler"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/order"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/points"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/timeutil"
)

func NewRouter(pg *db.Postgres, cfg *config.Config) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	clock := timeutil.SystemClock{}

	catalogRepo := catalog.NewRepository(pg.DB)
	addressRepo := address.NewRepository(pg.DB)
	restaurantRepo := restaurant.NewRepository(pg.DB)
	resolver := restaurant.NewResolver(restaurantRepo, cfg.Loyalty.NearestPickupLimit)

	pointsRepo := points.NewRepository(pg.Pool)
	pointsSvc := points.NewService(pointsRepo)

	cartRepo := cart.NewRepository(pg.Pool)
	cartSvc := cart.NewService(cartRepo, catalogRepo, cartAddresses{addressRepo}, restaurantRepo, resolver, cart.Config{
		MergePolicy: cfg.Loyalty.CartMergePolicy,
		DefaultZone: cfg.Loyalty.DefaultZone,
	}, clock)

	orderRepo := order.NewRepository(pg.Pool, pointsRepo)
	orderSvc := order.NewService(orderRepo, cartSvc, catalogRepo, addressRepo, restaurantRepo, resolver, pointsRepo, order.Config{
		DeliveryFeeCapital:  cfg.Loyalty.DeliveryFeeCapital,
		DeliveryFeeInterior: cfg.Loyalty.DeliveryFeeInterior,
		TaxRate:             cfg.Loyalty.TaxRate,
		CurrencyPerPoint:    cfg.Loyalty.PointsCurrencyPerUnit,
		RoundUpThreshold:    cfg.Loyalty.PointsRoundUp,
		RedeemStep:          cfg.Loyalty.PointsRedeemStep,
		MinPickupLead:       time.Duration(cfg.Loyalty.MinPickupLeadMinutes) * time.Minute,
	}, clock)

	handler.NewCartHandler(cartSvc).RegisterRoutes(router)
	handler.NewOrderHandler(orderSvc).RegisterRoutes(router)
	handler.NewAddressHandler(resolver).RegisterRoutes(router)
	handler.NewPointsHandler(pointsSvc).RegisterRoutes(router)

	return router
}

// cartAddresses narrows the address book to the coordinate view the cart
// engine works with.
type cartAddresses struct {
	repo address.Repository
}

func (a cartAddresses) GetByID(ctx context.Context, id uuid.UUID) (*cart.Address, error) {
	addr, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cart.Address{
		ID:         addr.ID,
		CustomerID: addr.CustomerID,
		Latitude:   addr.Latitude,
		Longitude:  addr.Longitude,
	}, nil
}
