package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/address"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/catalog"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/points"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/timeutil"
)

// Error codes surfaced by conversion and the order lifecycle.
const (
	CodeCartInvalid           = "CART_INVALID"
	CodeCartAlreadyConverted  = "CART_ALREADY_CONVERTED"
	CodeRestaurantUnavailable = "RESTAURANT_UNAVAILABLE"
	CodeRestaurantMismatch    = "CART_RESTAURANT_MISMATCH"
	CodeMinimumOrderNotMet    = "MINIMUM_ORDER_NOT_MET"
	CodeScheduledTimeTooSoon  = "SCHEDULED_TIME_TOO_SOON"
	CodePaymentMethodRequired = "PAYMENT_METHOD_REQUIRED"
	CodeOrderNotFound         = "ORDER_NOT_FOUND"
	CodeNotYourOrder          = "ORDER_BELONGS_TO_ANOTHER_CUSTOMER"
	CodeStatusConflict        = "ORDER_STATUS_CONFLICT"
	CodeDriverUnavailable     = "DRIVER_UNAVAILABLE"
)

// CartEngine is the slice of the cart service conversion and reorder need.
type CartEngine interface {
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error)
	Validate(ctx context.Context, customerID uuid.UUID) (*cart.ValidationResult, error)
	AddItem(ctx context.Context, customerID uuid.UUID, input cart.AddItemInput) (*cart.Cart, error)
}

// RestaurantRegistry is the slice of the restaurant read side orders need.
type RestaurantRegistry interface {
	GetByID(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error)
	GetDriver(ctx context.Context, id uuid.UUID) (*restaurant.Driver, error)
}

// ZoneResolver re-checks at conversion time that the delivery address still
// resolves to the chosen restaurant.
type ZoneResolver interface {
	ResolveZoneAndRestaurant(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error)
}

// CustomerReader exposes the loyalty profile conversion reads: balance for
// the redemption precondition, NIT for the snapshot, tier for the multiplier.
type CustomerReader interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*points.Customer, error)
	ListTiers(ctx context.Context) ([]points.Tier, error)
}

type ConvertInput struct {
	RestaurantID        uuid.UUID
	ServiceType         domain.ServiceType
	DeliveryAddressID   *uuid.UUID
	PaymentMethod       string
	PointsToRedeem      int
	ScheduledFor        *time.Time
	ScheduledPickupTime *time.Time
}

// TrackInfo is the customer-facing tracking view: the order, its full status
// trail and the assigned driver when one exists.
type TrackInfo struct {
	Order   *Order             `json:"order"`
	History []StatusHistory    `json:"history"`
	Driver  *restaurant.Driver `json:"driver,omitempty"`
}

// ReorderResult reports which lines of a past order made it back into the
// active cart at current prices.
type ReorderResult struct {
	Cart         *cart.Cart `json:"cart"`
	SkippedItems []string   `json:"skipped_items"`
}

type Config struct {
	DeliveryFeeCapital  float64
	DeliveryFeeInterior float64
	TaxRate             float64
	CurrencyPerPoint    float64
	RoundUpThreshold    float64
	RedeemStep          int
	MinPickupLead       time.Duration
}

type Service interface {
	Convert(ctx context.Context, customerID uuid.UUID, input ConvertInput) (*Order, error)
	GetByID(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error)
	List(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	ListActive(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	Track(ctx context.Context, customerID, orderID uuid.UUID) (*TrackInfo, error)
	Cancel(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*Order, error)
	Reorder(ctx context.Context, customerID, orderID uuid.UUID) (*ReorderResult, error)

	// Staff-side lifecycle operations. The actor type is recorded in the
	// status history, never inferred.
	Transition(ctx context.Context, orderID uuid.UUID, to Status, actor domain.ActorType, notes string) (*Order, error)
	AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*Order, error)
	ChangeRestaurant(ctx context.Context, orderID, restaurantID uuid.UUID) (*Order, error)
}

type service struct {
	repo        Repository
	carts       CartEngine
	catalog     catalog.Repository
	addresses   address.Repository
	restaurants RestaurantRegistry
	resolver    ZoneResolver
	customers   CustomerReader
	cfg         Config
	clock       timeutil.Clock
}

func NewService(repo Repository, carts CartEngine, cat catalog.Repository, addresses address.Repository,
	restaurants RestaurantRegistry, resolver ZoneResolver, customers CustomerReader, cfg Config, clock timeutil.Clock) Service {
	if cfg.MinPickupLead <= 0 {
		cfg.MinPickupLead = 30 * time.Minute
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &service{
		repo:        repo,
		carts:       carts,
		catalog:     cat,
		addresses:   addresses,
		restaurants: restaurants,
		resolver:    resolver,
		customers:   customers,
		cfg:         cfg,
		clock:       clock,
	}
}

func (s *service) Convert(ctx context.Context, customerID uuid.UUID, input ConvertInput) (*Order, error) {
	if !input.ServiceType.Valid() {
		return nil, apperr.Validation(cart.CodeInvalidServiceType, fmt.Sprintf("unknown service type %q", input.ServiceType))
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, apperr.Validation(CodePaymentMethodRequired, "payment method is required")
	}
	if input.PointsToRedeem < 0 {
		return nil, apperr.Validation(points.CodeInvalidPoints, "points to redeem cannot be negative")
	}
	if s.cfg.RedeemStep > 1 && input.PointsToRedeem%s.cfg.RedeemStep != 0 {
		return nil, apperr.Validation(points.CodeInvalidPoints, fmt.Sprintf("points to redeem must be a multiple of %d", s.cfg.RedeemStep))
	}

	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, apperr.Precondition(cart.CodeCartEmpty, "cart has no items")
	}
	if c.ServiceType != input.ServiceType {
		return nil, apperr.Precondition(CodeCartInvalid, fmt.Sprintf("cart is priced for %s, not %s", c.ServiceType, input.ServiceType))
	}

	validation, err := s.carts.Validate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		return nil, apperr.Precondition(CodeCartInvalid, validation.Errors[0].Message)
	}

	rest, err := s.restaurants.GetByID(ctx, input.RestaurantID)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return nil, apperr.NotFound(CodeRestaurantUnavailable, "restaurant not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch restaurant: %w", err)
	}
	if !rest.Supports(input.ServiceType) {
		return nil, apperr.Precondition(CodeRestaurantUnavailable, fmt.Sprintf("%s does not offer %s", rest.Name, input.ServiceType))
	}
	if c.RestaurantID != nil && *c.RestaurantID != rest.ID {
		return nil, apperr.Precondition(CodeRestaurantMismatch, "cart is bound to a different restaurant")
	}
	if rest.Zone != c.Zone {
		return nil, apperr.Precondition(CodeCartInvalid, fmt.Sprintf("cart is priced for the %s zone", c.Zone))
	}

	var addressSnapshot *AddressSnapshot
	if input.ServiceType == domain.ServiceDelivery {
		if input.DeliveryAddressID == nil {
			return nil, apperr.Precondition(cart.CodeDeliveryAddressRequired, "delivery orders require a delivery address")
		}
		addr, err := s.addresses.GetByID(ctx, *input.DeliveryAddressID)
		if err != nil {
			if errors.Is(err, address.ErrAddressNotFound) {
				return nil, apperr.NotFound(cart.CodeAddressNotFound, "delivery address not found").Wrap(err)
			}
			return nil, fmt.Errorf("service: failed to fetch delivery address: %w", err)
		}
		if addr.CustomerID != customerID {
			return nil, apperr.Forbidden(cart.CodeNotYourAddress, "delivery address belongs to another customer")
		}

		resolution, err := s.resolver.ResolveZoneAndRestaurant(ctx, addr.Latitude, addr.Longitude)
		if err != nil {
			return nil, err
		}
		if resolution.Restaurant.ID != rest.ID {
			return nil, apperr.Precondition(restaurant.CodeOutsideDeliveryZone, "address is served by a different restaurant")
		}

		addressSnapshot = &AddressSnapshot{
			Label:       addr.Label,
			AddressLine: addr.AddressLine,
			Reference:   addr.Reference,
			Latitude:    addr.Latitude,
			Longitude:   addr.Longitude,
		}
	}

	if input.ServiceType == domain.ServicePickup && input.ScheduledPickupTime != nil {
		if input.ScheduledPickupTime.Before(s.clock.Now().Add(s.cfg.MinPickupLead)) {
			return nil, apperr.Precondition(CodeScheduledTimeTooSoon,
				fmt.Sprintf("scheduled pickup must be at least %d minutes from now", int(s.cfg.MinPickupLead.Minutes())))
		}
	}

	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, points.ErrCustomerNotFound) {
			return nil, apperr.NotFound(points.CodeCustomerNotFound, "customer not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch customer: %w", err)
	}
	if input.PointsToRedeem > customer.Points {
		return nil, apperr.Precondition(points.CodeInsufficientPoints,
			fmt.Sprintf("balance %d is below the %d points requested", customer.Points, input.PointsToRedeem))
	}

	discountedSubtotal := c.Subtotal()
	if discountedSubtotal < rest.MinimumOrderAmount {
		return nil, apperr.Precondition(CodeMinimumOrderNotMet,
			fmt.Sprintf("order total %.2f is below the minimum of %.2f", discountedSubtotal, rest.MinimumOrderAmount))
	}

	items, discountTotal := s.snapshotItems(ctx, c)
	subtotal := pricing.RoundCents(discountedSubtotal + discountTotal)

	deliveryFee := 0.0
	if input.ServiceType == domain.ServiceDelivery {
		deliveryFee = s.deliveryFee(c.Zone)
	}

	taxable := pricing.RoundCents(subtotal - discountTotal + deliveryFee)
	tax := pricing.RoundCents(taxable * s.cfg.TaxRate)
	total := pricing.RoundCents(taxable + tax)

	tiers, err := s.customers.ListTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list tiers: %w", err)
	}
	multiplier := 1.0
	if tier := points.TierFor(tiers, customer.Points); tier != nil {
		multiplier = tier.Multiplier
	}
	earned := points.Earned(total, s.cfg.CurrencyPerPoint, multiplier, s.cfg.RoundUpThreshold)

	o := &Order{
		CustomerID:              customerID,
		RestaurantID:            rest.ID,
		CartID:                  c.ID,
		Status:                  StatusPending,
		ServiceType:             input.ServiceType,
		Zone:                    c.Zone,
		PaymentMethod:           input.PaymentMethod,
		Subtotal:                subtotal,
		DiscountTotal:           discountTotal,
		DeliveryFee:             deliveryFee,
		Tax:                     tax,
		Total:                   total,
		PointsEarned:            earned,
		PointsRedeemed:          input.PointsToRedeem,
		DeliveryAddressSnapshot: addressSnapshot,
		NITSnapshot:             customer.NIT,
		ScheduledFor:            input.ScheduledFor,
		ScheduledPickupTime:     input.ScheduledPickupTime,
		Items:                   items,
	}

	if err := s.repo.CreateFromCart(ctx, o, input.PointsToRedeem, earned); err != nil {
		switch {
		case errors.Is(err, ErrCartAlreadyConverted):
			return nil, apperr.Conflict(CodeCartAlreadyConverted, "cart was already converted to an order").Wrap(err)
		case errors.Is(err, ErrCartGone):
			return nil, apperr.NotFound(CodeCartInvalid, "cart not found").Wrap(err)
		case errors.Is(err, points.ErrInsufficientPoints):
			return nil, apperr.Precondition(points.CodeInsufficientPoints, "insufficient points balance").Wrap(err)
		default:
			return nil, fmt.Errorf("service: failed to convert cart %s: %w", c.ID, err)
		}
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("customer_id", customerID).
		Str("service_type", o.ServiceType.String()).
		Float64("total", o.Total).
		Int("points_earned", earned).
		Int("points_redeemed", input.PointsToRedeem).
		Msg("service: cart converted to order")

	return s.repo.GetByID(ctx, o.ID)
}

// snapshotItems freezes each cart line into an order line and sums the
// promotion savings against current base prices. Order subtotal reports
// pre-discount totals, discount_total the savings, so subtracting one from
// the other lands back on what the customer actually pays for the items.
func (s *service) snapshotItems(ctx context.Context, c *cart.Cart) ([]Item, float64) {
	items := make([]Item, 0, len(c.Items))
	savings := 0.0

	for i := range c.Items {
		ci := &c.Items[i]

		snapshot := ProductSnapshot{Name: ci.Name}
		ref := catalog.ItemRef{ProductID: ci.ProductID, ComboID: ci.ComboID, VariantID: ci.VariantID}
		resolved, err := s.catalog.Resolve(ctx, ref)
		if err == nil {
			snapshot.Name = resolved.Name
			snapshot.Description = resolved.Description
			if ci.PromotionID != nil {
				base := resolved.Item.Prices().For(c.ServiceType, c.Zone)
				if base > ci.UnitPrice {
					savings += (base - ci.UnitPrice) * float64(ci.Quantity)
				}
			}
		} else {
			log.Warn().Err(err).Stringer("item_id", ci.ID).Msg("service: snapshotting unresolvable cart item by name only")
		}

		items = append(items, Item{
			ProductID:       ci.ProductID,
			ComboID:         ci.ComboID,
			VariantID:       ci.VariantID,
			ProductSnapshot: snapshot,
			Quantity:        ci.Quantity,
			SelectedOptions: ci.SelectedOptions,
			UnitPrice:       ci.UnitPrice,
			Subtotal:        ci.Subtotal,
		})
	}

	return items, pricing.RoundCents(savings)
}

func (s *service) deliveryFee(zone domain.Zone) float64 {
	if zone == domain.ZoneInterior {
		return s.cfg.DeliveryFeeInterior
	}
	return s.cfg.DeliveryFeeCapital
}

func (s *service) GetByID(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error) {
	return s.ownedOrder(ctx, customerID, orderID)
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *service) ListActive(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active orders: %w", err)
	}
	return orders, nil
}

func (s *service) Track(ctx context.Context, customerID, orderID uuid.UUID) (*TrackInfo, error) {
	o, err := s.ownedOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list order history: %w", err)
	}

	info := &TrackInfo{Order: o, History: history}
	if o.DriverID != nil {
		driver, err := s.restaurants.GetDriver(ctx, *o.DriverID)
		if err != nil && !errors.Is(err, restaurant.ErrDriverNotFound) {
			return nil, fmt.Errorf("service: failed to fetch driver: %w", err)
		}
		info.Driver = driver
	}

	return info, nil
}

func (s *service) Cancel(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation(CodeCancellationNeedsReason, "a cancellation reason is required")
	}

	o, err := s.ownedOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	if !CanCancel(o.Status) {
		return nil, apperr.Precondition(CodeOrderNotCancellable, fmt.Sprintf("order in status %s can no longer be cancelled", o.Status))
	}

	if err := s.applyTransition(ctx, o, StatusCancelled, domain.ActorCustomer, reason); err != nil {
		return nil, err
	}

	log.Info().Stringer("order_id", orderID).Str("reason", reason).Msg("service: order cancelled by customer")
	return s.repo.GetByID(ctx, orderID)
}

func (s *service) Reorder(ctx context.Context, customerID, orderID uuid.UUID) (*ReorderResult, error) {
	o, err := s.ownedOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	result := &ReorderResult{SkippedItems: []string{}}
	for i := range o.Items {
		item := &o.Items[i]
		c, err := s.carts.AddItem(ctx, customerID, cart.AddItemInput{
			ProductID:       item.ProductID,
			ComboID:         item.ComboID,
			VariantID:       item.VariantID,
			Quantity:        item.Quantity,
			SelectedOptions: item.SelectedOptions,
		})
		if err != nil {
			// Unavailable or vanished lines are skipped, not fatal.
			if apperr.From(err) != nil {
				result.SkippedItems = append(result.SkippedItems, item.ProductSnapshot.Name)
				continue
			}
			return nil, err
		}
		result.Cart = c
	}

	if result.Cart == nil {
		result.Cart, err = s.carts.GetOrCreate(ctx, customerID)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, to Status, actor domain.ActorType, notes string) (*Order, error) {
	if to == StatusCancelled && strings.TrimSpace(notes) == "" {
		return nil, apperr.Validation(CodeCancellationNeedsReason, "a cancellation reason is required")
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperr.NotFound(CodeOrderNotFound, "order not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if err := s.applyTransition(ctx, o, to, actor, notes); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, orderID)
}

func (s *service) applyTransition(ctx context.Context, o *Order, to Status, actor domain.ActorType, notes string) error {
	if err := CanTransition(o.Status, to, o.ServiceType); err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, o.Status, to, actor, notes); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			return apperr.NotFound(CodeOrderNotFound, "order not found").Wrap(err)
		case errors.Is(err, ErrStatusConflict):
			return apperr.Conflict(CodeStatusConflict, "order status changed concurrently, retry with fresh state").Wrap(err)
		default:
			return fmt.Errorf("service: failed to update order status: %w", err)
		}
	}

	log.Info().
		Stringer("order_id", o.ID).
		Str("from", o.Status.String()).
		Str("to", to.String()).
		Str("actor", actor.String()).
		Msg("service: order status changed")

	return nil
}

func (s *service) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperr.NotFound(CodeOrderNotFound, "order not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if o.ServiceType != domain.ServiceDelivery {
		return nil, apperr.Precondition(CodeDriverAssignmentLocked, "pickup orders do not take drivers")
	}
	if !CanAssignDriver(o.Status) {
		return nil, apperr.Precondition(CodeDriverAssignmentLocked, fmt.Sprintf("drivers cannot be assigned in status %s", o.Status))
	}

	driver, err := s.restaurants.GetDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, restaurant.ErrDriverNotFound) {
			return nil, apperr.NotFound(CodeDriverUnavailable, "driver not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch driver: %w", err)
	}
	if !driver.Active {
		return nil, apperr.Precondition(CodeDriverUnavailable, fmt.Sprintf("%s is not active", driver.Name))
	}
	if driver.RestaurantID != o.RestaurantID {
		return nil, apperr.Precondition(CodeDriverUnavailable, "driver belongs to another restaurant")
	}

	if err := s.repo.SetDriver(ctx, orderID, &driverID); err != nil {
		return nil, fmt.Errorf("service: failed to assign driver: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("driver_id", driverID).Msg("service: driver assigned")
	return s.repo.GetByID(ctx, orderID)
}

func (s *service) ChangeRestaurant(ctx context.Context, orderID, restaurantID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperr.NotFound(CodeOrderNotFound, "order not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if !CanChangeRestaurant(o.Status) {
		return nil, apperr.Precondition(CodeRestaurantChangeLocked, fmt.Sprintf("the restaurant cannot change in status %s", o.Status))
	}

	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return nil, apperr.NotFound(CodeRestaurantUnavailable, "restaurant not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch restaurant: %w", err)
	}
	if !rest.Supports(o.ServiceType) {
		return nil, apperr.Precondition(CodeRestaurantUnavailable, fmt.Sprintf("%s does not offer %s", rest.Name, o.ServiceType))
	}

	if err := s.repo.SetRestaurant(ctx, orderID, restaurantID); err != nil {
		return nil, fmt.Errorf("service: failed to change restaurant: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("restaurant_id", restaurantID).Msg("service: order restaurant changed, driver cleared")
	return s.repo.GetByID(ctx, orderID)
}

func (s *service) ownedOrder(ctx context.Context, customerID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, apperr.NotFound(CodeOrderNotFound, "order not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	if o.CustomerID != customerID {
		return nil, apperr.Forbidden(CodeNotYourOrder, "order belongs to another customer")
	}
	return o, nil
}
