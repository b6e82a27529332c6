package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/catalog"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/timeutil"
)

// Error codes surfaced by the cart engine.
const (
	CodeDeliveryAddressRequired = "DELIVERY_ADDRESS_REQUIRED"
	CodeInvalidServiceType      = "INVALID_SERVICE_TYPE"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidItemRef          = "INVALID_ITEM_REFERENCE"
	CodeVariantRequired         = "VARIANT_REQUIRED"
	CodeItemNotFound            = "ITEM_NOT_FOUND"
	CodeItemUnavailable         = "ITEM_UNAVAILABLE"
	CodeCartEmpty               = "CART_EMPTY"
	CodeRestaurantUnavailable   = "RESTAURANT_UNAVAILABLE"
	CodeAddressNotFound         = "ADDRESS_NOT_FOUND"
	CodeNotYourAddress          = "ADDRESS_BELONGS_TO_ANOTHER_CUSTOMER"
	CodeNotYourItem             = "ITEM_BELONGS_TO_ANOTHER_CUSTOMER"
)

// ZoneResolver is the slice of the geofence resolver the cart needs.
type ZoneResolver interface {
	ResolveZoneAndRestaurant(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error)
}

// RestaurantGetter is the slice of the restaurant registry the cart needs.
type RestaurantGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error)
}

// AddressGetter is the slice of the address book the cart needs.
type AddressGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)
}

// Address carries the coordinates the cart needs from the address book.
type Address struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Latitude   float64
	Longitude  float64
}

type AddItemInput struct {
	ProductID       *uuid.UUID
	ComboID         *uuid.UUID
	VariantID       *uuid.UUID
	Quantity        int
	SelectedOptions []SelectedOption
}

type UpdateItemInput struct {
	Quantity        *int
	SelectedOptions *[]SelectedOption
	// Reprice re-resolves the unit price from current catalog state. Off by
	// default so a quantity edit never silently moves the price mid-session.
	Reprice bool
}

type Config struct {
	MergePolicy MergePolicy
	DefaultZone domain.Zone
}

type Service interface {
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*Cart, error)
	UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, input UpdateItemInput) (*Cart, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	SetServiceType(ctx context.Context, customerID uuid.UUID, st domain.ServiceType) (*Cart, error)
	SetDeliveryAddress(ctx context.Context, customerID, addressID uuid.UUID) (*Cart, error)
	SetPickupRestaurant(ctx context.Context, customerID, restaurantID uuid.UUID) (*Cart, error)
	Validate(ctx context.Context, customerID uuid.UUID) (*ValidationResult, error)
}

type service struct {
	repo        Repository
	catalog     catalog.Repository
	addresses   AddressGetter
	restaurants RestaurantGetter
	resolver    ZoneResolver
	cfg         Config
	clock       timeutil.Clock
}

func NewService(repo Repository, cat catalog.Repository, addresses AddressGetter, restaurants RestaurantGetter, resolver ZoneResolver, cfg Config, clock timeutil.Clock) Service {
	if cfg.MergePolicy == "" {
		cfg.MergePolicy = MergeQuantities
	}
	if cfg.DefaultZone == "" {
		cfg.DefaultZone = domain.ZoneCapital
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &service{
		repo:        repo,
		catalog:     cat,
		addresses:   addresses,
		restaurants: restaurants,
		resolver:    resolver,
		cfg:         cfg,
		clock:       clock,
	}
}

func (s *service) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetActiveByCustomer(ctx, customerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNoActiveCart) {
		return nil, fmt.Errorf("service: failed to fetch active cart: %w", err)
	}

	c = &Cart{
		CustomerID:  customerID,
		ServiceType: domain.ServicePickup,
		Zone:        s.cfg.DefaultZone,
		Status:      StatusActive,
		Items:       []Item{},
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("service: failed to create cart: %w", err)
	}

	log.Info().Stringer("cart_id", c.ID).Stringer("customer_id", customerID).Msg("service: new active cart created")
	return c, nil
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*Cart, error) {
	if input.Quantity < 1 {
		return nil, apperr.Validation(CodeInvalidQuantity, "quantity must be at least 1")
	}

	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	ref := catalog.ItemRef{ProductID: input.ProductID, ComboID: input.ComboID, VariantID: input.VariantID}
	resolved, err := s.resolveCatalog(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !resolved.Active() {
		return nil, apperr.Precondition(CodeItemUnavailable, fmt.Sprintf("%s is not available right now", resolved.Name))
	}

	quote, err := pricing.Resolve(resolved.Item, resolved.Promotions, c.ServiceType, c.Zone, s.clock.Now())
	if err != nil {
		return nil, apperr.Precondition(CodeItemUnavailable, fmt.Sprintf("%s cannot be priced right now", resolved.Name)).Wrap(err)
	}

	newItem := Item{
		CartID:          c.ID,
		ProductID:       input.ProductID,
		ComboID:         input.ComboID,
		VariantID:       input.VariantID,
		Name:            resolved.Name,
		Quantity:        input.Quantity,
		SelectedOptions: input.SelectedOptions,
		UnitPrice:       quote.UnitPrice,
	}
	if quote.Promotion != nil {
		newItem.PromotionID = &quote.Promotion.ID
	}

	if s.cfg.MergePolicy == MergeQuantities {
		for i := range c.Items {
			if c.Items[i].SameTuple(newItem) {
				existing := &c.Items[i]
				existing.Quantity += input.Quantity
				existing.UnitPrice = newItem.UnitPrice
				existing.PromotionID = newItem.PromotionID
				existing.RecomputeSubtotal()

				if err := s.repo.UpdateItem(ctx, existing); err != nil {
					return nil, fmt.Errorf("service: failed to merge cart item: %w", err)
				}
				return s.repo.GetActiveByCustomer(ctx, customerID)
			}
		}
	}

	newItem.RecomputeSubtotal()
	if err := s.repo.InsertItem(ctx, &newItem); err != nil {
		return nil, fmt.Errorf("service: failed to insert cart item: %w", err)
	}

	log.Info().Stringer("cart_id", c.ID).Str("item", newItem.Name).Int("quantity", newItem.Quantity).Msg("service: item added to cart")
	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, input UpdateItemInput) (*Cart, error) {
	item, c, err := s.ownedItem(ctx, customerID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return nil, apperr.Validation(CodeInvalidQuantity, "quantity must be at least 1")
		}
		item.Quantity = *input.Quantity
	}
	if input.SelectedOptions != nil {
		item.SelectedOptions = *input.SelectedOptions
	}

	if input.Reprice {
		ref := catalog.ItemRef{ProductID: item.ProductID, ComboID: item.ComboID, VariantID: item.VariantID}
		resolved, err := s.resolveCatalog(ctx, ref)
		if err != nil {
			return nil, err
		}
		quote, err := pricing.Resolve(resolved.Item, resolved.Promotions, c.ServiceType, c.Zone, s.clock.Now())
		if err != nil {
			return nil, apperr.Precondition(CodeItemUnavailable, fmt.Sprintf("%s cannot be priced right now", resolved.Name)).Wrap(err)
		}
		item.UnitPrice = quote.UnitPrice
		item.PromotionID = nil
		if quote.Promotion != nil {
			item.PromotionID = &quote.Promotion.ID
		}
	}

	item.RecomputeSubtotal()
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*Cart, error) {
	item, _, err := s.ownedItem(ctx, customerID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("service: failed to delete cart item: %w", err)
	}

	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteItemsByCart(ctx, c.ID); err != nil {
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}

	return nil
}

func (s *service) SetServiceType(ctx context.Context, customerID uuid.UUID, st domain.ServiceType) (*Cart, error) {
	if !st.Valid() {
		return nil, apperr.Validation(CodeInvalidServiceType, fmt.Sprintf("unknown service type %q", st))
	}

	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.ServiceType == st {
		return c, nil
	}

	switch st {
	case domain.ServicePickup:
		// The delivery restaurant binding does not carry over: a pickup
		// restaurant must be chosen explicitly.
		c.ServiceType = domain.ServicePickup
		c.RestaurantID = nil
		c.Zone = s.cfg.DefaultZone

	case domain.ServiceDelivery:
		if c.DeliveryAddressID == nil {
			return nil, apperr.Precondition(CodeDeliveryAddressRequired, "attach a delivery address before switching to delivery")
		}
		addr, err := s.ownedAddress(ctx, customerID, *c.DeliveryAddressID)
		if err != nil {
			return nil, err
		}
		resolution, err := s.resolver.ResolveZoneAndRestaurant(ctx, addr.Latitude, addr.Longitude)
		if err != nil {
			return nil, err
		}
		c.ServiceType = domain.ServiceDelivery
		c.RestaurantID = &resolution.Restaurant.ID
		c.Zone = resolution.Zone
	}

	if err := s.repriceAndSave(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Stringer("cart_id", c.ID).Str("service_type", st.String()).Str("zone", c.Zone.String()).Msg("service: cart service type changed")
	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) SetDeliveryAddress(ctx context.Context, customerID, addressID uuid.UUID) (*Cart, error) {
	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	addr, err := s.ownedAddress(ctx, customerID, addressID)
	if err != nil {
		return nil, err
	}

	resolution, err := s.resolver.ResolveZoneAndRestaurant(ctx, addr.Latitude, addr.Longitude)
	if err != nil {
		return nil, err
	}

	c.DeliveryAddressID = &addressID
	if c.ServiceType == domain.ServiceDelivery {
		c.RestaurantID = &resolution.Restaurant.ID
		c.Zone = resolution.Zone
		if err := s.repriceAndSave(ctx, c); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.SaveRepriced(ctx, c); err != nil {
			return nil, fmt.Errorf("service: failed to save cart: %w", err)
		}
	}

	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) SetPickupRestaurant(ctx context.Context, customerID, restaurantID uuid.UUID) (*Cart, error) {
	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, restaurant.ErrRestaurantNotFound) {
			return nil, apperr.NotFound(CodeRestaurantUnavailable, "restaurant not found").Wrap(err)
		}
		return nil, fmt.Errorf("service: failed to fetch restaurant: %w", err)
	}
	if !rest.PickupActive {
		return nil, apperr.Precondition(CodeRestaurantUnavailable, fmt.Sprintf("%s does not offer pickup", rest.Name))
	}

	c.RestaurantID = &rest.ID
	c.Zone = rest.Zone
	if err := s.repriceAndSave(ctx, c); err != nil {
		return nil, err
	}

	return s.repo.GetActiveByCustomer(ctx, customerID)
}

func (s *service) Validate(ctx context.Context, customerID uuid.UUID) (*ValidationResult, error) {
	c, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{IsValid: true, Errors: []ValidationError{}}

	if len(c.Items) == 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{Code: CodeCartEmpty, Message: "cart has no items"})
		return result, nil
	}

	for i := range c.Items {
		item := &c.Items[i]
		ref := catalog.ItemRef{ProductID: item.ProductID, ComboID: item.ComboID, VariantID: item.VariantID}
		resolved, err := s.catalog.Resolve(ctx, ref)
		if err != nil || !resolved.Active() {
			itemID := item.ID
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeItemUnavailable,
				ItemID:  &itemID,
				Message: fmt.Sprintf("%s is no longer available", item.Name),
			})
		}
	}

	return result, nil
}

// repriceAndSave runs the full re-price pass over every item under the
// cart's current {serviceType, zone} and persists header and items
// atomically. Partial staleness is not permitted.
func (s *service) repriceAndSave(ctx context.Context, c *Cart) error {
	now := s.clock.Now()
	for i := range c.Items {
		item := &c.Items[i]
		ref := catalog.ItemRef{ProductID: item.ProductID, ComboID: item.ComboID, VariantID: item.VariantID}

		resolved, err := s.catalog.Resolve(ctx, ref)
		if err != nil {
			// An orphaned line keeps its last price; Validate reports it.
			log.Warn().Err(err).Stringer("item_id", item.ID).Msg("service: skipping reprice of unresolvable item")
			continue
		}

		quote, err := pricing.Resolve(resolved.Item, resolved.Promotions, c.ServiceType, c.Zone, now)
		if err != nil {
			log.Warn().Err(err).Stringer("item_id", item.ID).Msg("service: skipping reprice of inactive item")
			continue
		}

		item.UnitPrice = quote.UnitPrice
		item.PromotionID = nil
		if quote.Promotion != nil {
			item.PromotionID = &quote.Promotion.ID
		}
		item.RecomputeSubtotal()
	}

	if err := s.repo.SaveRepriced(ctx, c); err != nil {
		return fmt.Errorf("service: failed to save repriced cart: %w", err)
	}
	return nil
}

func (s *service) ownedItem(ctx context.Context, customerID, itemID uuid.UUID) (*Item, *Cart, error) {
	item, ownerID, err := s.repo.GetItemWithOwner(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, nil, apperr.NotFound(CodeItemNotFound, "cart item not found").Wrap(err)
		}
		return nil, nil, fmt.Errorf("service: failed to fetch cart item: %w", err)
	}
	if ownerID != customerID {
		return nil, nil, apperr.Forbidden(CodeNotYourItem, "cart item belongs to another customer")
	}

	c, err := s.repo.GetActiveByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNoActiveCart) {
			return nil, nil, apperr.NotFound(CodeItemNotFound, "cart item not found").Wrap(err)
		}
		return nil, nil, fmt.Errorf("service: failed to fetch active cart: %w", err)
	}
	if item.CartID != c.ID {
		// The item exists but belongs to an already-converted cart.
		return nil, nil, apperr.NotFound(CodeItemNotFound, "cart item not found")
	}

	return item, c, nil
}

func (s *service) ownedAddress(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error) {
	addr, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		return nil, apperr.NotFound(CodeAddressNotFound, "delivery address not found").Wrap(err)
	}
	if addr.CustomerID != customerID {
		return nil, apperr.Forbidden(CodeNotYourAddress, "delivery address belongs to another customer")
	}
	return addr, nil
}

func (s *service) resolveCatalog(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error) {
	resolved, err := s.catalog.Resolve(ctx, ref)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidItemRef):
			return nil, apperr.Validation(CodeInvalidItemRef, "exactly one of product_id or combo_id is required").Wrap(err)
		case errors.Is(err, catalog.ErrVariantRequired):
			return nil, apperr.Validation(CodeVariantRequired, "this product requires a variant selection").Wrap(err)
		case errors.Is(err, catalog.ErrItemNotFound), errors.Is(err, catalog.ErrVariantNotFound):
			return nil, apperr.NotFound(CodeItemNotFound, "item not found").Wrap(err)
		default:
			return nil, fmt.Errorf("service: failed to resolve catalog item: %w", err)
		}
	}
	return resolved, nil
}
