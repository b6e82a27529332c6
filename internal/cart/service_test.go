package cart

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/catalog"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/pricing"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/restaurant"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/timeutil"
)

// memoryRepo is an in-memory Repository so service tests can exercise real
// merge and reprice flows without a database.
type memoryRepo struct {
	carts map[uuid.UUID]*Cart
	items []*Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: make(map[uuid.UUID]*Cart)}
}

func (m *memoryRepo) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	for _, c := range m.carts {
		if c.CustomerID == customerID && c.Status == StatusActive {
			cp := *c
			cp.Items = nil
			for _, it := range m.items {
				if it.CartID == c.ID {
					cp.Items = append(cp.Items, *it)
				}
			}
			return &cp, nil
		}
	}
	return nil, ErrNoActiveCart
}

func (m *memoryRepo) Create(ctx context.Context, c *Cart) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.Must(uuid.NewV4())
	}
	cp := *c
	m.carts[c.ID] = &cp
	return nil
}

func (m *memoryRepo) InsertItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.Must(uuid.NewV4())
	}
	item.CreatedAt = time.Now()
	cp := *item
	m.items = append(m.items, &cp)
	return nil
}

func (m *memoryRepo) UpdateItem(ctx context.Context, item *Item) error {
	for i, it := range m.items {
		if it.ID == item.ID {
			cp := *item
			m.items[i] = &cp
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	for i, it := range m.items {
		if it.ID == itemID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepo) DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error {
	kept := m.items[:0]
	for _, it := range m.items {
		if it.CartID != cartID {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *memoryRepo) GetItemWithOwner(ctx context.Context, itemID uuid.UUID) (*Item, uuid.UUID, error) {
	for _, it := range m.items {
		if it.ID == itemID {
			c, ok := m.carts[it.CartID]
			if !ok {
				return nil, uuid.Nil, ErrItemNotFound
			}
			cp := *it
			return &cp, c.CustomerID, nil
		}
	}
	return nil, uuid.Nil, ErrItemNotFound
}

func (m *memoryRepo) SaveRepriced(ctx context.Context, c *Cart) error {
	stored, ok := m.carts[c.ID]
	if !ok || stored.Status != StatusActive {
		return ErrNoActiveCart
	}
	stored.RestaurantID = c.RestaurantID
	stored.ServiceType = c.ServiceType
	stored.Zone = c.Zone
	stored.DeliveryAddressID = c.DeliveryAddressID
	for i := range c.Items {
		if err := m.UpdateItem(ctx, &c.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

type fakeCatalog struct {
	resolveFn func(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error)
}

func (f *fakeCatalog) Resolve(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error) {
	return f.resolveFn(ctx, ref)
}

type fakeAddresses struct {
	getByIDFn func(ctx context.Context, id uuid.UUID) (*Address, error)
}

func (f *fakeAddresses) GetByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	return f.getByIDFn(ctx, id)
}

type fakeRestaurants struct {
	getByIDFn func(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error)
}

func (f *fakeRestaurants) GetByID(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error) {
	return f.getByIDFn(ctx, id)
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error)
}

func (f *fakeResolver) ResolveZoneAndRestaurant(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error) {
	return f.resolveFn(ctx, lat, lng)
}

type pricedProduct struct {
	prices pricing.PriceSet
	active bool
}

func (p pricedProduct) Prices() pricing.PriceSet { return p.prices }
func (p pricedProduct) IsActive() bool           { return p.active }

type engineFixture struct {
	customerID uuid.UUID
	productID  uuid.UUID

	repo        *memoryRepo
	catalog     *fakeCatalog
	addresses   *fakeAddresses
	restaurants *fakeRestaurants
	resolver    *fakeResolver
	cfg         Config
}

// newEngineFixture sets up one product priced 50/55/55/60 across the four
// zone columns, always resolvable and active.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	f := &engineFixture{
		customerID: uuid.Must(uuid.NewV4()),
		productID:  uuid.Must(uuid.NewV4()),
		repo:       newMemoryRepo(),
		cfg:        Config{MergePolicy: MergeQuantities, DefaultZone: domain.ZoneCapital},
	}

	f.catalog = &fakeCatalog{
		resolveFn: func(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error) {
			if ref.ProductID == nil || *ref.ProductID != f.productID {
				return nil, catalog.ErrItemNotFound
			}
			return &catalog.Resolved{
				Item: pricedProduct{
					prices: pricing.PriceSet{PickupCapital: 50, DeliveryCapital: 55, PickupInterior: 55, DeliveryInterior: 60},
					active: true,
				},
				Name: "Pollo entero",
			}, nil
		},
	}
	f.addresses = &fakeAddresses{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*Address, error) {
			return nil, apperr.NotFound(CodeAddressNotFound, "delivery address not found")
		},
	}
	f.restaurants = &fakeRestaurants{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error) {
			return nil, restaurant.ErrRestaurantNotFound
		},
	}
	f.resolver = &fakeResolver{}

	return f
}

func (f *engineFixture) service() Service {
	clock := timeutil.FixedClock{T: time.Date(2025, 6, 11, 13, 0, 0, 0, time.UTC)}
	return NewService(f.repo, f.catalog, f.addresses, f.restaurants, f.resolver, f.cfg, clock)
}

func TestAddItem_MergePolicy(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	input := AddItemInput{ProductID: &f.productID, Quantity: 2}

	c, err := svc.AddItem(context.Background(), f.customerID, input)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 50.0, c.Items[0].UnitPrice)
	assert.Equal(t, 100.0, c.Items[0].Subtotal)

	c, err = svc.AddItem(context.Background(), f.customerID, input)
	require.NoError(t, err)
	require.Len(t, c.Items, 1, "identical tuples must merge into one line")
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, 200.0, c.Items[0].Subtotal)
}

func TestAddItem_DuplicatePolicy(t *testing.T) {
	f := newEngineFixture(t)
	f.cfg.MergePolicy = DuplicateLines
	svc := f.service()

	input := AddItemInput{ProductID: &f.productID, Quantity: 1}

	_, err := svc.AddItem(context.Background(), f.customerID, input)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), f.customerID, input)
	require.NoError(t, err)

	require.Len(t, c.Items, 2, "duplicate policy must open a new line")
}

func TestAddItem_DifferentOptionsNeverMerge(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	sectionID := uuid.Must(uuid.NewV4())
	optionID := uuid.Must(uuid.NewV4())

	_, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{
		ProductID: &f.productID,
		Quantity:  1,
		SelectedOptions: []SelectedOption{
			{SectionID: sectionID, OptionID: optionID, Name: "Picante", Price: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.service().AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 0})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidQuantity, apperr.CodeOf(err))
}

func TestSetServiceType_DeliveryRequiresAddress(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.service().SetServiceType(context.Background(), f.customerID, domain.ServiceDelivery)
	require.Error(t, err)
	assert.Equal(t, CodeDeliveryAddressRequired, apperr.CodeOf(err))
}

func TestServiceTypeSwitch_RepricesAllItems(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	_, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 2})
	require.NoError(t, err)

	addressID := uuid.Must(uuid.NewV4())
	interiorRestaurant := restaurant.Restaurant{ID: uuid.Must(uuid.NewV4()), Name: "Antigua", Zone: domain.ZoneInterior, DeliveryActive: true}

	f.addresses.getByIDFn = func(ctx context.Context, id uuid.UUID) (*Address, error) {
		return &Address{ID: addressID, CustomerID: f.customerID, Latitude: 14.56, Longitude: -90.73}, nil
	}
	f.resolver.resolveFn = func(ctx context.Context, lat, lng float64) (*restaurant.Resolution, error) {
		return &restaurant.Resolution{Restaurant: interiorRestaurant, Zone: domain.ZoneInterior}, nil
	}

	_, err = svc.SetDeliveryAddress(context.Background(), f.customerID, addressID)
	require.NoError(t, err)

	c, err := svc.SetServiceType(context.Background(), f.customerID, domain.ServiceDelivery)
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceDelivery, c.ServiceType)
	assert.Equal(t, domain.ZoneInterior, c.Zone)
	require.NotNil(t, c.RestaurantID)
	assert.Equal(t, interiorRestaurant.ID, *c.RestaurantID)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 60.0, c.Items[0].UnitPrice)
	assert.Equal(t, 120.0, c.Items[0].Subtotal)

	// Switching back to pickup drops the restaurant binding, resets the
	// default zone and re-prices again.
	c, err = svc.SetServiceType(context.Background(), f.customerID, domain.ServicePickup)
	require.NoError(t, err)

	assert.Equal(t, domain.ServicePickup, c.ServiceType)
	assert.Equal(t, domain.ZoneCapital, c.Zone)
	assert.Nil(t, c.RestaurantID)
	assert.Equal(t, 50.0, c.Items[0].UnitPrice)
	assert.Equal(t, 100.0, c.Items[0].Subtotal)
}

func TestUpdateItem_NoSilentReprice(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	c, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 1})
	require.NoError(t, err)
	itemID := c.Items[0].ID

	// The catalog price moves after the item is in the cart.
	f.catalog.resolveFn = func(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error) {
		return &catalog.Resolved{
			Item: pricedProduct{prices: pricing.PriceSet{PickupCapital: 75, DeliveryCapital: 80, PickupInterior: 80, DeliveryInterior: 85}, active: true},
			Name: "Pollo entero",
		}, nil
	}

	qty := 3
	c, err = svc.UpdateItem(context.Background(), f.customerID, itemID, UpdateItemInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 50.0, c.Items[0].UnitPrice, "quantity edits must not re-resolve the price")
	assert.Equal(t, 150.0, c.Items[0].Subtotal)

	c, err = svc.UpdateItem(context.Background(), f.customerID, itemID, UpdateItemInput{Reprice: true})
	require.NoError(t, err)
	assert.Equal(t, 75.0, c.Items[0].UnitPrice)
	assert.Equal(t, 225.0, c.Items[0].Subtotal)
}

func TestRemoveItem_OtherCustomersItem(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	c, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 1})
	require.NoError(t, err)

	stranger := uuid.Must(uuid.NewV4())
	_, err = svc.RemoveItem(context.Background(), stranger, c.Items[0].ID)
	require.Error(t, err)
	assert.Equal(t, CodeNotYourItem, apperr.CodeOf(err))
}

func TestValidate(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	result, err := svc.Validate(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeCartEmpty, result.Errors[0].Code)

	_, err = svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 1})
	require.NoError(t, err)

	result, err = svc.Validate(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	// The product goes inactive after it was added.
	f.catalog.resolveFn = func(ctx context.Context, ref catalog.ItemRef) (*catalog.Resolved, error) {
		return &catalog.Resolved{
			Item: pricedProduct{prices: pricing.PriceSet{PickupCapital: 50}, active: false},
			Name: "Pollo entero",
		}, nil
	}

	result, err = svc.Validate(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeItemUnavailable, result.Errors[0].Code)
}

func TestClear(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	_, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), f.customerID))

	c, err := svc.GetOrCreate(context.Background(), f.customerID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestSetPickupRestaurant_AdoptsRestaurantZone(t *testing.T) {
	f := newEngineFixture(t)
	svc := f.service()

	_, err := svc.AddItem(context.Background(), f.customerID, AddItemInput{ProductID: &f.productID, Quantity: 2})
	require.NoError(t, err)

	interior := restaurant.Restaurant{ID: uuid.Must(uuid.NewV4()), Name: "Antigua", Zone: domain.ZoneInterior, PickupActive: true}
	f.restaurants.getByIDFn = func(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error) {
		return &interior, nil
	}

	c, err := svc.SetPickupRestaurant(context.Background(), f.customerID, interior.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ZoneInterior, c.Zone)
	assert.Equal(t, 55.0, c.Items[0].UnitPrice, "pickup interior column must apply")
	assert.Equal(t, 110.0, c.Items[0].Subtotal)
}
