package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/cart"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/domain"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/handler"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, customerID uuid.UUID, input cart.AddItemInput) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, input cart.UpdateItemInput) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, itemID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func (m *MockCartService) SetServiceType(ctx context.Context, customerID uuid.UUID, st domain.ServiceType) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) SetDeliveryAddress(ctx context.Context, customerID, addressID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) SetPickupRestaurant(ctx context.Context, customerID, restaurantID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, customerID, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Validate(ctx context.Context, customerID uuid.UUID) (*cart.ValidationResult, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.ValidationResult), args.Error(1)
}

func newCartRouter(svc cart.Service) *chi.Mux {
	router := chi.NewRouter()
	handler.NewCartHandler(svc).RegisterRoutes(router)
	return router
}

func TestCartHandler_GetCart(t *testing.T) {
	mockService := new(MockCartService)
	customerID := uuid.Must(uuid.NewV4())

	expected := &cart.Cart{
		ID:          uuid.Must(uuid.NewV4()),
		CustomerID:  customerID,
		ServiceType: domain.ServicePickup,
		Zone:        domain.ZoneCapital,
		Status:      cart.StatusActive,
		Items:       []cart.Item{},
	}
	mockService.On("GetOrCreate", mock.Anything, customerID).Return(expected, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Customer-ID", customerID.String())
	rr := httptest.NewRecorder()

	newCartRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got cart.Cart
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	diff := cmp.Diff(*expected, got)
	require.Empty(t, diff, "Cart mismatch (-expected +got):\n%s", diff)
	mockService.AssertExpectations(t)
}

func TestCartHandler_GetCart_MissingIdentity(t *testing.T) {
	mockService := new(MockCartService)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rr := httptest.NewRecorder()

	newCartRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	mockService.AssertNotCalled(t, "GetOrCreate")
}

func TestCartHandler_AddItem_InvalidQuantity(t *testing.T) {
	mockService := new(MockCartService)
	customerID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	body, err := json.Marshal(map[string]any{"product_id": productID, "quantity": 0})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
	req.Header.Set("X-Customer-ID", customerID.String())
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	newCartRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "AddItem")
}

func TestCartHandler_SetServiceType_DeliveryWithoutAddress(t *testing.T) {
	mockService := new(MockCartService)
	customerID := uuid.Must(uuid.NewV4())

	mockService.On("SetServiceType", mock.Anything, customerID, domain.ServiceDelivery).
		Return(nil, apperr.Precondition(cart.CodeDeliveryAddressRequired, "attach a delivery address before switching to delivery")).Once()

	body, err := json.Marshal(handler.SetServiceTypeRequest{ServiceType: "delivery"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/cart/service-type", bytes.NewBuffer(body))
	req.Header.Set("X-Customer-ID", customerID.String())
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	newCartRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var errResp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, cart.CodeDeliveryAddressRequired, errResp.Code)
	mockService.AssertExpectations(t)
}

func TestCartHandler_RemoveItem_Forbidden(t *testing.T) {
	mockService := new(MockCartService)
	customerID := uuid.Must(uuid.NewV4())
	itemID := uuid.Must(uuid.NewV4())

	mockService.On("RemoveItem", mock.Anything, customerID, itemID).
		Return(nil, apperr.Forbidden(cart.CodeNotYourItem, "cart item belongs to another customer")).Once()

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/"+itemID.String(), nil)
	req.Header.Set("X-Customer-ID", customerID.String())
	rr := httptest.NewRecorder()

	newCartRouter(mockService).ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	mockService.AssertExpectations(t)
}
