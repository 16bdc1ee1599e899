package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
	"github.com/utafrali/schoolwear/pkg/logger"
)

func newCheckout(t *testing.T, token string) (*CheckoutService, *CartStore, *mockBackend, *mockEvents) {
	t.Helper()
	cart := NewCartStore(nil, logger.Discard(), WithoutPersistence())
	b := &mockBackend{}
	ev := &mockEvents{}
	svc := NewCheckoutService(cart, staticTokens(token), b, ev, logger.Discard())
	svc.newUUID = func() string { return "idem-1" }
	return svc, cart, b, ev
}

func TestCheckoutService_Success(t *testing.T) {
	svc, cart, b, ev := newCheckout(t, "tok")
	cart.AddItem(polo(), 2, "M")
	items := cart.Items()

	b.On("Profile", mock.Anything, "tok").Return(&domain.Profile{ID: 9, SchoolID: 3}, nil)
	b.On("CreateOrder", mock.Anything, "tok", domain.NewOrderRequest(3, items), "idem-1").Return(int64(77), nil)
	ev.On("PublishCheckoutCompleted", mock.Anything, int64(77), int64(3), items).Return(nil)

	res, err := svc.Checkout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &CheckoutResult{OrderID: 77, Total: 3980, ItemCount: 2}, res)
	assert.Empty(t, cart.Items())
	b.AssertExpectations(t)
	ev.AssertExpectations(t)
}

func TestCheckoutService_FailureKeepsCartAndServerMessage(t *testing.T) {
	svc, cart, b, ev := newCheckout(t, "tok")
	cart.AddItem(polo(), 2, "M")

	b.On("Profile", mock.Anything, "tok").Return(&domain.Profile{SchoolID: 3}, nil)
	b.On("CreateOrder", mock.Anything, "tok", mock.Anything, "idem-1").
		Return(int64(0), apperrors.Rejected("Stock insuficiente para Polo (M)"))

	_, err := svc.Checkout(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Stock insuficiente para Polo (M)", appErr.Message)
	assert.Equal(t, 2, cart.ProductQuantity(42, "M"))
	ev.AssertNotCalled(t, "PublishCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_EmptyCart(t *testing.T) {
	svc, _, b, _ := newCheckout(t, "tok")

	_, err := svc.Checkout(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	b.AssertNotCalled(t, "Profile", mock.Anything, mock.Anything)
}

func TestCheckoutService_NoToken(t *testing.T) {
	svc, cart, _, _ := newCheckout(t, "")
	cart.AddItem(polo(), 1, "M")

	_, err := svc.Checkout(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 1, cart.TotalQuantity())
}

func TestCheckoutService_SchoolFromTokenFallback(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"escola_id": 12}).SignedString([]byte("k"))
	require.NoError(t, err)

	svc, cart, b, ev := newCheckout(t, token)
	cart.AddItem(polo(), 1, "M")

	b.On("Profile", mock.Anything, token).Return(&domain.Profile{ID: 9}, nil)
	b.On("CreateOrder", mock.Anything, token, mock.MatchedBy(func(r domain.OrderRequest) bool {
		return r.SchoolID == 12
	}), "idem-1").Return(int64(5), nil)
	ev.On("PublishCheckoutCompleted", mock.Anything, int64(5), int64(12), mock.Anything).Return(nil)

	_, err = svc.Checkout(context.Background())
	require.NoError(t, err)
}

func TestCheckoutService_SchoolUnresolvable(t *testing.T) {
	svc, cart, b, _ := newCheckout(t, "opaque")
	cart.AddItem(polo(), 1, "M")
	b.On("Profile", mock.Anything, "opaque").Return(&domain.Profile{ID: 9}, nil)

	_, err := svc.Checkout(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, cart.TotalQuantity())
	b.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckoutService_EventFailureDoesNotFailCheckout(t *testing.T) {
	svc, cart, b, ev := newCheckout(t, "tok")
	cart.AddItem(polo(), 1, "M")

	b.On("Profile", mock.Anything, "tok").Return(&domain.Profile{SchoolID: 3}, nil)
	b.On("CreateOrder", mock.Anything, "tok", mock.Anything, "idem-1").Return(int64(8), nil)
	ev.On("PublishCheckoutCompleted", mock.Anything, int64(8), int64(3), mock.Anything).Return(errors.New("broker down"))

	res, err := svc.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.OrderID)
	assert.Empty(t, cart.Items())
}

func TestCheckoutService_KeepsItemsAddedWhileOrderInFlight(t *testing.T) {
	svc, cart, b, ev := newCheckout(t, "tok")
	cart.AddItem(polo(), 2, "M")
	items := cart.Items()
	cap7 := domain.ProductSnapshot{ProductID: 7, UnitPrice: 1250, ModelName: "Cap"}

	b.On("Profile", mock.Anything, "tok").Return(&domain.Profile{SchoolID: 3}, nil)
	b.On("CreateOrder", mock.Anything, "tok", domain.NewOrderRequest(3, items), "idem-1").
		Run(func(mock.Arguments) {
			cart.AddItem(cap7, 1, "")
			cart.AddItem(polo(), 1, "M")
		}).
		Return(int64(78), nil)
	ev.On("PublishCheckoutCompleted", mock.Anything, int64(78), int64(3), items).Return(nil)

	res, err := svc.Checkout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.ItemCount)
	assert.Equal(t, 1, cart.ProductQuantity(7, ""))
	assert.Equal(t, 1, cart.ProductQuantity(42, "M"))
	assert.Equal(t, 2, cart.TotalQuantity())
}
