package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/schoolwear/internal/domain"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockBackend) ListOrders(ctx context.Context, token string) ([]domain.OrderSummary, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderSummary), args.Error(1)
}

func (m *mockBackend) ListAllOrders(ctx context.Context, token string) ([]domain.OrderSummary, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderSummary), args.Error(1)
}

func (m *mockBackend) GetOrder(ctx context.Context, token string, id int64) (*domain.OrderDetail, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderDetail), args.Error(1)
}

func (m *mockBackend) CancelOrder(ctx context.Context, token string, id int64) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *mockBackend) Profile(ctx context.Context, token string) (*domain.Profile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockBackend) CreateOrder(ctx context.Context, token string, req domain.OrderRequest, key string) (int64, error) {
	args := m.Called(ctx, token, req, key)
	return args.Get(0).(int64), args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishCheckoutCompleted(ctx context.Context, orderID, schoolID int64, items domain.Lines) error {
	args := m.Called(ctx, orderID, schoolID, items)
	return args.Error(0)
}

// staticTokens is a TokenSource returning a fixed token.
type staticTokens string

func (s staticTokens) Token(context.Context) string { return string(s) }
