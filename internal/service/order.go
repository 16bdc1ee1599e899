package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
)

// OrderBackend reads and cancels orders on the backend.
type OrderBackend interface {
	ListOrders(ctx context.Context, token string) ([]domain.OrderSummary, error)
	ListAllOrders(ctx context.Context, token string) ([]domain.OrderSummary, error)
	GetOrder(ctx context.Context, token string, id int64) (*domain.OrderDetail, error)
	CancelOrder(ctx context.Context, token string, id int64) error
}

// TokenSource provides the current session token.
type TokenSource interface {
	Token(ctx context.Context) string
}

// OrderView is an order decorated for display.
type OrderView struct {
	domain.OrderSummary
	Display     domain.StatusDisplay `json:"display"`
	DueIn       string               `json:"due_in"`
	Cancellable bool                 `json:"cancellable"`
}

// OrderDetailView is an order with its lines, decorated for display.
type OrderDetailView struct {
	OrderView
	Items []domain.OrderLine `json:"items"`
}

// OrderService fetches orders fresh from the backend on every call.
type OrderService struct {
	backend OrderBackend
	tokens  TokenSource
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrderService creates an order service.
func NewOrderService(backend OrderBackend, tokens TokenSource, logger *slog.Logger) *OrderService {
	return &OrderService{
		backend: backend,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *OrderService) token(ctx context.Context) (string, error) {
	token := s.tokens.Token(ctx)
	if token == "" {
		return "", apperrors.Unauthorized("sign in to see your orders")
	}
	return token, nil
}

func (s *OrderService) view(o domain.OrderSummary, now time.Time) OrderView {
	return OrderView{
		OrderSummary: o,
		Display:      domain.FormatStatus(o.Status),
		DueIn:        domain.DaysUntil(o.DeliveryDate, now),
		Cancellable:  domain.IsCancellable(o.Status),
	}
}

// List returns the signed-in user's orders.
func (s *OrderService) List(ctx context.Context) ([]OrderView, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.backend.ListOrders(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	now := s.now()
	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = s.view(o, now)
	}
	return views, nil
}

// Get returns one order with its lines.
func (s *OrderService) Get(ctx context.Context, id int64) (*OrderDetailView, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	o, err := s.backend.GetOrder(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &OrderDetailView{OrderView: s.view(o.OrderSummary, s.now()), Items: o.Items}, nil
}

// Cancel cancels an order that is still pending or confirmed.
func (s *OrderService) Cancel(ctx context.Context, id int64) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	o, err := s.backend.GetOrder(ctx, token, id)
	if err != nil {
		return fmt.Errorf("get order %d: %w", id, err)
	}
	if !domain.IsCancellable(o.Status) {
		return apperrors.Conflict(fmt.Sprintf("an order that is %s can no longer be cancelled",
			domain.FormatStatus(o.Status).Label))
	}

	if err := s.backend.CancelOrder(ctx, token, id); err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "order cancelled", slog.Int64("order_id", id))
	return nil
}

// Dashboard summarizes every order for the admin dashboard.
func (s *OrderService) Dashboard(ctx context.Context) (domain.DashboardSummary, error) {
	token, err := s.token(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	orders, err := s.backend.ListAllOrders(ctx, token)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("list all orders: %w", err)
	}
	return domain.SummarizeOrders(orders), nil
}
