package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/schoolwear/internal/backend"
	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
	"github.com/utafrali/schoolwear/pkg/tracing"
)

// OrderPlacer creates orders on the backend.
type OrderPlacer interface {
	Profile(ctx context.Context, token string) (*domain.Profile, error)
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest, idempotencyKey string) (int64, error)
}

// CheckoutEvents is notified of completed checkouts.
type CheckoutEvents interface {
	PublishCheckoutCompleted(ctx context.Context, orderID, schoolID int64, items domain.Lines) error
}

// CheckoutResult describes a placed order.
type CheckoutResult struct {
	OrderID   int64 `json:"order_id"`
	Total     int64 `json:"total"`
	ItemCount int   `json:"item_count"`
}

// CheckoutService hands the cart to the backend as an order.
type CheckoutService struct {
	cart    *CartStore
	tokens  TokenSource
	placer  OrderPlacer
	events  CheckoutEvents
	logger  *slog.Logger
	newUUID func() string
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(cart *CartStore, tokens TokenSource, placer OrderPlacer, events CheckoutEvents, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		cart:    cart,
		tokens:  tokens,
		placer:  placer,
		events:  events,
		logger:  logger,
		newUUID: uuid.NewString,
	}
}

// Checkout submits the current cart. On success the submitted lines are
// removed from the cart, so anything added while the order was in flight
// stays. On failure the cart is left intact and the backend's message is
// returned.
func (s *CheckoutService) Checkout(ctx context.Context) (result *CheckoutResult, err error) {
	items := s.cart.Items()
	ctx, span := tracing.StartSpan(ctx, "checkout.place", attribute.Int("cart.lines", len(items)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if len(items) == 0 {
		return nil, apperrors.InvalidInput("the cart is empty")
	}

	token := s.tokens.Token(ctx)
	if token == "" {
		return nil, apperrors.Unauthorized("sign in to place an order")
	}

	profile, err := s.placer.Profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	schoolID, err := backend.ResolveSchoolID(profile, token)
	if err != nil {
		return nil, err
	}

	req := domain.NewOrderRequest(schoolID, items)
	orderID, err := s.placer.CreateOrder(ctx, token, req, s.newUUID())
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		s.logger.WarnContext(ctx, "checkout failed, cart kept",
			slog.Int64("school_id", schoolID),
			slog.Int("lines", len(items)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.cart.RemoveLines(items)
	checkoutsTotal.WithLabelValues("completed").Inc()

	if err := s.events.PublishCheckoutCompleted(ctx, orderID, schoolID, items); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout completed",
		slog.Int64("order_id", orderID),
		slog.Int64("school_id", schoolID),
		slog.Int64("total_amount", req.Total),
	)

	return &CheckoutResult{OrderID: orderID, Total: req.Total, ItemCount: items.Quantity()}, nil
}
