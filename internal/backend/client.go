package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
	"github.com/utafrali/schoolwear/pkg/httpclient"
	"github.com/utafrali/schoolwear/pkg/tracing"
)

const serviceName = "backend"

// maxResponseBytes caps decoded response bodies.
const maxResponseBytes = 4 << 20

// Client calls the storefront REST backend.
type Client struct {
	baseURL string
	http    httpclient.Doer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRateLimit caps outbound calls at rps with the given burst. Callers
// wait for a token until their context expires. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a backend client. doer is normally a
// httpclient.CircuitBreakerClient wrapping a retrying httpclient.Client.
func NewClient(baseURL string, doer httpclient.Doer, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProduct fetches a catalog product.
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var dto productDTO
	if err := c.call(ctx, "get_product", http.MethodGet, "/produtos/"+strconv.FormatInt(id, 10), "", nil, "", &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// ListOrders lists the signed-in user's orders.
func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.OrderSummary, error) {
	return c.listOrders(ctx, "list_orders", "/encomendas", token)
}

// ListAllOrders lists every order. The backend restricts it to admins.
func (c *Client) ListAllOrders(ctx context.Context, token string) ([]domain.OrderSummary, error) {
	return c.listOrders(ctx, "list_all_orders", "/admin/encomendas", token)
}

func (c *Client) listOrders(ctx context.Context, op, path, token string) ([]domain.OrderSummary, error) {
	var dtos []orderDTO
	if err := c.call(ctx, op, http.MethodGet, path, token, nil, "", &dtos); err != nil {
		return nil, err
	}
	orders := make([]domain.OrderSummary, len(dtos))
	for i := range dtos {
		orders[i] = dtos[i].summary()
	}
	return orders, nil
}

// GetOrder fetches one order with its lines.
func (c *Client) GetOrder(ctx context.Context, token string, id int64) (*domain.OrderDetail, error) {
	var dto orderDTO
	if err := c.call(ctx, "get_order", http.MethodGet, "/encomendas/"+strconv.FormatInt(id, 10), token, nil, "", &dto); err != nil {
		return nil, err
	}
	return dto.detail(), nil
}

// CreateOrder submits an order and returns its id. The idempotency key lets
// the request be retried safely.
func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest, idempotencyKey string) (int64, error) {
	var created createdOrderDTO
	if err := c.call(ctx, "create_order", http.MethodPost, "/encomendas", token, newCreateOrderDTO(req), idempotencyKey, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// CancelOrder asks the backend to cancel an order.
func (c *Client) CancelOrder(ctx context.Context, token string, id int64) error {
	return c.call(ctx, "cancel_order", http.MethodPut, "/encomendas/"+strconv.FormatInt(id, 10)+"/cancelar", token, nil, "", nil)
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context, token string) (*domain.Profile, error) {
	var dto profileDTO
	if err := c.call(ctx, "profile", http.MethodGet, "/utilizadores/me", token, nil, "", &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// Ping reports whether the backend is currently considered reachable. It
// does not hit the network; it reflects the circuit breaker.
func (c *Client) Ping(_ context.Context) error {
	if cb, ok := c.http.(*httpclient.CircuitBreakerClient); ok && cb.State() == gobreaker.StateOpen {
		return httpclient.ErrCircuitOpen
	}
	return nil
}

// call performs one request and decodes the envelope payload into out.
func (c *Client) call(ctx context.Context, op, method, path, token string, body any, idempotencyKey string, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "backend."+op,
		attribute.String("http.method", method),
		attribute.String("backend.path", path),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.WarnContext(ctx, "backend rate limit reached", slog.String("operation", op))
			return apperrors.Unavailable("too many requests to the store backend, please try again shortly", fmt.Errorf("%s: rate limit: %w", op, err))
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(httpclient.IdempotencyKeyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.Unavailable("could not read the store backend response", fmt.Errorf("read %s response: %w", op, err))
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode %s envelope: %w", op, err)
		}
	}
	if !env.ok() {
		msg := env.message()
		if msg == "" {
			msg = "the request was rejected by the store backend"
		}
		return apperrors.Rejected(msg)
	}

	if out == nil {
		return nil
	}
	payload := env.payload()
	if isNull(payload) {
		return fmt.Errorf("decode %s response: %w", op, errEmptyPayload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", op, err)
	}
	return nil
}

var errEmptyPayload = errors.New("response carried no data")

// transportError maps failures that produced no usable response.
func (c *Client) transportError(ctx context.Context, op string, err error) error {
	var serverErr *httpclient.ServerError
	switch {
	case errors.As(err, &serverErr):
		msg := httpclient.ServerMessage(serverErr.Body)
		if msg == "" {
			msg = http.StatusText(serverErr.StatusCode)
		}
		return httpclient.MapStatusError(serverErr.StatusCode, msg, serviceName)
	case errors.Is(err, httpclient.ErrCircuitOpen), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.WarnContext(ctx, "backend circuit open", slog.String("operation", op))
		return apperrors.Unavailable("the store backend is temporarily unavailable, please try again shortly", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		c.logger.ErrorContext(ctx, "backend request failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return apperrors.Unavailable("could not reach the store backend", fmt.Errorf("%s: %w", op, err))
	}
}
