package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/schoolwear/internal/domain"
	pkgkafka "github.com/utafrali/schoolwear/pkg/kafka"
)

// Kafka topic constants for storefront events.
const (
	TopicCartUpdated       = "storefront.cart.updated"
	TopicCheckoutCompleted = "storefront.checkout.completed"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events emitted by this process.
const SourceStorefront = "storefront"

const (
	defaultBufferSize = 64
	publishTimeout    = 10 * time.Second
)

var eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "storefront_events_dropped_total",
	Help: "Cart snapshots dropped because the publish queue was full.",
})

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Items       []CartItemData `json:"items"`
	LineCount   int            `json:"line_count"`
	ItemCount   int            `json:"item_count"`
	TotalAmount int64          `json:"total_amount"`
}

// CheckoutCompletedData is the payload for a checkout.completed event.
type CheckoutCompletedData struct {
	OrderID     int64          `json:"order_id"`
	SchoolID    int64          `json:"school_id"`
	Items       []CartItemData `json:"items"`
	TotalAmount int64          `json:"total_amount"`
}

func itemData(items domain.Lines) []CartItemData {
	out := make([]CartItemData, len(items))
	for i, it := range items {
		out[i] = CartItemData{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return out
}

// Publisher publishes storefront events. Cart snapshots are queued and sent
// by a single worker so cart listeners never block on the broker. A nil
// producer disables publishing.
type Publisher struct {
	producer   pkgkafka.Publisher
	logger     *slog.Logger
	instanceID string

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Lines
	done   chan struct{}
}

// NewPublisher creates a publisher. instanceID keys the cart events of this
// process. bufferSize <= 0 selects the default.
func NewPublisher(producer pkgkafka.Publisher, instanceID string, logger *slog.Logger, bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	p := &Publisher{
		producer:   producer,
		logger:     logger,
		instanceID: instanceID,
		queue:      make(chan domain.Lines, bufferSize),
		done:       make(chan struct{}),
	}
	if producer == nil {
		close(p.done)
		return p
	}
	go p.run()
	return p
}

// Enabled reports whether events are actually published.
func (p *Publisher) Enabled() bool {
	return p.producer != nil
}

// OnCartChanged is a cart listener. It never blocks: when the queue is full
// the oldest snapshot is dropped.
func (p *Publisher) OnCartChanged(items domain.Lines) {
	if p.producer == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	for {
		select {
		case p.queue <- items:
			return
		default:
		}
		select {
		case <-p.queue:
			eventsDroppedTotal.Inc()
		default:
		}
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for items := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.publishCartUpdated(ctx, items); err != nil {
			p.logger.Error("failed to publish cart.updated event",
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

func (p *Publisher) publishCartUpdated(ctx context.Context, items domain.Lines) error {
	data := CartUpdatedData{
		Items:       itemData(items),
		LineCount:   len(items),
		ItemCount:   items.Quantity(),
		TotalAmount: items.Total(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, p.instanceID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	if err := p.producer.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.Debug("published cart.updated event",
		slog.Int("item_count", data.ItemCount),
		slog.Int64("total_amount", data.TotalAmount),
	)
	return nil
}

// PublishCheckoutCompleted publishes a checkout.completed event synchronously.
func (p *Publisher) PublishCheckoutCompleted(ctx context.Context, orderID, schoolID int64, items domain.Lines) error {
	if p.producer == nil {
		return nil
	}

	data := CheckoutCompletedData{
		OrderID:     orderID,
		SchoolID:    schoolID,
		Items:       itemData(items),
		TotalAmount: items.Total(),
	}

	event, err := pkgkafka.NewEventFromContext(ctx, TopicCheckoutCompleted, fmt.Sprintf("%d", orderID), AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create checkout.completed event: %w", err)
	}
	if err := p.producer.Publish(ctx, TopicCheckoutCompleted, event); err != nil {
		return fmt.Errorf("publish checkout.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published checkout.completed event",
		slog.Int64("order_id", orderID),
	)
	return nil
}

// Close stops accepting snapshots and waits for the queued ones to be sent.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if p.producer != nil {
			close(p.queue)
		}
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
