package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/schoolwear/internal/domain"
	pkgkafka "github.com/utafrali/schoolwear/pkg/kafka"
	"github.com/utafrali/schoolwear/pkg/logger"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

// blockingProducer records events and holds each publish until released.
type blockingProducer struct {
	mu      sync.Mutex
	events  []*pkgkafka.Event
	release chan struct{}
}

func (b *blockingProducer) Publish(_ context.Context, _ string, event *pkgkafka.Event) error {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *blockingProducer) published() []*pkgkafka.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*pkgkafka.Event(nil), b.events...)
}

func sampleLines() domain.Lines {
	return domain.Lines{
		{ProductID: 42, Size: "M", Quantity: 2, UnitPrice: 1990},
		{ProductID: 7, Quantity: 1, UnitPrice: 450},
	}
}

func TestPublisher_CartUpdated(t *testing.T) {
	prod := &mockProducer{}
	prod.On("Publish", mock.Anything, TopicCartUpdated, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		var data CartUpdatedData
		if err := e.UnmarshalData(&data); err != nil {
			return false
		}
		return e.AggregateID == "device-1" &&
			e.Source == SourceStorefront &&
			data.ItemCount == 3 && data.LineCount == 2 && data.TotalAmount == 4430
	})).Return(nil).Once()

	p := NewPublisher(prod, "device-1", logger.Discard(), 4)
	p.OnCartChanged(sampleLines())
	require.NoError(t, p.Close(context.Background()))

	prod.AssertExpectations(t)
}

func TestPublisher_PublishFailureIsLogged(t *testing.T) {
	prod := &mockProducer{}
	prod.On("Publish", mock.Anything, TopicCartUpdated, mock.Anything).Return(errors.New("broker down")).Twice()

	p := NewPublisher(prod, "device-1", logger.Discard(), 4)
	p.OnCartChanged(sampleLines())
	p.OnCartChanged(domain.Lines{})
	require.NoError(t, p.Close(context.Background()))

	prod.AssertExpectations(t)
}

func TestPublisher_DropsOldestWhenFull(t *testing.T) {
	prod := &blockingProducer{release: make(chan struct{})}
	p := NewPublisher(prod, "device-1", logger.Discard(), 2)

	// The worker takes the first snapshot and blocks on it; the queue then
	// holds two and every further snapshot evicts the oldest.
	p.OnCartChanged(domain.Lines{{ProductID: 1, Quantity: 1}})
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, time.Millisecond)
	for q := 2; q <= 5; q++ {
		p.OnCartChanged(domain.Lines{{ProductID: 1, Quantity: q}})
	}

	close(prod.release)
	require.NoError(t, p.Close(context.Background()))

	var counts []int
	for _, e := range prod.published() {
		var data CartUpdatedData
		require.NoError(t, e.UnmarshalData(&data))
		counts = append(counts, data.ItemCount)
	}
	assert.Equal(t, []int{1, 4, 5}, counts)
}

func TestPublisher_Disabled(t *testing.T) {
	p := NewPublisher(nil, "device-1", logger.Discard(), 0)

	assert.False(t, p.Enabled())
	p.OnCartChanged(sampleLines())
	assert.NoError(t, p.PublishCheckoutCompleted(context.Background(), 1, 3, sampleLines()))
	assert.NoError(t, p.Close(context.Background()))
}

func TestPublisher_CheckoutCompletedCarriesCorrelationID(t *testing.T) {
	prod := &mockProducer{}
	prod.On("Publish", mock.Anything, TopicCheckoutCompleted, mock.MatchedBy(func(e *pkgkafka.Event) bool {
		var data CheckoutCompletedData
		if err := e.UnmarshalData(&data); err != nil {
			return false
		}
		return e.CorrelationID == "corr-1" && e.AggregateID == "77" &&
			data.OrderID == 77 && data.SchoolID == 3 && data.TotalAmount == 4430
	})).Return(nil).Once()

	p := NewPublisher(prod, "device-1", logger.Discard(), 1)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCheckoutCompleted(ctx, 77, 3, sampleLines()))
	prod.AssertExpectations(t)
}

func TestPublisher_AfterCloseIgnoresSnapshots(t *testing.T) {
	prod := &mockProducer{}
	p := NewPublisher(prod, "device-1", logger.Discard(), 1)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	assert.NotPanics(t, func() { p.OnCartChanged(sampleLines()) })
	prod.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
