package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/schoolwear/internal/domain"
	"github.com/utafrali/schoolwear/internal/repository"
)

const defaultPersistTimeout = 5 * time.Second

// Listener receives a snapshot of the cart after every effective mutation.
// The slice is the listener's own copy.
type Listener func(items domain.Lines)

type listenerEntry struct {
	id uint64
	fn Listener
}

// round is one notification: the post-mutation items and the listeners that
// were registered when the mutation happened.
type round struct {
	items     domain.Lines
	listeners []Listener
}

// CartOption configures a CartStore.
type CartOption func(*CartStore)

// WithoutPersistence creates a store that never touches storage and is ready
// without Init.
func WithoutPersistence() CartOption {
	return func(s *CartStore) { s.kv = nil }
}

// WithStorageKey overrides the key the cart is stored under.
func WithStorageKey(key string) CartOption {
	return func(s *CartStore) { s.key = key }
}

// WithPersistTimeout bounds each storage write.
func WithPersistTimeout(d time.Duration) CartOption {
	return func(s *CartStore) { s.persistTimeout = d }
}

// CartStore is the single source of truth for the cart. Memory is
// authoritative; storage is a mirror written by one background writer.
//
// Every effective mutation updates memory, then delivers one notification
// round, then queues a snapshot for storage. Rounds are delivered one at a
// time in mutation order. A mutation made from inside a listener is applied
// immediately and its round is delivered after the current one returns.
//
// Mutations and queries block until Init has completed.
type CartStore struct {
	kv             repository.KeyValueStore
	logger         *slog.Logger
	key            string
	persistTimeout time.Duration

	initOnce sync.Once
	ready    chan struct{}

	mu         sync.Mutex
	items      domain.Lines
	listeners  []listenerEntry
	nextID     uint64
	rounds     []round
	delivering bool

	// Persistence state, guarded by mu.
	pending    domain.Lines
	queuedSeq  uint64
	writtenSeq uint64
	writtenCh  chan struct{}
	closed     bool

	kick       chan struct{}
	stop       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

// NewCartStore creates a cart store persisting to kv. Call Init before use.
func NewCartStore(kv repository.KeyValueStore, logger *slog.Logger, opts ...CartOption) *CartStore {
	s := &CartStore{
		kv:             kv,
		logger:         logger,
		key:            domain.CartStorageKey,
		persistTimeout: defaultPersistTimeout,
		ready:          make(chan struct{}),
		items:          domain.Lines{},
		writtenCh:      make(chan struct{}),
		kick:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		writerDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.kv == nil {
		s.initOnce.Do(func() { close(s.ready) })
		close(s.writerDone)
		return s
	}

	go s.writeLoop()
	return s
}

// Init loads the stored cart once and replaces memory wholesale. When stored
// data was found, one notification round is delivered. Storage failures and
// corrupt data are logged and treated as an empty cart. Later calls are no-ops.
func (s *CartStore) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		items, found := s.load(ctx)

		s.mu.Lock()
		if found {
			s.items = items
			s.rounds = append(s.rounds, s.roundLocked())
		}
		s.mu.Unlock()
		close(s.ready)

		if found {
			s.logger.InfoContext(ctx, "cart restored from storage",
				slog.Int("lines", len(items)),
				slog.Int("quantity", items.Quantity()),
			)
			s.deliver()
		}
	})
}

func (s *CartStore) load(ctx context.Context) (domain.Lines, bool) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load cart, starting empty",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var stored domain.Lines
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.ErrorContext(ctx, "stored cart is corrupt, starting empty",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return sanitize(stored), true
}

// sanitize restores the line invariants on data read from storage: positive
// quantities and one line per (product, size).
func sanitize(stored domain.Lines) domain.Lines {
	out := make(domain.Lines, 0, len(stored))
	for _, l := range stored {
		if l.Quantity <= 0 {
			continue
		}
		l.Size = domain.NormalizeSize(l.Size)
		if i := out.Index(l.ProductID, l.Size); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

// AddItem adds quantity units of the product in size, merging into an
// existing line. A zero quantity means one unit; a negative quantity is
// ignored.
func (s *CartStore) AddItem(product domain.ProductSnapshot, quantity int, size string) {
	if quantity < 0 {
		return
	}
	if quantity == 0 {
		quantity = 1
	}
	size = domain.NormalizeSize(size)

	s.mutate("add", func() bool {
		if i := s.items.Index(product.ProductID, size); i >= 0 {
			s.items[i].Quantity += quantity
			return true
		}
		s.items = append(s.items, domain.NewLineItem(product, quantity, size))
		return true
	})
}

// UpdateQuantity overwrites the quantity of a line. A quantity of zero or
// less removes the line; a missing line is left alone.
func (s *CartStore) UpdateQuantity(productID int64, quantity int, size string) {
	if quantity <= 0 {
		s.RemoveItem(productID, size)
		return
	}
	size = domain.NormalizeSize(size)

	s.mutate("update", func() bool {
		i := s.items.Index(productID, size)
		if i < 0 {
			return false
		}
		s.items[i].Quantity = quantity
		return true
	})
}

// RemoveItem removes the line for (productID, size). Removing a missing
// line is a no-op.
func (s *CartStore) RemoveItem(productID int64, size string) {
	size = domain.NormalizeSize(size)

	s.mutate("remove", func() bool {
		i := s.items.Index(productID, size)
		if i < 0 {
			return false
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true
	})
}

// Clear empties the cart. It always notifies, even when already empty.
func (s *CartStore) Clear() {
	s.mutate("clear", func() bool {
		s.items = domain.Lines{}
		return true
	})
}

// RemoveLines subtracts the quantities in lines from the matching cart lines
// and drops lines that reach zero. Units added after lines was taken stay in
// the cart. One round is delivered when anything changed.
func (s *CartStore) RemoveLines(lines domain.Lines) {
	s.mutate("remove_lines", func() bool {
		changed := false
		for _, l := range lines {
			i := s.items.Index(l.ProductID, domain.NormalizeSize(l.Size))
			if i < 0 || l.Quantity <= 0 {
				continue
			}
			changed = true
			if s.items[i].Quantity > l.Quantity {
				s.items[i].Quantity -= l.Quantity
				continue
			}
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
		return changed
	})
}

// Items returns a snapshot of the cart lines.
func (s *CartStore) Items() domain.Lines {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Total returns Σ unit price × quantity in minor units.
func (s *CartStore) Total() int64 {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Total()
}

// TotalQuantity returns the number of units in the cart.
func (s *CartStore) TotalQuantity() int {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Quantity()
}

// HasProduct reports whether a line exists for (productID, size).
func (s *CartStore) HasProduct(productID int64, size string) bool {
	return s.ProductQuantity(productID, size) > 0
}

// ProductQuantity returns the quantity on the (productID, size) line, or 0.
func (s *CartStore) ProductQuantity(productID int64, size string) int {
	size = domain.NormalizeSize(size)
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.items.Index(productID, size); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Subscribe registers fn for future notification rounds. The returned
// function unregisters it and is safe to call more than once. A listener
// removed while a round is in flight may still receive that round.
func (s *CartStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// mutate applies fn under the lock. When fn reports a change, a round and a
// storage write are queued and pending rounds are delivered.
func (s *CartStore) mutate(op string, fn func() bool) {
	<-s.ready

	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.rounds = append(s.rounds, s.roundLocked())
	s.queuePersistLocked()
	s.mu.Unlock()

	cartMutationsTotal.WithLabelValues(op).Inc()
	s.deliver()
}

func (s *CartStore) roundLocked() round {
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	return round{items: s.items.Clone(), listeners: listeners}
}

// deliver drains the round queue unless another caller is already draining
// it, in which case that caller delivers the queued rounds in order.
func (s *CartStore) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.rounds) > 0 {
		r := s.rounds[0]
		s.rounds[0] = round{}
		s.rounds = s.rounds[1:]
		s.mu.Unlock()

		for _, fn := range r.listeners {
			s.notify(fn, r.items.Clone())
		}

		s.mu.Lock()
	}
	s.rounds = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *CartStore) notify(fn Listener, items domain.Lines) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("cart listener panicked", slog.Any("panic", rec))
		}
	}()
	fn(items)
}

// queuePersistLocked replaces the pending snapshot and wakes the writer.
func (s *CartStore) queuePersistLocked() {
	if s.kv == nil || s.closed {
		return
	}
	s.pending = s.items.Clone()
	s.queuedSeq++
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *CartStore) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.kick:
			s.writeLatest()
		case <-s.stop:
			s.writeLatest()
			return
		}
	}
}

// writeLatest writes the most recent pending snapshot. Intermediate
// snapshots superseded before the writer woke up are never written.
func (s *CartStore) writeLatest() {
	s.mu.Lock()
	if s.writtenSeq == s.queuedSeq {
		s.mu.Unlock()
		return
	}
	seq := s.queuedSeq
	snapshot := s.pending
	s.mu.Unlock()

	if err := s.write(snapshot); err != nil {
		cartPersistFailuresTotal.Inc()
		s.logger.Error("failed to persist cart",
			slog.String("error", err.Error()),
			slog.Int("lines", len(snapshot)),
		)
	}

	s.mu.Lock()
	s.writtenSeq = seq
	close(s.writtenCh)
	s.writtenCh = make(chan struct{})
	s.mu.Unlock()
}

func (s *CartStore) write(items domain.Lines) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	return s.kv.Set(ctx, s.key, string(data))
}

// Flush waits until every mutation made before the call has been written,
// or attempted, to storage.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	target := s.queuedSeq
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.writtenSeq >= target {
			s.mu.Unlock()
			return nil
		}
		ch := s.writtenCh
		s.mu.Unlock()

		select {
		case <-ch:
		case <-s.writerDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close flushes pending writes and stops the writer. Mutations after Close
// still update memory and notify but are no longer persisted.
func (s *CartStore) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.kv == nil {
			return
		}
		close(s.stop)
		select {
		case <-s.writerDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Ping checks the storage the cart is mirrored to.
func (s *CartStore) Ping(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Ping(ctx)
}
