// Package bus provides typed fan-out broadcast topics.
//
// Each Topic keeps a bounded ring per subscriber. Publishing never blocks:
// when a subscriber's ring is full the oldest message is overwritten and the
// subscriber's lag counter is incremented. The next Recv on that
// subscription returns a Lagged error carrying the skip count, after which
// the subscriber resumes at the ring tail. Closing a topic makes every
// pending and future Recv return ErrClosed once the ring drains.
//
// Publish fails only when the topic has no subscribers; callers treat that
// as non-fatal.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wad-Law/ingestor/pkg/types"
)

// DefaultCapacity is the per-subscriber ring size when none is configured.
const DefaultCapacity = 1024

var (
	// ErrClosed is returned by Recv after the topic is closed and the
	// subscriber's ring has drained, and by Publish on a closed topic.
	ErrClosed = errors.New("bus: topic closed")

	// ErrNoSubscribers is returned by Publish when nobody is subscribed.
	ErrNoSubscribers = errors.New("bus: no subscribers")
)

// LaggedError reports that a subscriber fell behind and skipped Count
// messages. The subscription remains usable; the next Recv resumes at the
// oldest retained message.
type LaggedError struct {
	Count uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("bus: subscriber lagged, skipped %d messages", e.Count)
}

// AsLagged unwraps a Lagged error, returning the skip count.
func AsLagged(err error) (uint64, bool) {
	var le *LaggedError
	if errors.As(err, &le) {
		return le.Count, true
	}
	return 0, false
}

// Topic is a broadcast channel for values of type T. The zero value is not
// usable; create topics with NewTopic.
type Topic[T any] struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Sub[T]]struct{}
	closed   bool
}

// NewTopic creates a topic whose subscribers each buffer up to capacity
// messages. Non-positive capacities fall back to DefaultCapacity.
func NewTopic[T any](capacity int) *Topic[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Topic[T]{
		capacity: capacity,
		subs:     make(map[*Sub[T]]struct{}),
	}
}

// Subscribe registers a new subscriber. The subscription observes only
// messages published after this call, in publish order.
func (t *Topic[T]) Subscribe() *Sub[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Sub[T]{
		topic:  t,
		buf:    make([]T, t.capacity),
		notify: make(chan struct{}, 1),
		closed: t.closed,
	}
	if !t.closed {
		t.subs[s] = struct{}{}
	}
	return s
}

// Publish delivers v to every current subscriber. It never blocks; slow
// subscribers lose their oldest buffered message instead.
func (t *Topic[T]) Publish(v T) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if len(t.subs) == 0 {
		t.mu.Unlock()
		return ErrNoSubscribers
	}
	subs := make([]*Sub[T], 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.push(v)
	}
	return nil
}

// Close marks the topic closed. Subscribers drain their rings and then
// receive ErrClosed. Publish on a closed topic returns ErrClosed.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	subs := make([]*Sub[T], 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.subs = make(map[*Sub[T]]struct{})
	t.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

func (t *Topic[T]) unsubscribe(s *Sub[T]) {
	t.mu.Lock()
	delete(t.subs, s)
	t.mu.Unlock()
}

// Sub is one subscriber's view of a topic. Not safe for concurrent Recv
// from multiple goroutines; each actor owns its subscription.
type Sub[T any] struct {
	topic *Topic[T]

	mu     sync.Mutex
	buf    []T // ring, len == capacity
	head   int // index of the oldest buffered message
	count  int
	lagged uint64
	closed bool

	notify chan struct{}
}

func (s *Sub[T]) push(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.count == len(s.buf) {
		// Overwrite the oldest message and record the skip.
		s.buf[s.head] = v
		s.head = (s.head + 1) % len(s.buf)
		s.lagged++
	} else {
		s.buf[(s.head+s.count)%len(s.buf)] = v
		s.count++
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Sub[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv returns the next message. It blocks until a message arrives, the
// context is cancelled, or the topic closes. When the subscriber has fallen
// behind, Recv returns a *LaggedError once (with the skip count) before
// resuming delivery at the oldest retained message.
func (s *Sub[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		if s.lagged > 0 {
			n := s.lagged
			s.lagged = 0
			s.mu.Unlock()
			return zero, &LaggedError{Count: n}
		}
		if s.count > 0 {
			v := s.buf[s.head]
			s.buf[s.head] = zero // release the reference
			s.head = (s.head + 1) % len(s.buf)
			s.count--
			s.mu.Unlock()
			return v, nil
		}
		if s.closed {
			s.mu.Unlock()
			return zero, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.notify:
		}
	}
}

// Unsubscribe detaches the subscription from its topic. Already-buffered
// messages still drain; after that Recv returns ErrClosed.
func (s *Sub[T]) Unsubscribe() {
	s.topic.unsubscribe(s)
	s.close()
}

// Bus bundles the engine's topics. Every cross-actor message flows through
// one of these; actors share no mutable state.
type Bus struct {
	RawNews           *Topic[types.RawNews]
	PolymarketEvents  *Topic[types.PolyMarketEvent]
	MarketDataRequest *Topic[types.MarketDataRequest]
	MarketData        *Topic[types.MarketDataSnap]
	Orders            *Topic[types.Order]
	Executions        *Topic[types.Execution]
}

// New creates a bus whose topics each buffer capacity messages per
// subscriber.
func New(capacity int) *Bus {
	return &Bus{
		RawNews:           NewTopic[types.RawNews](capacity),
		PolymarketEvents:  NewTopic[types.PolyMarketEvent](capacity),
		MarketDataRequest: NewTopic[types.MarketDataRequest](capacity),
		MarketData:        NewTopic[types.MarketDataSnap](capacity),
		Orders:            NewTopic[types.Order](capacity),
		Executions:        NewTopic[types.Execution](capacity),
	}
}

// Close closes every topic. Actors observe ErrClosed and terminate cleanly.
func (b *Bus) Close() {
	b.RawNews.Close()
	b.PolymarketEvents.Close()
	b.MarketDataRequest.Close()
	b.MarketData.Close()
	b.Orders.Close()
	b.Executions.Close()
}
