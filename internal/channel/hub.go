// Package channel implements the per-session Change Channel: an in-process
// publish/subscribe hub that fans entry events out to every current subscriber
// of a session topic.
//
// Publish never blocks on a subscriber. Each subscription owns a bounded queue;
// a subscriber that falls behind by more than the queue size is dropped and its
// Err reports errs.ErrChannel, so the owning client must reconcile from the store.
package channel

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
)

// DefaultBuffer is the per-subscriber queue size used when none is configured.
const DefaultBuffer = 64

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("channel: hub closed")

// Handler receives events for one subscription, in commit order.
type Handler func(model.Event)

// Hub is a process-wide registry of topics. The zero value is not usable; call NewHub.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	nextID uint64
	buffer int
	closed bool
	log    *zap.Logger
}

type topic struct {
	subs map[uint64]*Subscription
	seq  uint64
}

// NewHub creates a hub with the given per-subscriber queue size.
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{topics: make(map[string]*topic), buffer: buffer, log: log}
}

// Subscribe registers a subscription on topic. Only events published after
// Subscribe returns are delivered. Callers must Unsubscribe exactly once.
func (h *Hub) Subscribe(name string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: %w", errs.ErrChannel, ErrClosed)
	}
	t, ok := h.topics[name]
	if !ok {
		t = &topic{subs: make(map[uint64]*Subscription)}
		h.topics[name] = t
	}
	h.nextID++
	s := &Subscription{
		hub:   h,
		topic: name,
		id:    h.nextID,
		queue: make(chan model.Event, h.buffer),
		done:  make(chan struct{}),
	}
	t.subs[s.id] = s
	return s, nil
}

// SubscribeFunc subscribes and delivers events to handler on a dedicated goroutine.
// The handler may call Unsubscribe on the returned subscription.
func (h *Hub) SubscribeFunc(name string, handler Handler) (*Subscription, error) {
	s, err := h.Subscribe(name)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			select {
			case <-s.done:
				return
			case ev := <-s.queue:
				select {
				case <-s.done:
					return
				default:
				}
				handler(ev)
			}
		}
	}()
	return s, nil
}

// Publish stamps ev with the topic's next sequence number and enqueues it for
// every subscriber of ev.SessionCode. It returns the assigned sequence, or 0
// when the topic has no subscribers.
func (h *Hub) Publish(ev model.Event) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[ev.SessionCode]
	if !ok || h.closed {
		return 0
	}
	t.seq++
	ev.Seq = t.seq
	for id, s := range t.subs {
		select {
		case s.queue <- ev:
		default:
			h.log.Warn("subscriber dropped: queue full",
				zap.String("session", ev.SessionCode),
				zap.Uint64("subscription", id),
				zap.Int("buffer", h.buffer),
			)
			delete(t.subs, id)
			s.finish(fmt.Errorf("%w: subscriber fell behind", errs.ErrChannel))
		}
	}
	if len(t.subs) == 0 {
		delete(h.topics, ev.SessionCode)
	}
	return ev.Seq
}

// Subscribers returns the number of live subscriptions on topic.
func (h *Hub) Subscribers(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

// Close drops every subscription; used at process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for name, t := range h.topics {
		for _, s := range t.subs {
			s.finish(fmt.Errorf("%w: %w", errs.ErrChannel, ErrClosed))
		}
		delete(h.topics, name)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[s.topic]
	if !ok {
		return
	}
	delete(t.subs, s.id)
	if len(t.subs) == 0 {
		delete(h.topics, s.topic)
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub   *Hub
	topic string
	id    uint64
	queue chan model.Event
	done  chan struct{}
	once  sync.Once
	err   error
}

// Topic returns the session code this subscription listens on.
func (s *Subscription) Topic() string { return s.topic }

// C returns the event queue. Consumers should also select on Done.
func (s *Subscription) C() <-chan model.Event { return s.queue }

// Done is closed when the subscription ends for any reason.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended: nil after Unsubscribe, errs.ErrChannel
// when the hub dropped it. Only meaningful after Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Unsubscribe stops delivery and releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
	s.finish(nil)
}

func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}
