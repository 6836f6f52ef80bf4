// Package events is the in-process change notification bus. An event carries
// no payload; it only tells subscribers that some row somewhere changed.
package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agenticos_change_events_total",
		Help: "Number of change events published on the bus",
	})

	handlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agenticos_change_handler_panics_total",
		Help: "Number of subscriber panics recovered during publish",
	})

	subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agenticos_change_subscribers",
		Help: "Current number of bus subscribers",
	})
)

type subscription struct {
	id int64
	fn func()
}

// Bus is a single-process publish/subscribe register.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   []subscription
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is safe to call more than once.
func (b *Bus) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()
	subscribers.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			subscribers.Dec()
		})
	}
}

// Publish calls every current subscriber synchronously in subscription
// order. A panicking subscriber is logged and skipped.
func (b *Bus) Publish() {
	b.mu.RLock()
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	publishesTotal.Inc()
	for _, s := range snapshot {
		b.deliver(s)
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) deliver(s subscription) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanics.Inc()
			b.logger.Error("change subscriber panicked",
				slog.Int64("subscription", s.id),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.fn()
}
