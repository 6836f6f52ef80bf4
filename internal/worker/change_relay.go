package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/karthickst/agenticosv2.0/internal/observability/metrics"
)

// ChangeChannel is the pub/sub channel replicas share change events on.
const ChangeChannel = "agenticos:changes"

const resubscribeDelay = time.Second

// PubSub is the cross-process transport; the redis client satisfies it.
type PubSub interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}

// ChangeBus is the in-process change bus.
type ChangeBus interface {
	Subscribe(fn func()) (unsubscribe func())
	Publish()
}

type changeMessage struct {
	Sender string `json:"sender"`
	At     int64  `json:"at"`
}

// ChangeRelay forwards local change events to other replicas and replays
// theirs on the local bus, so live queries on every replica see every write.
type ChangeRelay struct {
	bus      ChangeBus
	pubsub   PubSub
	channel  string
	senderID string
	logger   *slog.Logger

	pending chan struct{}
	// skip counts replayed events whose local echo must not be sent back out.
	skip atomic.Int64
}

func NewChangeRelay(bus ChangeBus, pubsub PubSub, logger *slog.Logger) *ChangeRelay {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &ChangeRelay{
		bus:      bus,
		pubsub:   pubsub,
		channel:  ChangeChannel,
		senderID: id,
		logger:   logger.With(slog.String("component", "change_relay"), slog.String("sender", id)),
		pending:  make(chan struct{}, 1),
	}
}

// SenderID identifies this replica in relayed messages.
func (w *ChangeRelay) SenderID() string { return w.senderID }

// Start relays events until ctx is done.
func (w *ChangeRelay) Start(ctx context.Context) {
	unsubscribe := w.bus.Subscribe(w.onLocalChange)
	defer unsubscribe()

	inbound := w.subscribe(ctx)
	if inbound == nil {
		return
	}
	w.logger.Info("change relay started", slog.String("channel", w.channel))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("change relay stopped")
			return
		case <-w.pending:
			w.send(ctx)
		case payload, ok := <-inbound:
			if !ok {
				w.logger.Warn("change subscription closed, resubscribing")
				if inbound = w.subscribe(ctx); inbound == nil {
					return
				}
				continue
			}
			w.receive(payload)
		}
	}
}

// subscribe retries until it succeeds or ctx is done, in which case it
// returns nil.
func (w *ChangeRelay) subscribe(ctx context.Context) <-chan string {
	for {
		ch, err := w.pubsub.Subscribe(ctx, w.channel)
		if err == nil {
			return ch
		}
		w.logger.Error("failed to subscribe to changes", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

// onLocalChange runs inside bus.Publish, so it only signals the relay loop.
// Events carry no payload, which makes it irrelevant which of two concurrent
// publishes consumes a skip token.
func (w *ChangeRelay) onLocalChange() {
	for {
		n := w.skip.Load()
		if n <= 0 {
			break
		}
		if w.skip.CompareAndSwap(n, n-1) {
			return
		}
	}
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *ChangeRelay) send(ctx context.Context) {
	raw, err := json.Marshal(changeMessage{Sender: w.senderID, At: time.Now().UnixMilli()})
	if err != nil {
		w.logger.Error("failed to encode change", slog.String("error", err.Error()))
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.pubsub.Publish(pctx, w.channel, string(raw)); err != nil {
		w.logger.Error("failed to relay change", slog.String("error", err.Error()))
		return
	}
	metrics.ObserveRelay("out")
}

func (w *ChangeRelay) receive(payload string) {
	var msg changeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		w.logger.Warn("dropping malformed change message", slog.String("error", err.Error()))
		return
	}
	if msg.Sender == "" || msg.Sender == w.senderID {
		return
	}
	metrics.ObserveRelay("in")
	w.skip.Add(1)
	w.bus.Publish()
}
