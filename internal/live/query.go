// Package live keeps the result of a read query fresh: the query runs once on
// creation, again whenever its dependencies change, and again on every change
// event. Only the newest run may publish a result.
package live

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agenticos_live_query_runs_total",
	Help: "Live query runs by outcome",
}, []string{"query", "result"})

// Subscriber is the part of the change bus a query needs.
type Subscriber interface {
	Subscribe(fn func()) (unsubscribe func())
}

// Func is a read against the store.
type Func[T any] func(ctx context.Context) (T, error)

// Snapshot is the observable state of a query after an accepted run.
type Snapshot[T any] struct {
	Value      T
	Resolved   bool
	Err        error
	Generation uint64
}

type options struct {
	name   string
	deps   []any
	logger *slog.Logger
}

type Option func(*options)

// WithName labels the query in logs and metrics.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithDeps sets the initial dependency values.
func WithDeps(deps ...any) Option { return func(o *options) { o.deps = deps } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Query holds the latest accepted result of fn.
//
// Failure policy: a failed run keeps the last good value and sets Err; the
// next successful run clears Err. A query that has never succeeded stays
// unresolved.
type Query[T any] struct {
	name   string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup

	mu        sync.Mutex
	fn        Func[T]
	deps      []any
	gen       uint64
	value     T
	resolved  bool
	err       error
	closed    bool
	observers map[int]func(Snapshot[T])
	nextObs   int

	notifyMu  sync.Mutex
	delivered uint64
}

// New starts a query bound to bus. The first run begins immediately.
func New[T any](ctx context.Context, bus Subscriber, fn Func[T], opts ...Option) *Query[T] {
	o := options{name: "anonymous"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	qctx, cancel := context.WithCancel(ctx)
	q := &Query[T]{
		name:      o.name,
		logger:    o.logger,
		ctx:       qctx,
		cancel:    cancel,
		fn:        fn,
		deps:      o.deps,
		observers: map[int]func(Snapshot[T]){},
	}
	if bus != nil {
		q.unsub = bus.Subscribe(q.Refresh)
	}
	q.Refresh()
	return q
}

// Refresh starts a new run. Any run still in flight becomes stale.
func (q *Query[T]) Refresh() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.gen++
	gen := q.gen
	fn := q.fn
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		v, err := fn(q.ctx)
		q.resolve(gen, v, err)
	}()
}

// Update swaps the query function and re-runs it if deps differ from the
// previous ones. It reports whether a run was started.
func (q *Query[T]) Update(fn Func[T], deps ...any) bool {
	q.mu.Lock()
	if q.closed || reflect.DeepEqual(q.deps, deps) {
		q.mu.Unlock()
		return false
	}
	q.fn = fn
	q.deps = deps
	q.mu.Unlock()

	q.Refresh()
	return true
}

func (q *Query[T]) resolve(gen uint64, v T, err error) {
	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		runsTotal.WithLabelValues(q.name, "stale").Inc()
		return
	}
	if err != nil {
		q.err = err
	} else {
		q.value = v
		q.resolved = true
		q.err = nil
	}
	snap := Snapshot[T]{Value: q.value, Resolved: q.resolved, Err: q.err, Generation: gen}
	observers := make([]func(Snapshot[T]), 0, len(q.observers))
	for i := 0; i < q.nextObs; i++ {
		if fn, ok := q.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	q.mu.Unlock()

	if err != nil {
		runsTotal.WithLabelValues(q.name, "error").Inc()
		q.logger.Error("live query failed",
			slog.String("query", q.name),
			slog.Uint64("generation", gen),
			slog.String("error", err.Error()),
		)
	} else {
		runsTotal.WithLabelValues(q.name, "ok").Inc()
	}

	q.notifyMu.Lock()
	defer q.notifyMu.Unlock()
	if gen < q.delivered {
		return
	}
	q.delivered = gen
	for _, fn := range observers {
		fn(snap)
	}
}

// Value returns the latest good result; ok is false until the first success.
func (q *Query[T]) Value() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value, q.resolved
}

// Err returns the failure of the latest accepted run, if it failed.
func (q *Query[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Snapshot returns the current state.
func (q *Query[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Snapshot[T]{Value: q.value, Resolved: q.resolved, Err: q.err, Generation: q.gen}
}

// OnUpdate registers fn for every accepted run, including runs whose value
// did not change. Observers are called in registration order.
func (q *Query[T]) OnUpdate(fn func(Snapshot[T])) (remove func()) {
	q.mu.Lock()
	id := q.nextObs
	q.nextObs++
	q.observers[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.observers, id)
		q.mu.Unlock()
	}
}

// Wait blocks until every started run has finished.
func (q *Query[T]) Wait() {
	q.wg.Wait()
}

// Close detaches the query from the bus and drops any result still in flight.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	if q.unsub != nil {
		q.unsub()
	}
	q.cancel()
}
