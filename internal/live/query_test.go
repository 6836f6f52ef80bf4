package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/events"
)

type result struct {
	v   string
	err error
}

// gate hands out one blocking call per run so tests decide resolution order.
type gate struct {
	mu      sync.Mutex
	calls   []chan result
	started chan int
}

func newGate() *gate { return &gate{started: make(chan int, 32)} }

func (g *gate) fn(ctx context.Context) (string, error) {
	ch := make(chan result, 1)
	g.mu.Lock()
	idx := len(g.calls)
	g.calls = append(g.calls, ch)
	g.mu.Unlock()
	g.started <- idx

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gate) release(i int, v string, err error) {
	g.mu.Lock()
	ch := g.calls[i]
	g.mu.Unlock()
	ch <- result{v: v, err: err}
}

func (g *gate) awaitStart(t *testing.T) int {
	t.Helper()
	select {
	case i := <-g.started:
		return i
	case <-time.After(2 * time.Second):
		t.Fatal("query run did not start")
		return -1
	}
}

func TestUnresolvedUntilFirstSuccess(t *testing.T) {
	g := newGate()
	q := New(context.Background(), nil, g.fn)
	defer q.Close()

	g.awaitStart(t)
	_, ok := q.Value()
	assert.False(t, ok)

	g.release(0, "first", nil)
	q.Wait()

	v, ok := q.Value()
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	g := newGate()
	q := New(context.Background(), nil, g.fn)
	defer q.Close()

	a := g.awaitStart(t)
	q.Refresh()
	b := g.awaitStart(t)

	g.release(b, "B", nil)
	g.release(a, "A", nil)
	q.Wait()

	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, "B", v)
}

func TestStaleErrorIsDiscarded(t *testing.T) {
	g := newGate()
	q := New(context.Background(), nil, g.fn)
	defer q.Close()

	a := g.awaitStart(t)
	q.Refresh()
	b := g.awaitStart(t)

	g.release(b, "fresh", nil)
	g.release(a, "", errors.New("timeout"))
	q.Wait()

	assert.NoError(t, q.Err())
	v, _ := q.Value()
	assert.Equal(t, "fresh", v)
}

func TestBusEventTriggersRerun(t *testing.T) {
	bus := events.NewBus(nil)
	var n atomic.Int32
	q := New(context.Background(), bus, func(context.Context) (int32, error) {
		return n.Add(1), nil
	})
	defer q.Close()
	q.Wait()

	bus.Publish()
	q.Wait()
	bus.Publish()
	q.Wait()

	v, ok := q.Value()
	require.True(t, ok)
	assert.Equal(t, int32(3), v)
}

func TestFailureKeepsLastGoodValue(t *testing.T) {
	g := newGate()
	q := New(context.Background(), nil, g.fn)
	defer q.Close()

	g.awaitStart(t)
	g.release(0, "good", nil)
	q.Wait()

	q.Refresh()
	g.awaitStart(t)
	g.release(1, "", errors.New("store unreachable"))
	q.Wait()

	v, ok := q.Value()
	assert.True(t, ok)
	assert.Equal(t, "good", v)
	assert.EqualError(t, q.Err(), "store unreachable")

	q.Refresh()
	g.awaitStart(t)
	g.release(2, "better", nil)
	q.Wait()

	assert.NoError(t, q.Err())
	v, _ = q.Value()
	assert.Equal(t, "better", v)
}

func TestFailureBeforeFirstSuccessStaysUnresolved(t *testing.T) {
	q := New(context.Background(), nil, func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	defer q.Close()
	q.Wait()

	_, ok := q.Value()
	assert.False(t, ok)
	assert.Error(t, q.Err())
}

func TestUpdateRerunsOnlyWhenDepsChange(t *testing.T) {
	var runs atomic.Int32
	fnFor := func(id int) Func[int] {
		return func(context.Context) (int, error) {
			runs.Add(1)
			return id, nil
		}
	}

	q := New(context.Background(), nil, fnFor(1), WithDeps(1))
	defer q.Close()
	q.Wait()

	assert.False(t, q.Update(fnFor(1), 1))
	assert.True(t, q.Update(fnFor(2), 2))
	q.Wait()

	v, _ := q.Value()
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), runs.Load())
}

func TestObserversSeeIdenticalValues(t *testing.T) {
	bus := events.NewBus(nil)
	q := New(context.Background(), bus, func(context.Context) ([]string, error) {
		return []string{"same"}, nil
	})
	defer q.Close()
	q.Wait()

	var mu sync.Mutex
	var seen []Snapshot[[]string]
	q.OnUpdate(func(s Snapshot[[]string]) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	bus.Publish()
	q.Wait()
	bus.Publish()
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0].Value, seen[1].Value)
	assert.Less(t, seen[0].Generation, seen[1].Generation)
}

func TestCloseStopsUpdates(t *testing.T) {
	bus := events.NewBus(nil)
	g := newGate()
	q := New(context.Background(), bus, g.fn)

	g.awaitStart(t)
	q.Close()
	q.Wait()

	_, ok := q.Value()
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Len())

	bus.Publish()
	select {
	case <-g.started:
		t.Fatal("closed query must not run")
	case <-time.After(50 * time.Millisecond):
	}
}
