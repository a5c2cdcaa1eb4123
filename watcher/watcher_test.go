package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	sig          *Signal
	unsubscribed atomic.Int32
}

func (f *fakeNotifier) Subscribe(context.Context) (<-chan struct{}, func() error, error) {
	return f.sig.C(), func() error {
		f.unsubscribed.Add(1)
		return nil
	}, nil
}

type countingCollector struct {
	calls atomic.Int32
	block chan struct{}
}

func (c *countingCollector) Collect(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	return 0, nil
}

func TestWatcher_InitialPassThenOnePerBatch(t *testing.T) {
	n := &fakeNotifier{sig: NewSignal()}
	c := &countingCollector{}
	w := New(n, c)

	require.NoError(t, w.Start(context.Background()))
	assert.EqualValues(t, 1, c.calls.Load())

	n.sig.Notify()
	require.Eventually(t, func() bool { return c.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	n.sig.Notify()
	require.Eventually(t, func() bool { return c.calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.EqualValues(t, 1, n.unsubscribed.Load())
}

func TestWatcher_BurstDuringPassCoalesces(t *testing.T) {
	n := &fakeNotifier{sig: NewSignal()}
	c := &countingCollector{}
	w := New(n, c)
	require.NoError(t, w.Start(context.Background()))

	c.block = make(chan struct{})
	n.sig.Notify()
	require.Eventually(t, func() bool { return c.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	// Pass 2 is blocked; these all collapse into a single follow-up.
	for i := 0; i < 10; i++ {
		n.sig.Notify()
	}
	close(c.block)

	require.Eventually(t, func() bool { return c.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, c.calls.Load())

	require.NoError(t, w.Stop())
}

func TestWatcher_NoPassesAfterStop(t *testing.T) {
	n := &fakeNotifier{sig: NewSignal()}
	c := &countingCollector{}
	w := New(n, c)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	before := c.calls.Load()
	n.sig.Notify()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, c.calls.Load())
}

func TestWatcher_StopIdempotent(t *testing.T) {
	n := &fakeNotifier{sig: NewSignal()}
	w := New(n, &countingCollector{})

	// Never started.
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)

	w2 := New(n, &countingCollector{})
	require.NoError(t, w2.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w2.Stop())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, n.unsubscribed.Load())
}

func TestWatcher_DoubleStart(t *testing.T) {
	w := New(&fakeNotifier{sig: NewSignal()}, &countingCollector{})
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, w.Stop())
}
