package escalation

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, a *Alert) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("alert did not close")
	}
}

func TestExpiryFiresCallbackOnce(t *testing.T) {
	var (
		calls   atomic.Int32
		ticksMu sync.Mutex
		ticks   []int
		reasons = make(chan Reason, 2)
	)

	a := New(Options{
		Countdown: 3,
		Tick:      5 * time.Millisecond,
		OnTick: func(n int) {
			ticksMu.Lock()
			ticks = append(ticks, n)
			ticksMu.Unlock()
		},
		OnClose: func(r Reason) { reasons <- r },
	})

	require.NoError(t, a.Trigger(func() { calls.Add(1) }))
	waitDone(t, a)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Expired, <-reasons)
	assert.False(t, a.Active())

	ticksMu.Lock()
	assert.Equal(t, []int{2, 1, 0}, ticks)
	ticksMu.Unlock()

	assert.False(t, a.Acknowledge(), "already closed")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAcknowledgeBeatsCountdown(t *testing.T) {
	var calls atomic.Int32
	a := New(Options{Countdown: 1000, Tick: time.Millisecond})

	require.NoError(t, a.Trigger(func() { calls.Add(1) }))
	assert.True(t, a.Active())

	assert.True(t, a.Acknowledge())
	waitDone(t, a)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentCloseIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	a := New(Options{Countdown: 1, Tick: time.Millisecond})

	require.NoError(t, a.Trigger(func() { calls.Add(1) }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Acknowledge()
		}()
	}
	wg.Wait()
	waitDone(t, a)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTriggerWhileActive(t *testing.T) {
	a := New(Options{Countdown: 1000, Tick: time.Hour})

	require.NoError(t, a.Trigger(nil))
	assert.ErrorIs(t, a.Trigger(nil), ErrActive)

	a.Acknowledge()
	assert.NoError(t, a.Trigger(nil), "a closed alert can be raised again")
	a.Acknowledge()
}

func TestDoneBeforeAnyTrigger(t *testing.T) {
	a := New(Options{})

	select {
	case <-a.Done():
	default:
		t.Fatal("idle alert should report done")
	}
	assert.Equal(t, 0, a.Remaining())
}
