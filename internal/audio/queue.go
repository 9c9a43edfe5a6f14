package audio

import (
	"sync"
	"sync/atomic"
)

// Queue carries captured frames from the capture goroutine to the single
// consumer loop. While muted every pushed frame is dropped; Mute and Push
// share a lock so nothing gets in once Mute has returned.
type Queue struct {
	mu     sync.Mutex
	muted  bool
	closed bool
	ch     chan []float32

	dropped atomic.Uint64
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 64
	}
	return &Queue{ch: make(chan []float32, capacity)}
}

// Push hands frame over to the consumer and reports whether it was queued.
// The queue takes ownership of the slice.
func (q *Queue) Push(frame []float32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.muted || q.closed {
		q.dropped.Add(1)
		return false
	}

	select {
	case q.ch <- frame:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Offer is Push for producers that retry: a refused frame is not counted
// as dropped because the caller still holds it.
func (q *Queue) Offer(frame []float32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.muted || q.closed {
		return false
	}

	select {
	case q.ch <- frame:
		return true
	default:
		return false
	}
}

func (q *Queue) Frames() <-chan []float32 {
	return q.ch
}

func (q *Queue) Mute() {
	q.mu.Lock()
	q.muted = true
	q.mu.Unlock()
}

func (q *Queue) Unmute() {
	q.mu.Lock()
	q.muted = false
	q.mu.Unlock()
}

func (q *Queue) Muted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.muted
}

// Drain discards frames that were queued before the last Mute.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case _, ok := <-q.ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close ends the stream; the consumer sees a closed channel once the
// remaining frames are read.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// KeepGate mutes and unmutes the queue like the queue itself but never
// drains it. Use it for replayed input, which holds no echo of the
// assistant and must reach the consumer in full.
type KeepGate struct {
	*Queue
}

func (KeepGate) Drain() int { return 0 }
