package escalation

import (
	"errors"
	log "log/slog"
	"sync"
	"time"
)

var ErrActive = errors.New("manager alert already active")

type Reason int

const (
	Acknowledged Reason = iota
	Expired
)

func (r Reason) String() string {
	if r == Acknowledged {
		return "acknowledged"
	}
	return "expired"
}

type Options struct {
	// Countdown is the number of ticks before the alert closes on its own.
	Countdown int
	Tick      time.Duration

	OnTrigger func()
	OnTick    func(remaining int)
	OnClose   func(Reason)
}

// Alert is the one-shot "manager required" side channel. Either an
// acknowledgement or the end of the countdown closes it, and the callback
// passed to Trigger runs exactly once per alert.
type Alert struct {
	opts Options

	mu        sync.Mutex
	active    bool
	fired     bool
	remaining int
	callback  func()
	done      chan struct{}
}

func New(opts Options) *Alert {
	if opts.Countdown <= 0 {
		opts.Countdown = 30
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}

	done := make(chan struct{})
	close(done)

	return &Alert{opts: opts, done: done}
}

// Trigger opens the alert and starts its countdown.
func (a *Alert) Trigger(callback func()) error {
	a.mu.Lock()
	if a.active {
		a.mu.Unlock()
		return ErrActive
	}

	a.active = true
	a.fired = false
	a.remaining = a.opts.Countdown
	a.callback = callback
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	log.Info("Manager alert raised", "countdown", a.opts.Countdown)

	if a.opts.OnTrigger != nil {
		a.opts.OnTrigger()
	}

	go a.countdown(done)

	return nil
}

// Acknowledge closes the active alert. It reports false when there was none.
func (a *Alert) Acknowledge() bool {
	return a.close(Acknowledged)
}

func (a *Alert) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *Alert) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// Done is closed once the current alert (if any) has been closed and its
// callback has returned.
func (a *Alert) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *Alert) countdown(done <-chan struct{}) {
	ticker := time.NewTicker(a.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		if !a.active {
			a.mu.Unlock()
			return
		}
		a.remaining--
		left := a.remaining
		a.mu.Unlock()

		if a.opts.OnTick != nil {
			a.opts.OnTick(left)
		}

		if left <= 0 {
			a.close(Expired)
			return
		}
	}
}

func (a *Alert) close(reason Reason) bool {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return false
	}

	a.active = false
	done := a.done

	var cb func()
	if !a.fired {
		a.fired = true
		cb = a.callback
	}
	a.callback = nil
	a.mu.Unlock()

	log.Info("Manager alert closed", "reason", reason)

	if a.opts.OnClose != nil {
		a.opts.OnClose(reason)
	}
	if cb != nil {
		cb()
	}
	close(done)

	return true
}
