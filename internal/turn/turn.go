// Package turn keeps the microphone and the speaker from being active at
// the same time, so the assistant never transcribes itself.
package turn

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultSettle = 300 * time.Millisecond

// Gate is the capture side: muting makes it drop incoming frames.
type Gate interface {
	Mute()
	Unmute()
	Drain() int
}

type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Config struct {
	// Settle is how long capture stays muted after playback ends.
	Settle time.Duration
	// Reset clears detector and assembler state after playback.
	Reset []func()
	// Ducker is optional.
	Ducker Ducker
}

type Coordinator struct {
	gate  Gate
	synth Synthesizer
	cfg   Config

	mu       sync.Mutex
	speaking atomic.Bool
}

func New(gate Gate, synth Synthesizer, cfg Config) *Coordinator {
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	return &Coordinator{gate: gate, synth: synth, cfg: cfg}
}

func (c *Coordinator) Speaking() bool {
	return c.speaking.Load()
}

// Speak plays text with capture muted. Calls are serialized; capture is
// unmuted again even when synthesis fails.
func (c *Coordinator) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.speaking.Store(true)
	c.gate.Mute()
	if n := c.gate.Drain(); n > 0 {
		log.Debug("Drained queued frames", "frames", n)
	}

	if c.cfg.Ducker != nil {
		if err := c.cfg.Ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
	}

	log.Info("Assistant speaking", "text", text)
	err := c.synth.Speak(ctx, text)

	for _, reset := range c.cfg.Reset {
		reset()
	}

	if c.cfg.Settle > 0 {
		time.Sleep(c.cfg.Settle)
	}
	// frames that slipped in during settle are echo too
	c.gate.Drain()

	if c.cfg.Ducker != nil {
		if derr := c.cfg.Ducker.Restore(context.WithoutCancel(ctx)); derr != nil {
			log.Warn("Failed to restore other streams", "err", derr)
		}
	}

	c.speaking.Store(false)
	c.gate.Unmute()

	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}
