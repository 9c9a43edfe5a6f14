// Package notify plays the attention chime used for manager alerts.
package notify

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

type Chime struct {
	path string

	once    sync.Once
	initErr error
	rate    beep.SampleRate
	mu      sync.Mutex
}

func NewChime(path string) *Chime {
	return &Chime{path: path}
}

// Play decodes the mp3 and blocks until it finishes or ctx ends.
func (c *Chime) Play(ctx context.Context) error {
	if c.path == "" {
		return nil
	}

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("decode chime: %w", err)
	}
	defer streamer.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	// speaker.Init may only run once per process with a fixed rate
	c.once.Do(func() {
		c.rate = format.SampleRate
		c.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if c.initErr != nil {
		return fmt.Errorf("init speaker: %w", c.initErr)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != c.rate {
		src = beep.Resample(4, format.SampleRate, c.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
