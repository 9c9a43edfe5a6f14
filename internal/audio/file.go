package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"salonvox/pkg/audioconv"
)

// FileSource replays an audio file as if it were the microphone. It waits
// out muted periods and a full queue instead of losing input, then appends
// trailing silence so the last utterance can finalize, and closes the queue.
// Pair it with KeepGate so turn-taking does not drain replayed frames.
type FileSource struct {
	Path         string
	SampleRate   int
	FrameSize    int
	Realtime     bool
	TailSilence  time.Duration
	pollInterval time.Duration
}

func (f *FileSource) Run(ctx context.Context, q *Queue) error {
	defer q.Close()

	pcm, err := audioconv.DecodeFile(ctx, f.Path, audioconv.Options{SampleRate: f.SampleRate})
	if err != nil {
		return fmt.Errorf("decode %s: %w", f.Path, err)
	}

	log.Info("Replaying file", "path", f.Path, "samples", len(pcm))

	return f.replay(ctx, q, pcm)
}

func (f *FileSource) replay(ctx context.Context, q *Queue, pcm []float32) error {
	size := f.FrameSize
	if size <= 0 {
		size = 1600
	}
	frameDur := time.Duration(size) * time.Second / time.Duration(max(f.SampleRate, 1))

	tail := int(f.TailSilence / frameDur)
	total := (len(pcm)+size-1)/size + tail

	for i := 0; i < total; i++ {
		frame := make([]float32, size)
		if off := i * size; off < len(pcm) {
			copy(frame, pcm[off:])
		}

		if err := f.push(ctx, q, frame); err != nil {
			return err
		}

		if f.Realtime {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(frameDur):
			}
		}
	}

	return nil
}

func (f *FileSource) push(ctx context.Context, q *Queue, frame []float32) error {
	poll := f.pollInterval
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}

	for !q.Offer(frame) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
	return nil
}
