package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonvox/internal/bus"
	"salonvox/internal/vad"
)

type fakeTranscriber struct {
	texts []string
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, pcm []float32) (string, error) {
	f.calls++
	if len(f.texts) == 0 {
		return "", errors.New("nothing scripted")
	}
	t := f.texts[0]
	f.texts = f.texts[1:]
	return t, nil
}

type echoEngine struct{ got []string }

func (e *echoEngine) Respond(_ context.Context, u string) string {
	e.got = append(e.got, u)
	return "You said: " + u
}

type recSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *recSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

type recBus struct{ events []bus.Event }

func (b *recBus) Publish(ev bus.Event) error { b.events = append(b.events, ev); return nil }
func (b *recBus) Close() error               { return nil }

func frames(pattern string) <-chan []float32 {
	ch := make(chan []float32, len(pattern))
	for _, c := range pattern {
		f := make([]float32, 160)
		if c == 'S' {
			for i := range f {
				f[i] = 0.5
			}
		}
		ch <- f
	}
	close(ch)
	return ch
}

func newLoop(tr Transcriber, eng Responder, sp Speaker, b bus.Publisher) *Loop {
	return New(Deps{
		Detector:    vad.NewRMS(0.015),
		Assembler:   vad.NewAssembler(vad.AssemblerConfig{SilenceFrames: 2, MinFrames: 5}),
		Transcriber: tr,
		Engine:      eng,
		Speaker:     sp,
		Bus:         b,
	})
}

func TestLoopAnswersEachUtterance(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"Do you have openings Monday?", "um", "Thanks a lot"}}
	eng := &echoEngine{}
	sp := &recSpeaker{}
	b := &recBus{}

	err := newLoop(tr, eng, sp, b).Run(context.Background(), frames("..SSS..SS..SSS..SSS.."))
	require.NoError(t, err)

	assert.Equal(t, 3, tr.calls, "the two-frame blip never reaches the transcriber")
	assert.Equal(t, []string{"Do you have openings Monday?", "Thanks a lot"}, eng.got)
	assert.Equal(t, []string{"You said: Do you have openings Monday?", "You said: Thanks a lot"}, sp.said)

	var kinds []string
	for _, ev := range b.events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{bus.KindTranscript, bus.KindReply, bus.KindTranscript, bus.KindReply}, kinds)
}

func TestLoopStopsOnExit(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"Exit.", "never heard"}}
	eng := &echoEngine{}

	err := newLoop(tr, eng, &recSpeaker{}, nil).Run(context.Background(), frames("SSS..SSS.."))
	assert.ErrorIs(t, err, ErrHangup)
	assert.Empty(t, eng.got)
	assert.Equal(t, 1, tr.calls)
}

func TestLoopSpeaksAnnouncements(t *testing.T) {
	sp := &recSpeaker{}
	l := newLoop(&fakeTranscriber{}, &echoEngine{}, sp, nil)
	l.Announce("The manager will call you back shortly.")

	ctx, cancel := context.WithCancel(context.Background())
	live := make(chan []float32)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, live) }()

	require.Eventually(t, func() bool {
		sp.mu.Lock()
		defer sp.mu.Unlock()
		return len(sp.said) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNoiseFilter(t *testing.T) {
	for _, s := range []string{"", "  ", "uh", "Um.", "the", "okay", "Hmm?"} {
		assert.True(t, IsNoise(s), "%q", s)
	}
	for _, s := range []string{"Hello there", "Book me in"} {
		assert.False(t, IsNoise(s), "%q", s)
	}
	assert.True(t, IsExit(" EXIT! "))
	assert.False(t, IsExit("exit please"))
}
