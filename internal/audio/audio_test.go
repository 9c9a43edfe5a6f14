package audio

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonvox/pkg/audioconv"
)

func TestQueueMutedDropsFrames(t *testing.T) {
	q := NewQueue(8)

	require.True(t, q.Push([]float32{1}))
	q.Mute()
	assert.False(t, q.Push([]float32{2}))
	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, uint64(1), q.Dropped())

	q.Unmute()
	require.True(t, q.Push([]float32{3}))
	assert.Equal(t, []float32{3}, <-q.Frames())
}

func TestQueueFullDrops(t *testing.T) {
	q := NewQueue(1)

	assert.True(t, q.Push([]float32{1}))
	assert.False(t, q.Push([]float32{2}))
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueNoFrameAfterMute(t *testing.T) {
	q := NewQueue(1024)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				q.Push([]float32{0})
			}
		}
	}()

	time.Sleep(time.Millisecond)
	q.Mute()
	q.Drain()

	select {
	case <-q.Frames():
		t.Fatal("frame enqueued while muted")
	case <-time.After(20 * time.Millisecond):
	}

	close(stop)
	wg.Wait()
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(2)
	q.Push([]float32{1})
	q.Close()
	q.Close()

	assert.False(t, q.Push([]float32{2}))

	_, ok := <-q.Frames()
	assert.True(t, ok)
	_, ok = <-q.Frames()
	assert.False(t, ok)
}

func TestFileSourceReplaysAndPads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	pcm := make([]float32, 1000)
	for i := range pcm {
		pcm[i] = 0.25
	}
	require.NoError(t, audioconv.WriteWAVFile(path, pcm, 16000))

	q := NewQueue(64)
	src := &FileSource{
		Path:        path,
		SampleRate:  16000,
		FrameSize:   400,
		TailSilence: 50 * time.Millisecond, // two 25ms frames
	}
	require.NoError(t, src.Run(context.Background(), q))

	var frames [][]float32
	for f := range q.Frames() {
		frames = append(frames, f)
	}
	require.Len(t, frames, 5)
	assert.InDelta(t, 0.25, frames[0][0], 1e-3)
	assert.Zero(t, frames[2][399], "last partial frame is zero padded")
	assert.Zero(t, frames[4][0])
}

func TestFileSourceWaitsWhileMuted(t *testing.T) {
	q := NewQueue(4)
	q.Mute()

	src := &FileSource{SampleRate: 16000, FrameSize: 4, pollInterval: time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- src.replay(context.Background(), q, []float32{1, 1, 1, 1}) }()

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, q.Frames())

	q.Unmute()
	require.NoError(t, <-done)
	assert.Len(t, q.Frames(), 1)
	assert.Zero(t, q.Dropped(), "waiting is not dropping")
}

func TestFileSourceWaitsWhileFull(t *testing.T) {
	q := NewQueue(2)
	src := &FileSource{SampleRate: 16000, FrameSize: 1, pollInterval: time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- src.replay(context.Background(), q, []float32{1, 2, 3, 4, 5}) }()

	var got []float32
	for len(got) < 5 {
		select {
		case f := <-q.Frames():
			got = append(got, f[0])
			time.Sleep(2 * time.Millisecond)
		case <-time.After(time.Second):
			t.Fatal("replay stalled")
		}
	}
	require.NoError(t, <-done)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, got)
	assert.Zero(t, q.Dropped())
}

func TestKeepGateKeepsBacklog(t *testing.T) {
	q := NewQueue(4)
	require.True(t, q.Push([]float32{1}))

	g := KeepGate{Queue: q}
	g.Mute()
	assert.Zero(t, g.Drain())
	assert.True(t, q.Muted())
	assert.False(t, q.Offer([]float32{2}))
	g.Unmute()

	assert.Len(t, q.Frames(), 1)
	assert.Zero(t, q.Dropped())
}

func TestDumperWritesWAV(t *testing.T) {
	d, err := NewDumper(filepath.Join(t.TempDir(), "dumps"), 16000)
	require.NoError(t, err)

	path, err := d.Dump(make([]float32, 320))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "-001.wav"))

	back, err := audioconv.DecodeFile(context.Background(), path, audioconv.Options{SampleRate: 16000})
	require.NoError(t, err)
	assert.Len(t, back, 320)
}

const pactlOutput = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: mono: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "espeak-ng"
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlOutput)
	assert.Equal(t, []sinkInput{
		{ID: 41, Volume: 100, AppName: "Firefox"},
		{ID: 42, Volume: 80, AppName: "espeak-ng"},
	}, got)

	assert.Nil(t, parseSinkInputs(""))
}

func TestDuckerDucksOthersAndRestores(t *testing.T) {
	d := NewDucker(DuckConfig{SelfNames: []string{"espeak-ng"}, Factor: 0.3, MinVolume: 10})

	var calls [][]string
	d.run = func(_ context.Context, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if args[0] == "list" {
			return []byte(pactlOutput), nil
		}
		return nil, nil
	}

	require.NoError(t, d.Duck(context.Background()))
	require.NoError(t, d.Duck(context.Background()), "second duck is a no-op")
	assert.Equal(t, []string{"set-sink-input-volume", "41", "30%"}, calls[1])
	assert.Len(t, calls, 2)

	calls = nil
	require.NoError(t, d.Restore(context.Background()))
	assert.Equal(t, []string{"set-sink-input-volume", "41", "100%"}, calls[1])
}
