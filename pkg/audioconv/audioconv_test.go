package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := []float32{0, 0.5, -0.5, 1, -1, 0.25}

	require.NoError(t, WriteWAVFile(path, in, 16000))

	out, err := DecodeFile(context.Background(), path, Options{SampleRate: 16000})
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-3, "sample %d", i)
	}
}

func TestDecodeResamplesAndTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, WriteWAVFile(path, make([]float32, 800), 8000))

	out, err := DecodeFile(context.Background(), path, Options{SampleRate: 16000})
	require.NoError(t, err)
	assert.Len(t, out, 1600)

	out, err = DecodeFile(context.Background(), path, Options{SampleRate: 16000, MaxSamples: 100})
	require.NoError(t, err)
	assert.Len(t, out, 100)
}

func TestDecodeSniffsRIFFWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "a.wav")
	require.NoError(t, WriteWAVFile(wavPath, make([]float32, 16), 16000))

	raw, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	noExt := filepath.Join(dir, "capture")
	require.NoError(t, os.WriteFile(noExt, raw, 0o644))

	out, err := DecodeFile(context.Background(), noExt, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 16)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	_, err := DecodeFile(context.Background(), path, Options{})
	assert.Error(t, err)
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmixInterleaved([]float32{1, 0, 0.5, -0.5}, 2))
}
