//go:build silero

package vad

import (
	"errors"
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"
)

// Silero runs the Silero VAD model over each frame independently. Frames
// must hold more than 512 samples at 16 kHz.
type Silero struct {
	det *speech.Detector
}

func NewSilero(modelPath string, sampleRate int, threshold float32) (Detector, error) {
	if modelPath == "" {
		return nil, errors.New("silero: empty model path")
	}
	if threshold <= 0 {
		threshold = 0.5
	}

	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           sampleRate,
		Threshold:            threshold,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("silero: %w", err)
	}

	return &Silero{det: det}, nil
}

func (s *Silero) IsSpeech(frame []float32) (bool, error) {
	if err := s.det.Reset(); err != nil {
		return false, fmt.Errorf("silero reset: %w", err)
	}

	segments, err := s.det.Detect(frame)
	if err != nil {
		return false, fmt.Errorf("silero detect: %w", err)
	}

	return len(segments) > 0, nil
}

func (s *Silero) Reset() {
	_ = s.det.Reset()
}

func (s *Silero) Close() error {
	return s.det.Destroy()
}
