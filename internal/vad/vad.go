package vad

import (
	"fmt"
	"math"
)

// Detector classifies one frame of mono float32 PCM as speech or silence.
type Detector interface {
	IsSpeech(frame []float32) (bool, error)
	Reset()
}

type Config struct {
	Kind         string // "rms" or "silero"
	RMSThreshold float64
	SileroModel  string
	SileroThresh float32
	SampleRate   int
}

func New(cfg Config) (Detector, error) {
	switch cfg.Kind {
	case "", "rms":
		return NewRMS(cfg.RMSThreshold), nil
	case "silero":
		return NewSilero(cfg.SileroModel, cfg.SampleRate, cfg.SileroThresh)
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Kind)
	}
}

// RMS flags a frame as speech when its root-mean-square level exceeds a
// fixed threshold.
type RMS struct {
	Threshold float64
}

func NewRMS(threshold float64) *RMS {
	if threshold <= 0 {
		threshold = 0.015
	}
	return &RMS{Threshold: threshold}
}

func (r *RMS) IsSpeech(frame []float32) (bool, error) {
	return FrameRMS(frame) > r.Threshold, nil
}

func (r *RMS) Reset() {}

func FrameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
