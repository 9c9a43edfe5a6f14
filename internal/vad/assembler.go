package vad

import "time"

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

type Event int

const (
	None Event = iota
	Started
	Emitted
	Discarded
)

type AssemblerConfig struct {
	// SilenceFrames of trailing silence end a recording.
	SilenceFrames int
	// MinFrames is the shortest recording, trailing silence included,
	// that is handed on. Anything shorter is dropped.
	MinFrames int
	// FrameDuration is only used to report utterance length.
	FrameDuration time.Duration
}

type Utterance struct {
	Samples  []float32
	Frames   int
	Duration time.Duration
}

// Assembler groups detector-classified frames into utterances.
type Assembler struct {
	cfg     AssemblerConfig
	state   State
	frames  [][]float32
	silence int
}

func NewAssembler(cfg AssemblerConfig) *Assembler {
	if cfg.SilenceFrames < 1 {
		cfg.SilenceFrames = 1
	}
	if cfg.MinFrames < 1 {
		cfg.MinFrames = 1
	}
	return &Assembler{cfg: cfg}
}

func (a *Assembler) State() State { return a.state }

// Push feeds one frame. The returned utterance is only meaningful with
// the Emitted event.
func (a *Assembler) Push(frame []float32, speech bool) (Utterance, Event) {
	switch a.state {
	case Idle:
		if !speech {
			return Utterance{}, None
		}
		a.state = Recording
		a.silence = 0
		a.frames = append(a.frames[:0], frame)
		return Utterance{}, Started

	default:
		a.frames = append(a.frames, frame)
		if speech {
			a.silence = 0
			return Utterance{}, None
		}

		a.silence++
		if a.silence < a.cfg.SilenceFrames {
			return Utterance{}, None
		}
		return a.finalize()
	}
}

// Reset drops any partial recording.
func (a *Assembler) Reset() {
	a.state = Idle
	a.silence = 0
	a.frames = nil
}

func (a *Assembler) finalize() (Utterance, Event) {
	defer a.Reset()

	n := len(a.frames)
	if n < a.cfg.MinFrames {
		return Utterance{Frames: n}, Discarded
	}

	size := 0
	for _, f := range a.frames {
		size += len(f)
	}
	samples := make([]float32, 0, size)
	for _, f := range a.frames {
		samples = append(samples, f...)
	}

	return Utterance{
		Samples:  samples,
		Frames:   n,
		Duration: time.Duration(n) * a.cfg.FrameDuration,
	}, Emitted
}
