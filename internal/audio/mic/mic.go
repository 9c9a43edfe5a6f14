// Package mic captures the default (or a chosen) input device through
// PortAudio and feeds fixed-size frames into an audio.Queue.
package mic

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/gordonklaus/portaudio"

	"salonvox/internal/audio"
)

type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// Devices lists input-capable devices. It initializes and terminates
// PortAudio itself, so it is safe to call before or after a Source.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	def, _ := portaudio.DefaultInputDevice()

	var out []Device
	for i, d := range all {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           def != nil && def.Name == d.Name,
		})
	}
	return out, nil
}

type Config struct {
	SampleRate int
	FrameSize  int
	// Device is an index from Devices; negative means the system default.
	Device int
}

type Source struct {
	cfg    Config
	buf    []float32
	stream *portaudio.Stream
}

// Open initializes PortAudio and opens the input stream without starting it.
func Open(cfg Config) (*Source, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 1600
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	s := &Source{cfg: cfg, buf: make([]float32, cfg.FrameSize)}

	var err error
	if cfg.Device < 0 {
		s.stream, err = portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(s.buf), s.buf)
	} else {
		s.stream, err = openDevice(cfg, s.buf)
	}
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	return s, nil
}

func openDevice(cfg Config, buf []float32) (*portaudio.Stream, error) {
	all, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if cfg.Device >= len(all) {
		return nil, fmt.Errorf("no device with index %d", cfg.Device)
	}
	dev := all[cfg.Device]
	if dev.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}

	p := portaudio.LowLatencyParameters(dev, nil)
	p.Input.Channels = 1
	p.SampleRate = float64(cfg.SampleRate)
	p.FramesPerBuffer = len(buf)

	return portaudio.OpenStream(p, buf)
}

// Run reads frames until ctx ends or the stream fails. Each frame is a
// fresh copy; frames the queue refuses (muted or full) are lost.
func (s *Source) Run(ctx context.Context, q *audio.Queue) error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer s.stream.Stop()

	log.Info("Microphone started", "rate", s.cfg.SampleRate, "frame", s.cfg.FrameSize)

	for ctx.Err() == nil {
		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				log.Debug("Input overflowed")
				continue
			}
			return fmt.Errorf("read stream: %w", err)
		}

		frame := make([]float32, len(s.buf))
		copy(frame, s.buf)
		q.Push(frame)
	}

	return ctx.Err()
}

func (s *Source) Close() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
