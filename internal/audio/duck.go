package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fadeStep struct {
	id   int
	from int
	to   int
}

type DuckConfig struct {
	// SelfNames are PulseAudio application.name values left untouched,
	// normally the synthesizer's own stream.
	SelfNames []string
	Factor    float64
	MinVolume int
	Fade      time.Duration
}

// Ducker lowers the volume of other playback streams while the assistant
// talks and restores them afterwards, through pactl.
type Ducker struct {
	cfg DuckConfig

	mu       sync.Mutex
	active   bool
	original map[int]int

	run func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(cfg DuckConfig) *Ducker {
	cfg.MinVolume = clampVolume(cfg.MinVolume)
	if cfg.Factor <= 0 || cfg.Factor > 1 {
		cfg.Factor = 0.3
	}

	return &Ducker{
		cfg:      cfg,
		original: make(map[int]int),
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var steps []fadeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}

		target := float64(in.Volume) * d.cfg.Factor
		target = math.Max(target, float64(d.cfg.MinVolume))

		d.original[in.ID] = in.Volume
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: clampVolume(int(math.Round(target)))})
	}

	if err := d.fade(ctx, steps); err != nil {
		return err
	}
	d.active = true

	return nil
}

// Restore fades ducked streams back to the volume they had before Duck.
// Streams that appeared in between are left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var steps []fadeStep
	for _, in := range inputs {
		orig, ok := d.original[in.ID]
		if !ok || d.isSelf(in) {
			continue
		}
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.fade(ctx, steps); err != nil {
		return err
	}

	d.original = make(map[int]int)
	d.active = false

	return nil
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.cfg.SelfNames {
		if in.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	arg := fmt.Sprintf("%d%%", clampVolume(percent))
	if _, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), arg); err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

func (d *Ducker) fade(ctx context.Context, steps []fadeStep) error {
	if len(steps) == 0 {
		return nil
	}

	if d.cfg.Fade <= 0 {
		for _, s := range steps {
			if err := d.setVolume(ctx, s.id, s.to); err != nil {
				return err
			}
		}
		return nil
	}

	const minStep = 10 * time.Millisecond

	n := max(int(d.cfg.Fade/minStep), 1)
	pause := d.cfg.Fade / time.Duration(n)

	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := float64(s.from) + float64(s.to-s.from)*frac
			if err := d.setVolume(ctx, s.id, int(math.Round(v))); err != nil {
				return err
			}
		}

		if i < n {
			time.Sleep(pause)
		}
	}

	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						in.Volume = v
					}
				}
			}

			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && in.AppName == "" {
				in.AppName = strings.Trim(rest, `"`)
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}

func clampVolume(v int) int {
	return min(max(v, 0), 150)
}
