package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"salonvox/pkg/audioconv"
)

// Dumper saves emitted utterances as numbered WAV files for inspection.
type Dumper struct {
	dir        string
	sampleRate int
	seq        atomic.Int64
}

func NewDumper(dir string, sampleRate int) (*Dumper, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dump dir: %w", err)
	}
	return &Dumper{dir: dir, sampleRate: sampleRate}, nil
}

func (d *Dumper) Dump(samples []float32) (string, error) {
	n := d.seq.Add(1)
	name := fmt.Sprintf("%s-%03d.wav", time.Now().Format("20060102-150405"), n)
	path := filepath.Join(d.dir, name)

	if err := audioconv.WriteWAVFile(path, samples, d.sampleRate); err != nil {
		return "", err
	}
	return path, nil
}
