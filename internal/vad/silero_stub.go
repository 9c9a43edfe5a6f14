//go:build !silero

package vad

import "errors"

func NewSilero(string, int, float32) (Detector, error) {
	return nil, errors.New("silero detector unavailable: build with -tags silero")
}
