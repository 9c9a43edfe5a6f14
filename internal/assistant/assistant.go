// Package assistant runs the call loop: frames in, spoken replies out, one
// utterance at a time.
package assistant

import (
	"context"
	"errors"
	log "log/slog"
	"strings"

	"salonvox/internal/bus"
	"salonvox/internal/vad"
)

// ErrHangup is returned by Run when the caller says "exit".
var ErrHangup = errors.New("caller ended the session")

const minTranscriptLen = 5

var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "uh": true, "um": true,
	"huh": true, "oh": true, "ah": true, "er": true, "mm": true,
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, utterance string) string
}

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Dumper interface {
	Dump(samples []float32) (string, error)
}

type Deps struct {
	Detector    vad.Detector
	Assembler   *vad.Assembler
	Transcriber Transcriber
	Engine      Responder
	Speaker     Speaker
	Bus         bus.Publisher
	Dumper      Dumper // optional
}

type Loop struct {
	d       Deps
	notices chan string
}

func New(d Deps) *Loop {
	if d.Bus == nil {
		d.Bus = bus.Nop{}
	}
	return &Loop{d: d, notices: make(chan string, 8)}
}

// Announce queues text to be spoken by the loop goroutine between
// utterances. It is safe to call from any goroutine and never blocks.
func (l *Loop) Announce(text string) {
	select {
	case l.notices <- text:
	default:
		log.Warn("Dropping announcement, queue full", "text", text)
	}
}

// Run consumes frames until they run out, ctx ends or the caller hangs up.
func (l *Loop) Run(ctx context.Context, frames <-chan []float32) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case text := <-l.notices:
			l.say(ctx, text)

		case frame, ok := <-frames:
			if !ok {
				log.Info("Audio input ended")
				return nil
			}
			if err := l.frame(ctx, frame); err != nil {
				return err
			}
		}
	}
}

// Say speaks text in the loop's voice, e.g. the greeting.
func (l *Loop) Say(ctx context.Context, text string) {
	l.say(ctx, text)
}

func (l *Loop) frame(ctx context.Context, frame []float32) error {
	speech, err := l.d.Detector.IsSpeech(frame)
	if err != nil {
		log.Warn("Speech detection failed", "err", err)
		speech = false
	}

	utt, ev := l.d.Assembler.Push(frame, speech)
	switch ev {
	case vad.Started:
		log.Debug("Recording started")
	case vad.Discarded:
		log.Debug("Utterance too short, dropped", "frames", utt.Frames)
	case vad.Emitted:
		log.Info("Utterance captured", "duration", utt.Duration)
		return l.utterance(ctx, utt)
	}
	return nil
}

func (l *Loop) utterance(ctx context.Context, utt vad.Utterance) error {
	if l.d.Dumper != nil {
		if path, err := l.d.Dumper.Dump(utt.Samples); err != nil {
			log.Warn("Failed to dump utterance", "err", err)
		} else {
			log.Debug("Dumped utterance", "path", path)
		}
	}

	text, err := l.d.Transcriber.Transcribe(ctx, utt.Samples)
	if err != nil {
		log.Error("Failed to transcribe", "err", err)
		return nil
	}
	text = strings.TrimSpace(text)

	if IsExit(text) {
		log.Info("Caller said exit")
		return ErrHangup
	}
	if IsNoise(text) {
		log.Debug("Ignoring transcript", "text", text)
		return nil
	}

	log.Info("Transcribed", "text", text)
	l.publish(bus.Event{Kind: bus.KindTranscript, Content: text})

	reply := l.d.Engine.Respond(ctx, text)
	l.say(ctx, reply)

	return nil
}

func (l *Loop) say(ctx context.Context, text string) {
	l.publish(bus.Event{Kind: bus.KindReply, Content: text})
	if err := l.d.Speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

func (l *Loop) publish(ev bus.Event) {
	if err := l.d.Bus.Publish(ev); err != nil {
		log.Warn("Failed to publish event", "kind", ev.Kind, "err", err)
	}
}

// IsNoise reports transcripts too short or too empty to answer.
func IsNoise(text string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".,!?"))
	if len(t) < minTranscriptLen {
		return true
	}
	return fillerWords[t]
}

func IsExit(text string) bool {
	return strings.ToLower(strings.Trim(strings.TrimSpace(text), ".,!?")) == "exit"
}
