// Package tts speaks text through espeak-ng's synchronous playback mode.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_say(const char *text, const char *voice, int rate)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE props = { 0 };
	props.languages = voice;
	espeak_SetVoiceByProperties(&props);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, 0, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"unsafe"
)

type Config struct {
	Voice string // espeak language/voice, e.g. "en-us"
	Rate  int    // words per minute, 0 keeps the espeak default
}

// Espeak blocks until the text has been played.
type Espeak struct {
	cfg Config
	mu  sync.Mutex
}

func NewEspeak(cfg Config) *Espeak {
	if cfg.Voice == "" {
		cfg.Voice = "en-us"
	}
	return &Espeak{cfg: cfg}
}

// Speak returns once playback is over. ctx is only checked before starting;
// playback in progress is not interrupted.
func (e *Espeak) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.cfg.Voice)
	defer C.free(unsafe.Pointer(cvoice))

	log.Debug("Speaking", "chars", len(text), "voice", e.cfg.Voice)

	rc := C.espeak_say(ctext, cvoice, C.int(e.cfg.Rate))
	if rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}
