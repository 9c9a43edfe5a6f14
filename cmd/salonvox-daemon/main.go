package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/spf13/pflag"

	"salonvox/internal/assistant"
	"salonvox/internal/audio"
	"salonvox/internal/audio/mic"
	"salonvox/internal/booking"
	"salonvox/internal/bus"
	"salonvox/internal/config"
	"salonvox/internal/dialogue"
	"salonvox/internal/escalation"
	"salonvox/internal/ipc"
	"salonvox/internal/llm"
	"salonvox/internal/logging"
	"salonvox/internal/notify"
	"salonvox/internal/proxy"
	"salonvox/internal/tts"
	"salonvox/internal/turn"
	"salonvox/internal/vad"
	"salonvox/pkg/stt"
)

func main() {
	listDevices := cli.Bool("list-devices", false, "Print input devices and exit")
	cfg, err := config.Load(cli.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	session := uuid.NewString()
	logCloser, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Session: session})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer logCloser.Close()

	if *listDevices {
		printDevices()
		return
	}

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, session)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Stopped", "err", err)
		logCloser.Close()
		os.Exit(1)
	}
	log.Info("Bye")
}

func run(ctx context.Context, cfg *config.Config, session string) error {
	kb, err := dialogue.LoadKnowledgeBase(cfg.KnowledgeBase)
	if err != nil {
		return err
	}
	log.Debug("Loaded knowledge base", "assistant", kb.Persona(), "business", kb.BusinessInfo.Name)

	if _, err := os.Stat(cfg.STT.Model); err != nil {
		return fmt.Errorf("whisper model: %w", err)
	}

	httpClient, err := proxy.NewHTTPClient(cfg.LLM.Proxy, cfg.LLM.Timeout)
	if err != nil {
		return fmt.Errorf("socks proxy %s: %w", cfg.LLM.Proxy, err)
	}

	backend, err := llm.New(llm.Config{
		Kind:    cfg.LLM.Backend,
		Host:    cfg.LLM.Host,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Command: cfg.LLM.Command,
	}, llm.WithHTTPClient(httpClient))
	if err != nil {
		return err
	}
	log.Debug("Loaded LLM backend", "kind", cfg.LLM.Backend, "model", cfg.LLM.Model)

	whisper, err := stt.NewTranscriber(cfg.STT.Model, stt.Options{
		Language:      cfg.STT.Language,
		Threads:       cfg.STT.Threads,
		BeamSize:      cfg.STT.BeamSize,
		InitialPrompt: cfg.STT.Prompt,
	})
	if err != nil {
		return fmt.Errorf("init whisper: %w", err)
	}
	defer whisper.Close()
	log.Debug("Loaded whisper")

	det, err := vad.New(vad.Config{
		Kind:         cfg.VAD.Kind,
		RMSThreshold: cfg.VAD.Threshold,
		SileroModel:  cfg.VAD.SileroModel,
		SileroThresh: float32(cfg.VAD.SileroThreshold),
		SampleRate:   cfg.Audio.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init %s detector: %w", cfg.VAD.Kind, err)
	}
	if c, ok := det.(io.Closer); ok {
		defer c.Close()
	}

	frameDur := time.Duration(cfg.Audio.FrameSize) * time.Second / time.Duration(cfg.Audio.SampleRate)
	asm := vad.NewAssembler(vad.AssemblerConfig{
		SilenceFrames: framesFor(cfg.VAD.Silence, frameDur),
		MinFrames:     framesFor(cfg.VAD.MinSpeech, frameDur),
		FrameDuration: frameDur,
	})

	q := audio.NewQueue(cfg.Audio.QueueSize)
	source, err := openSource(cfg)
	if err != nil {
		printDevices()
		return fmt.Errorf("audio input: %w", err)
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}

	// replayed files carry no echo, so speaking must not drain them
	var gate turn.Gate = q
	if cfg.Audio.InputFile != "" {
		gate = audio.KeepGate{Queue: q}
	}

	pub, err := bus.Open(cfg.Bus.URL, cfg.Bus.Name, session)
	if err != nil {
		log.Warn("Bus unavailable, continuing without it", "url", cfg.Bus.URL, "err", err)
		pub = bus.Nop{}
	}
	defer pub.Close()

	publish := func(ev bus.Event) {
		if err := pub.Publish(ev); err != nil {
			log.Warn("Failed to publish event", "kind", ev.Kind, "err", err)
		}
	}

	coordCfg := turn.Config{
		Settle: cfg.TTS.Settle,
		Reset:  []func(){det.Reset, asm.Reset},
	}
	if cfg.Audio.Duck {
		coordCfg.Ducker = audio.NewDucker(audio.DuckConfig{
			SelfNames: []string{"espeak", "espeak-ng", "salonvox"},
			Factor:    cfg.Audio.DuckFactor,
			MinVolume: 10,
			Fade:      cfg.Audio.DuckFade,
		})
	}
	coord := turn.New(gate, tts.NewEspeak(tts.Config{Voice: cfg.TTS.Voice, Rate: cfg.TTS.Rate}), coordCfg)

	chime := notify.NewChime(cfg.Escalation.Chime)
	alert := escalation.New(escalation.Options{
		Countdown: cfg.Escalation.Countdown,
		Tick:      cfg.Escalation.Tick,
		OnTrigger: func() {
			publish(bus.Event{Kind: bus.KindAlert, Content: "manager requested", Remaining: cfg.Escalation.Countdown})
			go func() {
				if err := chime.Play(ctx); err != nil {
					log.Warn("Failed to play chime", "err", err)
				}
			}()
		},
		OnTick: func(left int) {
			publish(bus.Event{Kind: bus.KindAlertTick, Remaining: left})
		},
		OnClose: func(r escalation.Reason) {
			publish(bus.Event{Kind: bus.KindAlertClosed, Content: r.String()})
		},
	})

	store := booking.NewStore(cfg.Booking.File)

	var loop *assistant.Loop
	engine := dialogue.NewEngine(backend, kb, store, alert, dialogue.Config{
		HistoryTurns: cfg.LLM.HistoryTurns,
		Timeout:      cfg.LLM.Timeout,
		Announce:     func(text string) { loop.Announce(text) },
		OnBooked: func(a booking.Appointment) {
			publish(bus.Event{Kind: bus.KindBooking, Appointment: &a})
		},
	})

	var dumper assistant.Dumper
	if cfg.Audio.DumpDir != "" {
		d, err := audio.NewDumper(cfg.Audio.DumpDir, cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		dumper = d
	}

	loop = assistant.New(assistant.Deps{
		Detector:    det,
		Assembler:   asm,
		Transcriber: whisper,
		Engine:      engine,
		Speaker:     coord,
		Bus:         pub,
		Dumper:      dumper,
	})

	ctl := &assistant.Control{Bookings: store, Alert: alert, Announce: loop.Announce}
	srv, err := ipc.Listen(ctx, cfg.Control.Socket, ctl.Handle)
	if err != nil {
		return fmt.Errorf("ipc server: %w", err)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "session", session, "socket", srv.Path())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcErr := make(chan error, 1)
	go func() {
		srcErr <- source.Run(ctx, q)
	}()

	loop.Say(ctx, engine.Greeting())

	err = loop.Run(ctx, q.Frames())
	cancel()
	if e := <-srcErr; e != nil && !errors.Is(e, context.Canceled) {
		log.Error("Audio input failed", "err", e)
	}

	if errors.Is(err, assistant.ErrHangup) {
		return nil
	}
	return err
}

type frameSource interface {
	Run(ctx context.Context, q *audio.Queue) error
}

func openSource(cfg *config.Config) (frameSource, error) {
	if cfg.Audio.InputFile != "" {
		return &audio.FileSource{
			Path:        cfg.Audio.InputFile,
			SampleRate:  cfg.Audio.SampleRate,
			FrameSize:   cfg.Audio.FrameSize,
			Realtime:    cfg.Audio.Realtime,
			TailSilence: cfg.Audio.TailSilence,
		}, nil
	}

	return mic.Open(mic.Config{
		SampleRate: cfg.Audio.SampleRate,
		FrameSize:  cfg.Audio.FrameSize,
		Device:     cfg.Audio.Device,
	})
}

func framesFor(d, frame time.Duration) int {
	if frame <= 0 {
		return 1
	}
	return max(int(math.Ceil(float64(d)/float64(frame))), 1)
}

func printDevices() {
	devs, err := mic.Devices()
	if err != nil {
		log.Error("Failed to list audio devices", "err", err)
		return
	}

	fmt.Println("Input devices:")
	for _, d := range devs {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf(" %s %2d  %s (%d ch, %.0f Hz)\n", mark, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
}
