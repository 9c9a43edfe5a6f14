// Package config assembles the daemon configuration from defaults, an
// optional YAML file, the environment and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	KnowledgeBase string `yaml:"knowledge_base"`

	LLM        LLM        `yaml:"llm"`
	Audio      Audio      `yaml:"audio"`
	VAD        VAD        `yaml:"vad"`
	STT        STT        `yaml:"stt"`
	TTS        TTS        `yaml:"tts"`
	Booking    Booking    `yaml:"booking"`
	Escalation Escalation `yaml:"escalation"`
	Control    Control    `yaml:"control"`
	Bus        Bus        `yaml:"bus"`
	Log        Log        `yaml:"log"`
}

type LLM struct {
	Backend      string        `yaml:"backend"` // generate, chat, cli
	Host         string        `yaml:"host"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"-"`
	Command      string        `yaml:"command"`
	Proxy        string        `yaml:"proxy"` // SOCKS5 address, empty for direct
	Timeout      time.Duration `yaml:"timeout"`
	HistoryTurns int           `yaml:"history_turns"`
}

type Audio struct {
	SampleRate  int           `yaml:"sample_rate"`
	FrameSize   int           `yaml:"frame_size"`
	Device      int           `yaml:"device"` // -1 = default input
	QueueSize   int           `yaml:"queue_size"`
	InputFile   string        `yaml:"input_file"`
	Realtime    bool          `yaml:"realtime"`
	TailSilence time.Duration `yaml:"tail_silence"`
	DumpDir     string        `yaml:"dump_dir"`
	Duck        bool          `yaml:"duck"`
	DuckFactor  float64       `yaml:"duck_factor"`
	DuckFade    time.Duration `yaml:"duck_fade"`
}

type VAD struct {
	Kind      string  `yaml:"kind"`      // rms or silero
	Threshold float64 `yaml:"threshold"` // frame RMS, rms detector only
	// SileroThreshold is the speech probability the silero model must reach.
	SileroThreshold float64       `yaml:"silero_threshold"`
	SileroModel     string        `yaml:"silero_model"`
	Silence         time.Duration `yaml:"silence"`
	MinSpeech       time.Duration `yaml:"min_speech"`
}

type STT struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	Threads  int    `yaml:"threads"`
	BeamSize int    `yaml:"beam_size"`
	Prompt   string `yaml:"prompt"`
}

type TTS struct {
	Voice  string        `yaml:"voice"`
	Rate   int           `yaml:"rate"`
	Settle time.Duration `yaml:"settle"`
}

type Booking struct {
	File string `yaml:"file"`
}

type Escalation struct {
	Countdown int           `yaml:"countdown"`
	Tick      time.Duration `yaml:"tick"`
	Chime     string        `yaml:"chime"`
}

type Control struct {
	Socket string `yaml:"socket"`
}

type Bus struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() Config {
	return Config{
		KnowledgeBase: "knowledge_base.json",
		LLM: LLM{
			Backend:      "generate",
			Host:         "http://localhost:11434",
			Model:        "phi3",
			Command:      "ollama",
			Timeout:      180 * time.Second,
			HistoryTurns: 10,
		},
		Audio: Audio{
			SampleRate:  16000,
			FrameSize:   1600,
			Device:      -1,
			QueueSize:   64,
			TailSilence: time.Second,
			DuckFactor:  0.3,
			DuckFade:    150 * time.Millisecond,
		},
		VAD: VAD{
			Kind:            "rms",
			Threshold:       0.015,
			SileroThreshold: 0.5,
			SileroModel:     "models/silero_vad.onnx",
			Silence:         800 * time.Millisecond,
			MinSpeech:       800 * time.Millisecond,
		},
		STT: STT{
			Model:    "models/ggml-base.en.bin",
			Language: "en",
			BeamSize: 5,
		},
		TTS: TTS{
			Voice:  "en-us",
			Rate:   165,
			Settle: 300 * time.Millisecond,
		},
		Booking: Booking{File: "bookings.json"},
		Escalation: Escalation{
			Countdown: 30,
			Tick:      time.Second,
			Chime:     "beep.mp3",
		},
		Control: Control{Socket: "/tmp/salonvox.sock"},
		Bus:     Bus{Name: "salonvox"},
		Log:     Log{Level: "info"},
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays OPENAI_API_KEY, OLLAMA_HOST and SALONVOX_* variables.
func ApplyEnv(getenv func(string) string, cfg *Config) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	str("OLLAMA_HOST", &cfg.LLM.Host)
	if h := cfg.LLM.Host; h != "" && !strings.Contains(h, "://") {
		// ollama accepts a bare host:port here
		cfg.LLM.Host = "http://" + h
	}

	str("SALONVOX_MODEL", &cfg.LLM.Model)
	str("SALONVOX_BACKEND", &cfg.LLM.Backend)
	str("SALONVOX_PROXY", &cfg.LLM.Proxy)
	str("SALONVOX_KNOWLEDGE_BASE", &cfg.KnowledgeBase)
	str("SALONVOX_BOOKINGS", &cfg.Booking.File)
	str("SALONVOX_WHISPER_MODEL", &cfg.STT.Model)
	str("SALONVOX_BUS_URL", &cfg.Bus.URL)
	str("SALONVOX_SOCKET", &cfg.Control.Socket)
	str("SALONVOX_LOG", &cfg.Log.Level)
	num("SALONVOX_DEVICE", &cfg.Audio.Device)

	return errors.Join(errs...)
}

// Load runs the whole chain for args (without the program name). Flags
// are registered on fs with the defaults, file and environment already
// applied, so a flag only wins when given explicitly.
func Load(fs *cli.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	// first pass: only the flags that decide where the rest comes from
	pre := cli.NewFlagSet("pre", cli.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	cfgPath := pre.StringP("config", "c", "", "")
	envPath := pre.StringP("env", "e", ".env", "")
	_ = pre.Parse(args)

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Default()
	if *cfgPath != "" {
		if err := LoadFile(*cfgPath, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(getenv, &cfg); err != nil {
		return nil, err
	}

	fs.StringP("config", "c", *cfgPath, "YAML config file")
	fs.StringP("env", "e", *envPath, "Env file path")
	Bind(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Bind registers flags writing straight into cfg.
func Bind(fs *cli.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.KnowledgeBase, "kb", "k", cfg.KnowledgeBase, "Knowledge base JSON")
	fs.StringVarP(&cfg.Booking.File, "bookings", "b", cfg.Booking.File, "Bookings JSON file")

	fs.StringVar(&cfg.LLM.Backend, "backend", cfg.LLM.Backend, "LLM backend: generate, chat or cli")
	fs.StringVar(&cfg.LLM.Host, "llm-host", cfg.LLM.Host, "LLM server base URL")
	fs.StringVarP(&cfg.LLM.Model, "model", "m", cfg.LLM.Model, "LLM model name")
	fs.StringVar(&cfg.LLM.Command, "llm-command", cfg.LLM.Command, "Model runner binary for the cli backend")
	fs.StringVarP(&cfg.LLM.Proxy, "proxy", "p", cfg.LLM.Proxy, "Socks proxy address for LLM requests")
	fs.DurationVar(&cfg.LLM.Timeout, "llm-timeout", cfg.LLM.Timeout, "Timeout of one LLM call")
	fs.IntVar(&cfg.LLM.HistoryTurns, "history", cfg.LLM.HistoryTurns, "Conversation turns sent to the model")

	fs.IntVarP(&cfg.Audio.Device, "device", "d", cfg.Audio.Device, "Input device index (-1 = default)")
	fs.StringVarP(&cfg.Audio.InputFile, "input", "i", cfg.Audio.InputFile, "Read audio from this file instead of the microphone")
	fs.BoolVar(&cfg.Audio.Realtime, "realtime", cfg.Audio.Realtime, "Pace file input in real time")
	fs.StringVar(&cfg.Audio.DumpDir, "dump", cfg.Audio.DumpDir, "Save every utterance as WAV into this directory")
	fs.BoolVar(&cfg.Audio.Duck, "duck", cfg.Audio.Duck, "Lower other audio while speaking")

	fs.StringVar(&cfg.VAD.Kind, "vad", cfg.VAD.Kind, "Speech detector: rms or silero")
	fs.Float64Var(&cfg.VAD.Threshold, "vad-threshold", cfg.VAD.Threshold, "RMS level counted as speech")
	fs.Float64Var(&cfg.VAD.SileroThreshold, "silero-threshold", cfg.VAD.SileroThreshold, "Silero speech probability")
	fs.StringVar(&cfg.VAD.SileroModel, "silero-model", cfg.VAD.SileroModel, "Silero ONNX model")
	fs.DurationVar(&cfg.VAD.Silence, "silence", cfg.VAD.Silence, "Trailing silence that ends an utterance")
	fs.DurationVar(&cfg.VAD.MinSpeech, "min-speech", cfg.VAD.MinSpeech, "Shorter utterances are dropped")

	fs.StringVarP(&cfg.STT.Model, "whisper-model", "w", cfg.STT.Model, "Whisper ggml model")
	fs.StringVar(&cfg.STT.Language, "language", cfg.STT.Language, "Transcription language")
	fs.IntVar(&cfg.STT.Threads, "threads", cfg.STT.Threads, "Whisper threads (0 = all CPUs)")

	fs.StringVar(&cfg.TTS.Voice, "voice", cfg.TTS.Voice, "espeak voice")
	fs.IntVar(&cfg.TTS.Rate, "rate", cfg.TTS.Rate, "Speech rate in words per minute")
	fs.DurationVar(&cfg.TTS.Settle, "settle", cfg.TTS.Settle, "Mic stays muted this long after speaking")

	fs.IntVar(&cfg.Escalation.Countdown, "countdown", cfg.Escalation.Countdown, "Manager alert countdown ticks")
	fs.DurationVar(&cfg.Escalation.Tick, "tick", cfg.Escalation.Tick, "Manager alert tick")
	fs.StringVar(&cfg.Escalation.Chime, "chime", cfg.Escalation.Chime, "Alert chime mp3")

	fs.StringVarP(&cfg.Control.Socket, "socket", "s", cfg.Control.Socket, "Control socket path")
	fs.StringVarP(&cfg.Bus.URL, "url", "u", cfg.Bus.URL, "Websocket url of the event hub")

	fs.StringVarP(&cfg.Log.Level, "log", "l", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Write JSON logs to this rotating file")
}
