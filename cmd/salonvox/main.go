// salonvox is a text console for the receptionist: typed lines go through
// the same dialogue engine and tools as the voice daemon.
package main

import (
	"bufio"
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	cli "github.com/spf13/pflag"

	"salonvox/internal/assistant"
	"salonvox/internal/booking"
	"salonvox/internal/config"
	"salonvox/internal/dialogue"
	"salonvox/internal/escalation"
	"salonvox/internal/llm"
	"salonvox/internal/logging"
	"salonvox/internal/proxy"
)

func main() {
	cfg, err := config.Load(cli.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	closer, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Session: uuid.NewString(), Console: os.Stderr})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	defer closer.Close()

	kb, err := dialogue.LoadKnowledgeBase(cfg.KnowledgeBase)
	if err != nil {
		log.Error("Failed to load knowledge base", "err", err)
		os.Exit(1)
	}

	hc, err := proxy.NewHTTPClient(cfg.LLM.Proxy, cfg.LLM.Timeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.LLM.Proxy, "err", err)
		os.Exit(1)
	}
	backend, err := llm.New(llm.Config{
		Kind:    cfg.LLM.Backend,
		Host:    cfg.LLM.Host,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Command: cfg.LLM.Command,
	}, llm.WithHTTPClient(hc))
	if err != nil {
		log.Error("Failed to init LLM backend", "err", err)
		os.Exit(1)
	}

	say := func(text string) { fmt.Printf("%s: %s\n", kb.Persona(), text) }

	alert := escalation.New(escalation.Options{
		Countdown: cfg.Escalation.Countdown,
		Tick:      cfg.Escalation.Tick,
		OnTick: func(left int) {
			if left%10 == 0 && left > 0 {
				fmt.Printf("[manager alert: %ds left, type /ack]\n", left)
			}
		},
	})

	engine := dialogue.NewEngine(backend, kb, booking.NewStore(cfg.Booking.File), alert, dialogue.Config{
		HistoryTurns: cfg.LLM.HistoryTurns,
		Timeout:      cfg.LLM.Timeout,
		Announce:     say,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	say(engine.Greeting())

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() || ctx.Err() != nil {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
			continue
		case line == "/ack":
			if !alert.Acknowledge() {
				fmt.Println("[no active alert]")
			}
			continue
		case assistant.IsExit(line):
			return
		}

		say(engine.Respond(ctx, line))
	}
}
