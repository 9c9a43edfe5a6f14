// Package dialogue turns a caller utterance into the sentence the
// receptionist speaks back, running tool directives on the way.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"salonvox/internal/booking"
	"salonvox/internal/escalation"
	"salonvox/internal/llm"
)

const (
	OfflineReply    = "Sorry, the assistant is offline."
	NoResponseReply = "Sorry, no response."
	TroubleReply    = "I had trouble with that booking. Can you confirm your name, phone number, date, time, and service?"
	ManagerReply    = "One moment please, I'm getting the manager for you."
	ManagerNotice   = "The manager will call you back shortly."

	closedReply     = "We're closed on Sundays."
	badDateReply    = "Sorry, I couldn't understand that date. Which day would you like?"
	scheduleDown    = "Sorry, I can't check the schedule right now."
	slotsPreviewLen = 5
)

type Store interface {
	Availability(date, at string) (booking.Availability, error)
	Book(a booking.Appointment) (booking.Appointment, error)
}

type Escalator interface {
	Trigger(callback func()) error
}

type Config struct {
	HistoryTurns int           // turns sent to the model, default 10
	Timeout      time.Duration // per backend call, default 180s

	// Announce speaks ManagerNotice once the manager alert closes.
	Announce func(text string)
	// OnBooked is called after an appointment was written.
	OnBooked func(booking.Appointment)
}

type Engine struct {
	backend llm.Backend
	kb      *KnowledgeBase
	system  string
	store   Store
	alert   Escalator
	cfg     Config
	history History

	now func() time.Time
}

func NewEngine(backend llm.Backend, kb *KnowledgeBase, store Store, alert Escalator, cfg Config) *Engine {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}

	return &Engine{
		backend: backend,
		kb:      kb,
		system:  SystemPrompt(kb),
		store:   store,
		alert:   alert,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (e *Engine) Greeting() string {
	return Greeting(e.kb)
}

func (e *Engine) History() []llm.Turn {
	return e.history.Recent(0)
}

// Respond never fails: backend and tool errors become spoken apologies or
// clarifying questions.
func (e *Engine) Respond(ctx context.Context, utterance string) string {
	e.history.Append(llm.RoleUser, utterance)

	req := llm.Request{
		System:  e.system,
		Context: DateLine(e.now()),
		Turns:   e.history.Recent(e.cfg.HistoryTurns),
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	raw, err := e.backend.Complete(cctx, req)
	cancel()

	var reply string
	if err != nil {
		log.Error("LLM call failed", "err", err)
		reply = OfflineReply
	} else {
		log.Debug("LLM replied", "raw", raw)
		reply = e.interpret(strings.TrimSpace(raw))
	}

	e.history.Append(llm.RoleAssistant, reply)
	return reply
}

func (e *Engine) interpret(raw string) string {
	d, ok := ParseDirective(raw)
	if !ok {
		if out := Sanitize(raw); out != "" {
			return out
		}
		return NoResponseReply
	}

	log.Info("Tool directive", "kind", d.Kind, "payload", d.Payload)

	switch d.Kind {
	case CheckSlots:
		return e.checkSlots(d.Payload)
	case Book:
		return e.book(d.Payload)
	case CallManager:
		return e.callManager()
	}
	return NoResponseReply
}

func (e *Engine) checkSlots(payload string) string {
	date := ""
	if f := strings.Fields(payload); len(f) > 0 {
		date = f[0]
	}

	av, err := e.store.Availability(date, "")
	switch {
	case errors.Is(err, booking.ErrClosed):
		return closedReply
	case errors.Is(err, booking.ErrInvalidDate):
		return badDateReply
	case err != nil:
		log.Error("Availability lookup failed", "date", date, "err", err)
		return scheduleDown
	}

	if len(av.Open) == 0 {
		return "That day is fully booked. Would you like to try a different day?"
	}

	preview := av.Open
	if len(preview) > slotsPreviewLen {
		preview = preview[:slotsPreviewLen]
	}
	return fmt.Sprintf("We have %d openings on that day. Available times include %s. Would you like to book one?",
		len(av.Open), strings.Join(preview, ", "))
}

func (e *Engine) book(payload string) string {
	appt, err := ParseBooking(payload, e.kb.Persona())
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			log.Warn("Booking directive rejected", "reason", rej.Reason)
			return rej.Reply
		}
		return TroubleReply
	}

	created, err := e.store.Book(appt)
	if err != nil {
		var taken *booking.SlotTakenError
		switch {
		case errors.As(err, &taken):
			log.Info("Slot taken", "date", taken.Date, "time", taken.Time)
			return slotTakenReply(taken)
		case errors.Is(err, booking.ErrClosed):
			return "Sorry, that time isn't available. " + closedReply
		default:
			log.Error("Booking failed", "err", err)
			return TroubleReply
		}
	}

	log.Info("Appointment booked", "id", created.ID, "date", created.Date, "time", created.Time, "customer", created.CustomerName)
	if e.cfg.OnBooked != nil {
		e.cfg.OnBooked(created)
	}

	return fmt.Sprintf("Perfect! Your appointment is confirmed for %s at %s. See you then, %s!",
		created.Date, created.Time, created.CustomerName)
}

func slotTakenReply(t *booking.SlotTakenError) string {
	msg := fmt.Sprintf("Sorry, that time isn't available. %s on %s is already taken.", t.Time, t.Date)
	if len(t.Open) == 0 {
		return msg + " That day is fully booked."
	}
	return msg + " Open times include " + strings.Join(t.Open, ", ") + "."
}

func (e *Engine) callManager() string {
	if e.alert == nil {
		log.Warn("Manager escalation requested but no alert is configured")
		return ManagerReply
	}

	err := e.alert.Trigger(func() {
		if e.cfg.Announce != nil {
			e.cfg.Announce(ManagerNotice)
		}
	})
	if errors.Is(err, escalation.ErrActive) {
		log.Info("Manager alert already running")
	} else if err != nil {
		log.Error("Manager alert failed", "err", err)
	}

	return ManagerReply
}
