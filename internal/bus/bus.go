// Package bus publishes call events to an external viewer over a websocket.
package bus

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"salonvox/internal/booking"
)

const (
	KindTranscript  = "transcript"
	KindReply       = "reply"
	KindBooking     = "booking"
	KindAlert       = "alert"
	KindAlertTick   = "alert_tick"
	KindAlertClosed = "alert_closed"
)

type Event struct {
	From        string               `json:"from"`
	Kind        string               `json:"kind"`
	Session     string               `json:"session"`
	Content     string               `json:"content,omitempty"`
	Remaining   int                  `json:"remaining,omitempty"`
	Appointment *booking.Appointment `json:"appointment,omitempty"`
}

type Publisher interface {
	Publish(ev Event) error
	Close() error
}

// Nop drops everything; used when no bus URL is configured.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close() error        { return nil }

// Bus stamps each event with its sender name and session id.
type Bus struct {
	from    string
	session string

	mu   sync.Mutex
	conn *websocket.Conn
}

func Dial(wsURL, from, session string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	d := *websocket.DefaultDialer
	d.HandshakeTimeout = 5 * time.Second

	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{from: from, session: session, conn: conn}, nil
}

// Open returns Nop for an empty URL and a connected Bus otherwise.
func Open(wsURL, from, session string) (Publisher, error) {
	if wsURL == "" {
		return Nop{}, nil
	}
	return Dial(wsURL, from, session)
}

func (b *Bus) Publish(ev Event) error {
	if ev.From == "" {
		ev.From = b.from
	}
	if ev.Session == "" {
		ev.Session = b.session
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return b.conn.Close()
}
