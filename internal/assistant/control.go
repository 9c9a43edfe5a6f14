package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salonvox/internal/booking"
	"salonvox/internal/ipc"
)

type Bookings interface {
	Confirmed() ([]booking.Appointment, error)
	Today(now time.Time) ([]booking.Appointment, error)
	Cancel(id int) error
	Complete(id int) error
}

type Alert interface {
	Acknowledge() bool
	Active() bool
	Remaining() int
}

// Control answers the commands of salonvox-ctl.
type Control struct {
	Bookings Bookings
	Alert    Alert
	Announce func(text string)
	Now      func() time.Time
}

func (c *Control) Handle(_ context.Context, req ipc.Request) ipc.Reply {
	switch req.Cmd {
	case "status":
		return c.status()

	case "ack":
		if c.Alert.Acknowledge() {
			return ipc.Reply{OK: true, Message: "manager alert acknowledged"}
		}
		return ipc.Reply{Message: "no active manager alert"}

	case "list":
		return c.list(req.Args)

	case "cancel", "done":
		return c.mutate(req.Cmd, req.Args)

	case "say":
		text := strings.TrimSpace(strings.Join(req.Args, " "))
		if text == "" {
			return ipc.Reply{Message: "say: nothing to say"}
		}
		c.Announce(text)
		return ipc.Reply{OK: true, Message: "queued"}

	default:
		return ipc.Reply{Message: fmt.Sprintf("unknown command %q", req.Cmd)}
	}
}

func (c *Control) status() ipc.Reply {
	today, err := c.Bookings.Today(c.now())
	if err != nil {
		return ipc.Reply{Message: err.Error()}
	}

	msg := fmt.Sprintf("%d appointment(s) today", len(today))
	if c.Alert.Active() {
		msg += fmt.Sprintf("; manager alert active, %ds left", c.Alert.Remaining())
	}
	return ipc.Reply{OK: true, Message: msg, Appointments: today}
}

func (c *Control) list(args []string) ipc.Reply {
	var (
		appts []booking.Appointment
		err   error
	)
	if len(args) > 0 && args[0] == "today" {
		appts, err = c.Bookings.Today(c.now())
	} else {
		appts, err = c.Bookings.Confirmed()
	}
	if err != nil {
		return ipc.Reply{Message: err.Error()}
	}
	return ipc.Reply{OK: true, Message: fmt.Sprintf("%d appointment(s)", len(appts)), Appointments: appts}
}

func (c *Control) mutate(cmd string, args []string) ipc.Reply {
	if len(args) != 1 {
		return ipc.Reply{Message: cmd + ": want exactly one appointment id"}
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil {
		return ipc.Reply{Message: fmt.Sprintf("%s: bad id %q", cmd, args[0])}
	}

	if cmd == "cancel" {
		err = c.Bookings.Cancel(id)
	} else {
		err = c.Bookings.Complete(id)
	}
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return ipc.Reply{Message: fmt.Sprintf("appointment #%d not found", id)}
	case err != nil:
		return ipc.Reply{Message: err.Error()}
	}

	verb := "cancelled"
	if cmd == "done" {
		verb = "completed"
	}
	return ipc.Reply{OK: true, Message: fmt.Sprintf("appointment #%d %s", id, verb)}
}

func (c *Control) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
