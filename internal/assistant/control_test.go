package assistant

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonvox/internal/booking"
	"salonvox/internal/escalation"
	"salonvox/internal/ipc"
)

func newControl(t *testing.T) (*Control, *booking.Store, *escalation.Alert, *[]string) {
	t.Helper()

	store := booking.NewStore(filepath.Join(t.TempDir(), "bookings.json"))
	for _, at := range []string{"10:00 AM", "02:00 PM"} {
		_, err := store.Book(booking.Appointment{Date: "2025-12-29", Time: at, CustomerName: "Kevin", Phone: "555-8888"})
		require.NoError(t, err)
	}
	_, err := store.Book(booking.Appointment{Date: "2025-12-30", Time: "09:00 AM", CustomerName: "Lena", Phone: "555-9999"})
	require.NoError(t, err)

	alert := escalation.New(escalation.Options{Countdown: 100, Tick: time.Hour})
	var said []string

	return &Control{
		Bookings: store,
		Alert:    alert,
		Announce: func(s string) { said = append(said, s) },
		Now:      func() time.Time { return time.Date(2025, 12, 29, 8, 0, 0, 0, time.Local) },
	}, store, alert, &said
}

func TestControlListAndStatus(t *testing.T) {
	c, _, _, _ := newControl(t)
	ctx := context.Background()

	rep := c.Handle(ctx, ipc.Request{Cmd: "list"})
	require.True(t, rep.OK)
	assert.Len(t, rep.Appointments, 3)

	rep = c.Handle(ctx, ipc.Request{Cmd: "list", Args: []string{"today"}})
	assert.Len(t, rep.Appointments, 2)

	rep = c.Handle(ctx, ipc.Request{Cmd: "status"})
	assert.Equal(t, "2 appointment(s) today", rep.Message)
}

func TestControlCancelAndDone(t *testing.T) {
	c, store, _, _ := newControl(t)
	ctx := context.Background()

	rep := c.Handle(ctx, ipc.Request{Cmd: "cancel", Args: []string{"#1"}})
	assert.True(t, rep.OK, rep.Message)

	rep = c.Handle(ctx, ipc.Request{Cmd: "done", Args: []string{"2"}})
	assert.Equal(t, "appointment #2 completed", rep.Message)

	rep = c.Handle(ctx, ipc.Request{Cmd: "done", Args: []string{"42"}})
	assert.False(t, rep.OK)
	assert.Equal(t, "appointment #42 not found", rep.Message)

	rep = c.Handle(ctx, ipc.Request{Cmd: "cancel", Args: []string{"x"}})
	assert.False(t, rep.OK)

	all, err := store.Confirmed()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Lena", all[0].CustomerName)
}

func TestControlAckAndSay(t *testing.T) {
	c, _, alert, said := newControl(t)
	ctx := context.Background()

	assert.False(t, c.Handle(ctx, ipc.Request{Cmd: "ack"}).OK)

	fired := make(chan struct{})
	require.NoError(t, alert.Trigger(func() { close(fired) }))
	assert.Contains(t, c.Handle(ctx, ipc.Request{Cmd: "status"}).Message, "manager alert active")

	assert.True(t, c.Handle(ctx, ipc.Request{Cmd: "ack"}).OK)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not run on ack")
	}

	assert.True(t, c.Handle(ctx, ipc.Request{Cmd: "say", Args: []string{"Back", "in", "5"}}).OK)
	assert.Equal(t, []string{"Back in 5"}, *said)

	assert.False(t, c.Handle(ctx, ipc.Request{Cmd: "dance"}).OK)
}
