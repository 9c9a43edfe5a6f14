// Package ipc is the daemon's control socket: one JSON request and one JSON
// reply per connection over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"

	"salonvox/internal/booking"
)

const DefaultSocketPath = "/tmp/salonvox.sock"

type Request struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

type Reply struct {
	OK           bool                  `json:"ok"`
	Message      string                `json:"message,omitempty"`
	Appointments []booking.Appointment `json:"appointments,omitempty"`
}

type Handler func(ctx context.Context, req Request) Reply

type Server struct {
	path string
	ln   net.Listener
}

// Listen replaces any stale socket file at path and starts accepting.
func Listen(ctx context.Context, path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln}
	go s.accept(ctx, handler)

	return s, nil
}

func (s *Server) Path() string {
	return s.path
}

func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) accept(ctx context.Context, handler Handler) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Control accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad control request", "err", err)
		_ = json.NewEncoder(conn).Encode(Reply{Message: "bad request"})
		return
	}

	log.Debug("Control command", "cmd", req.Cmd, "args", req.Args)

	if err := json.NewEncoder(conn).Encode(handler(ctx, req)); err != nil {
		log.Warn("Control reply failed", "err", err)
	}
}

// Send dials the daemon, sends req and waits for its reply.
func Send(ctx context.Context, path string, req Request) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var rep Reply
	if err := json.NewDecoder(conn).Decode(&rep); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return rep, nil
}
