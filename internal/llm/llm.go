// Package llm talks to the local language model. Every backend takes the
// same Request and returns the model's raw reply text.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role
	Text string
}

type Request struct {
	System string
	// Context is prepended to the conversation, e.g. the current date line.
	Context string
	Turns   []Turn
}

// Prompt renders the context and turns as the flat text used by the
// generate endpoint.
func (r Request) Prompt() string {
	var b strings.Builder
	if r.Context != "" {
		b.WriteString(r.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation history:\n")
	for _, t := range r.Turns {
		switch t.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Kind    string // generate, chat or cli
	Host    string // base URL for generate/chat
	Model   string
	APIKey  string
	Command string // model runner binary for cli
}

// Option tweaks backend construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient routes HTTP backends through c, e.g. a SOCKS client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func (o options) client() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return http.DefaultClient
}

func New(cfg Config, opts ...Option) (Backend, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	switch cfg.Kind {
	case "", "generate":
		return NewGenerate(cfg, o.client())
	case "chat":
		return NewChat(cfg, o.client()), nil
	case "cli":
		return NewCLI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Kind)
	}
}
