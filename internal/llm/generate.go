package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const DefaultHost = "http://localhost:11434"

// Generate uses Ollama's /api/generate with streaming on and joins the
// chunks until the server marks the response done.
type Generate struct {
	client *api.Client
	model  string
}

func NewGenerate(cfg Config, hc *http.Client) (*Generate, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse llm host: %w", err)
	}

	return &Generate{
		client: api.NewClient(base, hc),
		model:  cfg.Model,
	}, nil
}

func (g *Generate) Complete(ctx context.Context, req Request) (string, error) {
	stream := true

	var (
		out  strings.Builder
		done bool
	)
	err := g.client.Generate(ctx, &api.GenerateRequest{
		Model:  g.model,
		System: req.System,
		Prompt: req.Prompt(),
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		if resp.Done {
			done = true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if !done {
		return "", fmt.Errorf("generate: stream ended before done")
	}

	return out.String(), nil
}
