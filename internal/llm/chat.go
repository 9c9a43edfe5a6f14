package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Chat talks to any OpenAI-compatible chat completion endpoint, Ollama's
// /v1 included.
type Chat struct {
	client openai.Client
	model  string
}

func NewChat(cfg Config, hc *http.Client) *Chat {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	key := cfg.APIKey
	if key == "" {
		// ollama ignores the key but the client insists on one
		key = "ollama"
	}

	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(strings.TrimSuffix(host, "/")+"/v1/"),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	)

	return &Chat{client: client, model: cfg.Model}
}

func (c *Chat) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.Context != "" {
		system += "\n\n" + req.Context
	}

	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, t := range req.Turns {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Text))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
