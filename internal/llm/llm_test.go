package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Request{
	System:  "You are Aura.",
	Context: "Current date/time: Monday, December 29, 2025 at 10:00 AM",
	Turns: []Turn{
		{Role: RoleUser, Text: "Hi"},
		{Role: RoleAssistant, Text: "Hello!"},
		{Role: RoleUser, Text: "Any openings tomorrow?"},
	},
}

func TestPrompt(t *testing.T) {
	want := "Current date/time: Monday, December 29, 2025 at 10:00 AM\n\n" +
		"Conversation history:\n" +
		"User: Hi\n" +
		"Assistant: Hello!\n" +
		"User: Any openings tomorrow?\n"
	assert.Equal(t, want, sample.Prompt())
}

func TestTaggedPrompt(t *testing.T) {
	got := TaggedPrompt(Request{System: "S", Turns: []Turn{{Role: RoleUser, Text: "hey"}}})
	assert.Equal(t, "<|system|>\nS<|end|>\n<|user|>\nhey<|end|>\n<|assistant|>\n", got)
}

func TestGenerateJoinsStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, chunk := range []string{"We have ", "openings", "."} {
			fmt.Fprintf(w, `{"model":"m","response":%q,"done":false}`+"\n", chunk)
		}
		fmt.Fprintln(w, `{"model":"m","response":"","done":true}`)
	}))
	defer srv.Close()

	b, err := New(Config{Kind: "generate", Host: srv.URL, Model: "phi3"})
	require.NoError(t, err)

	out, err := b.Complete(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "We have openings.", out)

	assert.Equal(t, "phi3", body["model"])
	assert.Equal(t, "You are Aura.", body["system"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, sample.Prompt(), body["prompt"])
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	b, err := NewGenerate(Config{Host: srv.URL, Model: "x"}, srv.Client())
	require.NoError(t, err)

	_, err = b.Complete(context.Background(), sample)
	assert.Error(t, err)
}

func TestChat(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Sure thing."}}]}`)
	}))
	defer srv.Close()

	b, err := New(Config{Kind: "chat", Host: srv.URL, Model: "llama3"}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	out, err := b.Complete(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "Sure thing.", out)

	assert.Equal(t, "llama3", body.Model)
	require.Len(t, body.Messages, 4)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Contains(t, body.Messages[0].Content, "Current date/time")
	assert.Equal(t, "assistant", body.Messages[2].Role)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runner")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCLI(t *testing.T) {
	cmd := writeScript(t, `[ "$1" = run ] || exit 3
[ "$2" = tiny ] || exit 4
echo "[loading model]"
echo "Hello, how can I help?"
`)
	out, err := NewCLI(Config{Command: cmd, Model: "tiny"}).Complete(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "Hello, how can I help?", out)
}

func TestCLIFailure(t *testing.T) {
	cmd := writeScript(t, "echo boom >&2\nexit 1\n")
	_, err := NewCLI(Config{Command: cmd}).Complete(context.Background(), sample)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Config{Kind: "smoke-signals"})
	assert.Error(t, err)
}
