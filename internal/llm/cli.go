package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLI shells out to `<command> run <model> <prompt>` with a role-tagged
// prompt. A non-zero exit is a failure.
type CLI struct {
	command string
	model   string
}

func NewCLI(cfg Config) *CLI {
	cmd := cfg.Command
	if cmd == "" {
		cmd = "ollama"
	}
	return &CLI{command: cmd, model: cfg.Model}
}

func (c *CLI) Complete(ctx context.Context, req Request) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.command, "run", c.model, TaggedPrompt(req))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s run: %w (stderr: %s)", c.command, err, strings.TrimSpace(stderr.String()))
	}

	return cleanCLIOutput(stdout.String()), nil
}

// TaggedPrompt renders the request in the <|role|> ... <|end|> form chat
// models expect when given raw text, ending with an open assistant tag.
func TaggedPrompt(req Request) string {
	var b strings.Builder

	system := req.System
	if req.Context != "" {
		system += "\n\n" + req.Context
	}
	fmt.Fprintf(&b, "<|system|>\n%s<|end|>\n", system)

	for _, t := range req.Turns {
		fmt.Fprintf(&b, "<|%s|>\n%s<|end|>\n", t.Role, t.Text)
	}
	b.WriteString("<|assistant|>\n")

	return b.String()
}

// cleanCLIOutput drops the runner's progress lines.
func cleanCLIOutput(s string) string {
	var keep []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, ">>>") {
			continue
		}
		keep = append(keep, line)
	}
	return strings.Join(keep, "\n")
}
