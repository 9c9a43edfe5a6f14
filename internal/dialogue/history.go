package dialogue

import (
	"sync"

	"salonvox/internal/llm"
)

const historyCap = 200

// History is the in-memory conversation. It is never persisted.
type History struct {
	mu    sync.Mutex
	turns []llm.Turn
}

func (h *History) Append(role llm.Role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, llm.Turn{Role: role, Text: text})
	if len(h.turns) > historyCap {
		h.turns = append([]llm.Turn(nil), h.turns[len(h.turns)-historyCap:]...)
	}
}

// Recent returns a copy of the last n turns, all of them when n <= 0.
func (h *History) Recent(n int) []llm.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	from := 0
	if n > 0 && len(h.turns) > n {
		from = len(h.turns) - n
	}
	return append([]llm.Turn(nil), h.turns[from:]...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
