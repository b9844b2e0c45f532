package pipeline

import (
	"sync"

	"github.com/jinzhu/copier"

	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// turnHistory holds the in-memory conversation transcript. Its only job is
// to populate the reply request's prior turns; nothing persists across
// process restarts.
type turnHistory struct {
	mu    sync.Mutex
	turns []replystream.Turn
}

// Push adds a new turn to the stored turns
func (t *turnHistory) Push(role, text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	t.turns = append(t.turns, replystream.Turn{Role: role, Text: text})
	t.mu.Unlock()
}

// Clear removes all stored turns
func (t *turnHistory) Clear() {
	t.mu.Lock()
	t.turns = nil
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy safe to hand to a reply request
// while the history keeps changing.
func (t *turnHistory) Snapshot() []replystream.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turns := make([]replystream.Turn, 0, len(t.turns))
	copier.Copy(&turns, t.turns)
	return turns
}
