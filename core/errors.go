package pipeline

import (
	"errors"
	"fmt"
)

// ErrShortUtterance marks a finalized capture that is too small to be worth
// transcribing. It is handled by discarding, never surfaced to the user.
var ErrShortUtterance = errors.New("utterance too short to transcribe")

// ErrInterruptRace marks a barge-in that arrived after the reply already
// finished on its own. It is a no-op by contract.
var ErrInterruptRace = errors.New("interrupt arrived after reply completed")

// ChunkError is a failure confined to a single reply chunk. The stream
// continues without it.
type ChunkError struct {
	Sequence int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("reply chunk %d unusable: %v", e.Sequence, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// TransportError is a mid-stream failure of the reply transport itself.
// Chunks enqueued before the failure stay playable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reply stream transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
