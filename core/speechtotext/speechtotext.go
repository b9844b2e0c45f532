// Package speechtotext defines the synchronous recognition contract used by
// the conversation pipeline. A finalized utterance goes in, recognized text
// comes out; streaming recognition is deliberately not part of the contract.
package speechtotext

import (
	"fmt"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

// Request carries one finalized utterance to a recognition backend.
type Request struct {
	// Audio is the raw utterance buffer, owned by the caller until the call
	// returns.
	Audio []byte
	// Encoding declares how Audio is encoded.
	Encoding audio.EncodingInfo
	// Language is an optional BCP-47 hint for the recognizer.
	Language string
}

// Result is the recognized text for a request.
type Result struct {
	Text string
}

// RecognitionError reports that the backend answered but produced no usable
// text. It is distinct from transport failures so callers can offer a
// manual-text fallback instead of treating the conversation as broken.
type RecognitionError struct {
	Reason string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition failed: %s", e.Reason)
}
