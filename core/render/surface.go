// Package render defines the push-only contract between the conversation
// pipeline and whatever displays it. The surface owns every visual decision
// (styling, expressions, talking-head selection); the pipeline only reports
// what happened and is never allowed to query the surface back.
package render

// ReplyUpdate is a point-in-time view of the reply being spoken.
type ReplyUpdate struct {
	// PartialText is the reply text accumulated so far, in chunk order.
	PartialText string
	// IsInterrupted reports that the user barged in and the remainder of the
	// reply was discarded.
	IsInterrupted bool
}

// Surface receives pipeline updates. Implementations must not block: updates
// are pushed from timing-sensitive loops.
type Surface interface {
	// ShowState reports a conversation state change.
	ShowState(state string)
	// ShowLevel reports the current microphone loudness (0..100).
	ShowLevel(level int)
	// ShowTranscript reports the recognized text of the user's utterance.
	ShowTranscript(text string)
	// ShowReply reports reply text progress, including interruption.
	ShowReply(update ReplyUpdate)
	// ShowError reports a user-facing failure message.
	ShowError(message string)
	// ShowWarning reports a soft, non-fatal condition (e.g. a reply that was
	// cut short by a transport failure after part of it played).
	ShowWarning(message string)
}

// Nop is a Surface that drops everything, for tests and headless runs.
type Nop struct{}

func (Nop) ShowState(string)      {}
func (Nop) ShowLevel(int)         {}
func (Nop) ShowTranscript(string) {}
func (Nop) ShowReply(ReplyUpdate) {}
func (Nop) ShowError(string)      {}
func (Nop) ShowWarning(string)    {}
