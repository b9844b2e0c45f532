package pipeline

// State is the conversation loop's single source of truth for what the
// pipeline is currently doing. Only the orchestrator goroutine writes it.
type State int

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
	StateAwaitingReply
	StateSpeaking
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateSpeaking:
		return "speaking"
	case StateInterrupted:
		return "interrupted"
	}
	return "unknown"
}
