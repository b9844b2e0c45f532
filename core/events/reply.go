package events

const (
	// KindReplyStarted identifies the arrival of the first reply chunk.
	KindReplyStarted Kind = "reply.started"
	// KindReplyTextSegment identifies an append-only reply text fragment.
	KindReplyTextSegment Kind = "reply.text_segment"
	// KindReplyStreamEnded identifies the end of the reply stream.
	KindReplyStreamEnded Kind = "reply.stream_ended"
)

// ReplyStarted marks the arrival of the first chunk of a streamed reply.
type ReplyStarted struct{ Base }

func (ReplyStarted) String() string { return "reply started" }

// NewReplyStarted creates a reply started event.
func NewReplyStarted() ReplyStarted {
	return ReplyStarted{Base: NewBase(KindReplyStarted)}
}

// ReplyTextSegment carries a reply text fragment in chunk sequence order.
type ReplyTextSegment struct {
	Base
	Segment  string
	Sequence int
}

func (ReplyTextSegment) String() string { return "reply text segment" }

// NewReplyTextSegment creates a reply text fragment event.
func NewReplyTextSegment(segment string, sequence int) ReplyTextSegment {
	return ReplyTextSegment{Base: NewBase(KindReplyTextSegment), Segment: segment, Sequence: sequence}
}

// ReplyStreamEnded marks the end of the reply stream, whether by natural
// completion, protocol error, or transport failure. Err is nil on natural
// completion and on cancellation caused by an interrupt.
type ReplyStreamEnded struct {
	Base
	FullText string
	Chunks   int
	Err      error
}

func (ReplyStreamEnded) String() string { return "reply stream ended" }

// NewReplyStreamEnded creates a reply stream ended event.
func NewReplyStreamEnded(fullText string, chunks int, err error) ReplyStreamEnded {
	return ReplyStreamEnded{Base: NewBase(KindReplyStreamEnded), FullText: fullText, Chunks: chunks, Err: err}
}
