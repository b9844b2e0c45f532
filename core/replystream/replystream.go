// Package replystream defines the streamed reply contract: a request carrying
// the recognized utterance and prior turns, answered by an ordered sequence of
// server-pushed events interleaving text fragments with synthesized audio.
package replystream

// Turn is one prior conversation exchange entry sent with a reply request.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"content"`
}

// Request asks the reply service for one streamed reply.
type Request struct {
	UtteranceText string `json:"message"`
	PriorTurns    []Turn `json:"history"`
	ScenarioID    string `json:"scenario_id,omitempty"`
}

// Event is one raw server-pushed event as it appears on the wire. Audio is
// transport-encoded (base64); decoding and validation happen in the consumer
// so a malformed event can be skipped without killing the stream.
type Event struct {
	Sequence int    `json:"chunk"`
	Text     string `json:"text"`
	Audio    string `json:"audio"`
	IsFinal  bool   `json:"final"`
	Error    string `json:"error"`
}

// Chunk is one decoded unit of a streamed reply.
type Chunk struct {
	Sequence int
	Text     string
	Audio    []byte
	IsFinal  bool
}
