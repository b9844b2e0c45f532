package events

const (
	// KindPlaybackFinished identifies the completion of reply playback.
	KindPlaybackFinished Kind = "playback.finished"
)

// PlaybackFinished marks that the playback queue drained after the reply
// stream ended.
type PlaybackFinished struct{ Base }

func (PlaybackFinished) String() string { return "playback finished" }

// NewPlaybackFinished creates a playback finished event.
func NewPlaybackFinished() PlaybackFinished {
	return PlaybackFinished{Base: NewBase(KindPlaybackFinished)}
}
