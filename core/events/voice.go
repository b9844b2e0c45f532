package events

import "time"

const (
	// KindSpeechStarted identifies a confirmed speech onset.
	KindSpeechStarted Kind = "voice.speech_started"
	// KindSpeechEnded identifies the end of a confirmed utterance.
	KindSpeechEnded Kind = "voice.speech_ended"
	// KindInterrupt identifies a barge-in detection while audio is playing.
	KindInterrupt Kind = "voice.interrupt"
	// KindUtteranceDiscarded identifies an utterance dropped for being too short.
	KindUtteranceDiscarded Kind = "voice.utterance_discarded"
)

// SpeechStarted marks a confirmed speech onset.
type SpeechStarted struct{ Base }

func (SpeechStarted) String() string { return "speech started" }

// NewSpeechStarted creates a confirmed speech onset event.
func NewSpeechStarted() SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted)}
}

// SpeechEnded marks the end of a confirmed utterance.
type SpeechEnded struct {
	Base
	Duration time.Duration
}

func (SpeechEnded) String() string { return "speech ended" }

// NewSpeechEnded creates a speech ended event carrying the utterance duration.
func NewSpeechEnded(duration time.Duration) SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnded), Duration: duration}
}

// Interrupt marks a barge-in: the user started talking over active playback.
type Interrupt struct {
	Base
	Level int
}

func (Interrupt) String() string { return "interrupt" }

// NewInterrupt creates a barge-in event carrying the triggering level.
func NewInterrupt(level int) Interrupt {
	return Interrupt{Base: NewBase(KindInterrupt), Level: level}
}

// UtteranceDiscarded marks an utterance dropped below the minimum duration.
type UtteranceDiscarded struct {
	Base
	Duration time.Duration
}

func (UtteranceDiscarded) String() string { return "utterance discarded" }

// NewUtteranceDiscarded creates an utterance discarded event.
func NewUtteranceDiscarded(duration time.Duration) UtteranceDiscarded {
	return UtteranceDiscarded{Base: NewBase(KindUtteranceDiscarded), Duration: duration}
}
