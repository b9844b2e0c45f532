package events

const (
	// KindTranscriptFinal identifies the recognized text of an utterance.
	KindTranscriptFinal Kind = "transcript.final"
	// KindRecognitionFailed identifies an utterance the recognizer could not
	// turn into text.
	KindRecognitionFailed Kind = "transcript.recognition_failed"
	// KindUserTextSubmitted identifies manually typed user input.
	KindUserTextSubmitted Kind = "user_input.text_submitted"
)

// TranscriptFinal carries the terminal recognized text for an utterance.
type TranscriptFinal struct {
	Base
	Text string
}

func (TranscriptFinal) String() string { return "transcript final" }

// NewTranscriptFinal creates a final transcript event.
func NewTranscriptFinal(text string) TranscriptFinal {
	return TranscriptFinal{Base: NewBase(KindTranscriptFinal), Text: text}
}

// RecognitionFailed reports that a captured utterance produced no usable
// transcript, whether the recognizer rejected it or the call itself failed.
type RecognitionFailed struct {
	Base
	Err error
}

func (RecognitionFailed) String() string { return "recognition failed" }

// NewRecognitionFailed creates a recognition failure event.
func NewRecognitionFailed(err error) RecognitionFailed {
	return RecognitionFailed{Base: NewBase(KindRecognitionFailed), Err: err}
}

// UserTextSubmitted carries text typed by the user, used as a fallback when
// speech recognition fails.
type UserTextSubmitted struct {
	Base
	Text string
}

func (UserTextSubmitted) String() string { return "user text submitted" }

// NewUserTextSubmitted creates a manually submitted user text event.
func NewUserTextSubmitted(text string) UserTextSubmitted {
	return UserTextSubmitted{Base: NewBase(KindUserTextSubmitted), Text: text}
}
