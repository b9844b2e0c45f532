package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

// minUtteranceBytes is the floor below which a finalized capture is
// considered breath noise rather than speech and never forwarded.
const minUtteranceBytes = 2 << 10

// UtteranceSegment is one finalized stretch of user speech, ready for
// transcription.
type UtteranceSegment struct {
	ID       string
	Audio    []byte
	Encoding audio.EncodingInfo
	Duration time.Duration
}

// recorder accumulates drained capture bytes into utterance segments. It
// keeps a rolling pre-roll while inactive so that a confirmed utterance
// includes the audio from before the continuity window elapsed. Single
// goroutine, no locking.
type recorder struct {
	encoding audio.EncodingInfo

	active    bool
	buf       []byte
	startedAt time.Time

	preroll      []byte
	prerollLimit int
}

func newRecorder(encoding audio.EncodingInfo, prerollWindow time.Duration) *recorder {
	return &recorder{
		encoding:     encoding,
		prerollLimit: bytesForDuration(encoding, prerollWindow),
	}
}

func bytesForDuration(encoding audio.EncodingInfo, d time.Duration) int {
	byteSize := encoding.Format.ByteSize()
	if byteSize <= 0 || encoding.SampleRate <= 0 {
		return 0
	}
	samples := int(float64(d) / float64(time.Second) * float64(encoding.SampleRate))
	return samples * byteSize
}

// Ingest receives every drained capture buffer, recording or not. While
// inactive it maintains the pre-roll; while active it appends.
func (r *recorder) Ingest(b []byte) {
	if len(b) == 0 {
		return
	}

	if !r.active {
		r.preroll = append(r.preroll, b...)
		if len(r.preroll) > r.prerollLimit {
			r.preroll = r.preroll[len(r.preroll)-r.prerollLimit:]
		}
		return
	}

	r.buf = append(r.buf, b...)
}

// Begin opens a capture. Overlapping captures are a programming error in
// the orchestrator, not a runtime condition, hence the error return.
func (r *recorder) Begin(now time.Time) error {
	if r.active {
		return fmt.Errorf("utterance capture already in progress")
	}

	r.active = true
	r.startedAt = now
	r.buf = append(r.buf[:0], r.preroll...)
	r.preroll = r.preroll[:0]
	return nil
}

// Finish closes the capture and returns the segment. Segments under the
// byte floor return [ErrShortUtterance] with everything released.
func (r *recorder) Finish(now time.Time) (*UtteranceSegment, error) {
	if !r.active {
		return nil, fmt.Errorf("no utterance capture in progress")
	}

	captured := r.buf
	r.release()

	if len(captured) < minUtteranceBytes {
		return nil, ErrShortUtterance
	}

	return &UtteranceSegment{
		ID:       uuid.NewString(),
		Audio:    captured,
		Encoding: r.encoding,
		Duration: r.encoding.Duration(captured),
	}, nil
}

// Abort discards an in-progress capture. Safe to call when idle.
func (r *recorder) Abort() {
	r.release()
}

func (r *recorder) release() {
	r.active = false
	r.buf = nil
	r.startedAt = time.Time{}
}
