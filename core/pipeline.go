// Package pipeline orchestrates one spoken conversation: microphone levels
// in, voice activity detection, utterance capture, synchronous speech
// recognition, a streamed reply, and interruptible playback. The pipeline
// is wired from collaborator interfaces through options; it owns the state
// machine and every goroutine in between.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
	"github.com/kaiwa-labs/kaiwa-core/core/events"
	"github.com/kaiwa-labs/kaiwa-core/core/render"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

const eventChannelCapacity = 16

type Pipeline struct {
	capture      CaptureDevice
	output       AudioOutput
	speechToText SpeechToText
	replyStream  ReplyStream
	surface      render.Surface

	detectorConfig DetectorConfig
	sampleInterval time.Duration
	chunkDecoder   func(encoded []byte) ([]byte, error)
	language       string
	scenarioID     string

	detector   *detector
	recorder   *recorder
	history    turnHistory
	interrupts interruptCoordinator

	// state is written only by the Run goroutine.
	state State

	// replyText and cancelReply belong to the reply in flight; also only
	// touched by the Run goroutine.
	replyText   strings.Builder
	cancelReply context.CancelFunc

	events          chan events.Event
	textSubmissions chan string

	runOnce sync.Once
}

func New(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		surface:         render.Nop{},
		detectorConfig:  DefaultDetectorConfig(),
		sampleInterval:  defaultSampleInterval,
		chunkDecoder:    func(encoded []byte) ([]byte, error) { return encoded, nil },
		events:          make(chan events.Event, eventChannelCapacity),
		textSubmissions: make(chan string, 1),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// SubmitText injects a typed utterance, the fallback for when recognition
// fails or no microphone is available. Accepted only while the pipeline is
// between replies; returns an error otherwise rather than queueing stale
// input.
func (p *Pipeline) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("nothing to submit")
	}

	select {
	case p.textSubmissions <- text:
		return nil
	default:
		return fmt.Errorf("pipeline busy, text not accepted")
	}
}

// PausePlayback holds the current reply at the next chunk boundary; the
// chunk already sounding plays out. A no-op when nothing is playing.
func (p *Pipeline) PausePlayback() {
	p.interrupts.Pause()
}

// ResumePlayback releases a paused reply.
func (p *Pipeline) ResumePlayback() {
	p.interrupts.Resume()
}

// Run drives the conversation until ctx is cancelled. Call at most once
// per pipeline instance.
func (p *Pipeline) Run(ctx context.Context) error {
	started := false
	p.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("pipeline already ran")
	}

	if p.output == nil || p.replyStream == nil {
		return fmt.Errorf("pipeline needs an audio output and a reply stream")
	}
	if p.capture != nil && p.speechToText == nil {
		return fmt.Errorf("a capture device needs a speech-to-text client to go with it")
	}

	ctx, span := tracer.Start(ctx, "conversation")
	defer span.End()

	encoding := audio.GetDefaultEncodingInfo()
	ticks := make(chan captureTick, 1)
	if p.capture != nil {
		if err := p.capture.Open(ctx); err != nil {
			deviceErr := audio.ClassifyDeviceError(err)
			span.RecordError(deviceErr)
			span.SetStatus(codes.Error, deviceErr.Error())
			p.surface.ShowError(deviceErr.UserMessage())
			return deviceErr
		}
		defer func() {
			if err := p.capture.Close(); err != nil {
				recordedErr := fmt.Errorf("failed to close capture device: %w", err)
				closeSpan := trace.SpanFromContext(ctx)
				closeSpan.RecordError(recordedErr)
				closeSpan.SetStatus(codes.Error, recordedErr.Error())
			}
		}()
		encoding = p.capture.EncodingInfo()

		go p.runSampler(ctx, ticks)
	} else {
		// Text-only session: no sampler, the ticks channel stays silent.
		defer close(ticks)
	}

	p.detector = newDetector(p.detectorConfig)
	p.recorder = newRecorder(encoding, p.detectorConfig.ContinuityWindow+p.sampleInterval)

	p.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil

		case tick, ok := <-ticks:
			if !ok {
				continue
			}
			p.surface.ShowLevel(tick.Level)
			p.recorder.Ingest(tick.Audio)
			for _, event := range p.detector.Observe(tick.At, tick.Level) {
				p.handleEvent(ctx, event, tick.At)
			}

		case event := <-p.events:
			p.handleEvent(ctx, event, time.Now())

		case text := <-p.textSubmissions:
			p.handleEvent(ctx, events.NewUserTextSubmitted(text), time.Now())
		}
	}
}

func (p *Pipeline) handleEvent(ctx context.Context, event events.Event, at time.Time) {
	switch t := event.(type) {
	case events.SpeechStarted:
		if p.state != StateIdle && p.state != StateListening {
			return
		}
		p.setState(StateListening)
		if err := p.recorder.Begin(at); err != nil {
			log.Printf("failed to begin utterance capture: %v", err)
		}

	case events.UtteranceDiscarded:
		if p.state != StateListening {
			return
		}
		p.recorder.Abort()
		p.setState(StateIdle)

	case events.SpeechEnded:
		if p.state != StateListening {
			return
		}
		segment, err := p.recorder.Finish(at)
		if err != nil {
			if !errors.Is(err, ErrShortUtterance) {
				log.Printf("failed to finalize utterance: %v", err)
			} else {
				metricUtterancesDiscarded.Inc()
			}
			p.setState(StateIdle)
			return
		}
		p.setState(StateTranscribing)
		go p.runTranscription(ctx, segment)

	case events.TranscriptFinal:
		if p.state != StateTranscribing {
			return
		}
		p.surface.ShowTranscript(t.Text)
		p.startReply(ctx, t.Text)

	case events.RecognitionFailed:
		if p.state != StateTranscribing {
			return
		}
		var recognitionErr *speechtotext.RecognitionError
		if errors.As(t.Err, &recognitionErr) {
			p.surface.ShowError("I didn't catch that. You can type your message instead.")
		} else {
			p.surface.ShowError("Speech recognition is unavailable right now. You can type your message instead.")
		}
		p.setState(StateIdle)

	case events.UserTextSubmitted:
		// Listening also accepts typed input: a barge-in spike that never
		// confirms as speech would otherwise strand the pipeline there.
		if p.state != StateIdle && p.state != StateListening {
			log.Printf("dropping typed input submitted while %s", p.state)
			return
		}
		if p.state == StateListening {
			p.recorder.Abort()
		}
		p.surface.ShowTranscript(t.Text)
		p.startReply(ctx, t.Text)

	case events.ReplyStarted:
		if p.state != StateAwaitingReply {
			return
		}
		p.setState(StateSpeaking)
		p.detector.Arm()

	case events.ReplyTextSegment:
		// A barge-in may leave segments already queued behind it; by the
		// time they arrive the reply they belong to is over.
		if p.state != StateSpeaking && p.state != StateAwaitingReply {
			return
		}
		p.replyText.WriteString(t.Segment)
		p.surface.ShowReply(render.ReplyUpdate{PartialText: p.replyText.String()})

	case events.ReplyStreamEnded:
		if p.state != StateSpeaking && p.state != StateAwaitingReply {
			return
		}
		if t.Err != nil {
			var transportErr *TransportError
			if errors.As(t.Err, &transportErr) {
				p.surface.ShowWarning("The reply was cut short by a connection problem.")
			}
			log.Printf("reply stream ended early: %v", t.Err)
		}

	case events.Interrupt:
		if err := p.interrupts.Trigger(); err != nil {
			// The reply finished on its own a beat before the barge-in.
			log.Printf("ignoring barge-in: %v", err)
			return
		}
		p.detector.Disarm()
		p.setState(StateInterrupted)
		p.surface.ShowReply(render.ReplyUpdate{
			PartialText:   p.replyText.String(),
			IsInterrupted: true,
		})
		p.finishReply()
		p.setState(StateListening)

	case events.PlaybackFinished:
		if p.state != StateSpeaking && p.state != StateAwaitingReply {
			return
		}
		p.detector.Disarm()
		p.interrupts.Disarm()
		p.finishReply()
		p.setState(StateIdle)

	default:
		log.Printf("skipped event of unknown type: %T", event)
	}
}

// runTranscription performs one synchronous recognition round trip off the
// orchestrator goroutine and reports back through the event channel.
func (p *Pipeline) runTranscription(ctx context.Context, segment *UtteranceSegment) {
	ctx, span := tracer.Start(ctx, "transcribe utterance")
	defer span.End()
	span.SetAttributes(
		attribute.String("utterance.id", segment.ID),
		attribute.Float64("utterance.duration_s", segment.Duration.Seconds()),
	)

	start := time.Now()
	result, err := p.speechToText.Transcribe(ctx, speechtotext.Request{
		Audio:    segment.Audio,
		Encoding: segment.Encoding,
		Language: p.language,
	})
	metricTranscriptionLatency.Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.publish(ctx, events.NewRecognitionFailed(err))
		return
	}

	p.publish(ctx, events.NewTranscriptFinal(result.Text))
}

// startReply opens the reply stream for one user turn and hands its
// lifetime to the consumer and playback goroutines.
func (p *Pipeline) startReply(ctx context.Context, userText string) {
	p.setState(StateAwaitingReply)
	p.replyText.Reset()

	// The request carries the utterance separately; history holds only the
	// turns that came before it.
	priorTurns := p.history.Snapshot()
	p.history.Push(roleUser, userText)

	replyCtx, cancel := context.WithCancel(ctx)

	stream, err := p.replyStream.Open(replyCtx, replystream.Request{
		UtteranceText: userText,
		PriorTurns:    priorTurns,
		ScenarioID:    p.scenarioID,
	})
	if err != nil {
		cancel()
		transportErr := &TransportError{Err: err}
		log.Printf("failed to open reply stream: %v", transportErr)
		p.surface.ShowError("Could not reach the conversation service.")
		p.setState(StateIdle)
		return
	}

	p.cancelReply = cancel
	queue := newPlaybackQueue()
	p.interrupts.Arm(cancel, queue, p.output)

	go p.consumeReply(replyCtx, stream, queue)
	go p.runPlayback(replyCtx, queue)
}

// finishReply records the turn and releases the reply context. Interrupted
// turns keep whatever text made it out before the barge-in.
func (p *Pipeline) finishReply() {
	if p.cancelReply != nil {
		p.cancelReply()
		p.cancelReply = nil
	}

	text := p.replyText.String()
	p.history.Push(roleAssistant, text)
	p.replyText.Reset()
}

// publish hands an event to the orchestrator goroutine, giving up if the
// originating context is cancelled first.
func (p *Pipeline) publish(ctx context.Context, event events.Event) {
	select {
	case p.events <- event:
	case <-ctx.Done():
	}
}

func (p *Pipeline) setState(next State) {
	if p.state == next {
		return
	}
	metricStateTransitions.WithLabelValues(p.state.String(), next.String()).Inc()
	p.state = next
	p.surface.ShowState(next.String())
}

// shutdown releases everything a cancelled conversation might still hold.
func (p *Pipeline) shutdown() {
	if err := p.interrupts.Trigger(); err != nil && !errors.Is(err, ErrInterruptRace) {
		log.Printf("failed to stop active reply: %v", err)
	}
	if p.cancelReply != nil {
		p.cancelReply()
		p.cancelReply = nil
	}
	if p.recorder != nil {
		p.recorder.Abort()
	}
	if p.detector != nil {
		p.detector.Disarm()
	}
}
