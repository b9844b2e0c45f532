package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
	"github.com/kaiwa-labs/kaiwa-core/core/events"
	"github.com/kaiwa-labs/kaiwa-core/core/render"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

// fakeDevice is a capture device whose level the test sets on the fly.
type fakeDevice struct {
	mu    sync.Mutex
	level int
}

func (d *fakeDevice) Open(context.Context) error { return nil }
func (d *fakeDevice) Close() error               { return nil }

func (d *fakeDevice) setLevel(level int) {
	d.mu.Lock()
	d.level = level
	d.mu.Unlock()
}

func (d *fakeDevice) ReadLevel() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level, nil
}

func (d *fakeDevice) ReadBytes() ([]byte, error) {
	// Each drain is comfortably over the utterance byte floor on its own.
	return make([]byte, 4*1024), nil
}

func (d *fakeDevice) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

type stubSpeechToText struct {
	text string
	err  error
}

func (s stubSpeechToText) Transcribe(context.Context, speechtotext.Request) (speechtotext.Result, error) {
	if s.err != nil {
		return speechtotext.Result{}, s.err
	}
	return speechtotext.Result{Text: s.text}, nil
}

// stubReplyStream replays scripted wire events for every opened stream.
type stubReplyStream struct {
	events  []replystream.Event
	pause   time.Duration
	openErr error

	requests chan replystream.Request
}

func (s stubReplyStream) Open(ctx context.Context, req replystream.Request) (<-chan replystream.Event, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if s.requests != nil {
		select {
		case s.requests <- req:
		default:
		}
	}

	stream := make(chan replystream.Event)
	go func() {
		defer close(stream)
		for _, event := range s.events {
			if s.pause > 0 {
				select {
				case <-time.After(s.pause):
				case <-ctx.Done():
					return
				}
			}
			select {
			case stream <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return stream, nil
}

// recordingSurface captures everything the pipeline pushes at it.
type recordingSurface struct {
	mu          sync.Mutex
	states      []string
	transcripts []string
	replies     []render.ReplyUpdate
	errorsShown []string
	warnings    []string
}

func (s *recordingSurface) ShowState(state string) {
	s.mu.Lock()
	s.states = append(s.states, state)
	s.mu.Unlock()
}

func (s *recordingSurface) ShowLevel(int) {}

func (s *recordingSurface) ShowTranscript(text string) {
	s.mu.Lock()
	s.transcripts = append(s.transcripts, text)
	s.mu.Unlock()
}

func (s *recordingSurface) ShowReply(update render.ReplyUpdate) {
	s.mu.Lock()
	s.replies = append(s.replies, update)
	s.mu.Unlock()
}

func (s *recordingSurface) ShowError(message string) {
	s.mu.Lock()
	s.errorsShown = append(s.errorsShown, message)
	s.mu.Unlock()
}

func (s *recordingSurface) ShowWarning(message string) {
	s.mu.Lock()
	s.warnings = append(s.warnings, message)
	s.mu.Unlock()
}

func (s *recordingSurface) lastState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return ""
	}
	return s.states[len(s.states)-1]
}

func (s *recordingSurface) sawState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seen := range s.states {
		if seen == state {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fastOptions shrinks every timing window so a full conversation fits in a
// few hundred milliseconds of test time.
func fastOptions() []PipelineOption {
	return []PipelineOption{
		WithSampleInterval(5 * time.Millisecond),
		WithContinuityWindow(25 * time.Millisecond),
		WithSilenceWindow(25 * time.Millisecond),
		WithMinUtterance(40 * time.Millisecond),
	}
}

func TestPipelineSpokenRoundTrip(t *testing.T) {
	device := &fakeDevice{}
	surface := &recordingSurface{}
	output := &recordingOutput{}
	requests := make(chan replystream.Request, 1)

	p := New(append(fastOptions(),
		WithCaptureDevice(device),
		WithAudioOutput(output),
		WithSpeechToText(stubSpeechToText{text: "konnichiwa"}),
		WithReplyStream(stubReplyStream{
			events: []replystream.Event{
				wireEvent(0, "Hello! ", []byte{1, 2}, false),
				wireEvent(1, "Nice to meet you.", []byte{3, 4}, true),
			},
			requests: requests,
		}),
		WithSurface(surface),
	)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- p.Run(ctx) }()

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	device.setLevel(80)
	waitFor(t, "listening state", func() bool { return surface.sawState("listening") })
	time.Sleep(60 * time.Millisecond)
	device.setLevel(5)

	waitFor(t, "conversation to finish", func() bool {
		return surface.sawState("speaking") && surface.lastState() == "idle"
	})

	surface.mu.Lock()
	transcripts := append([]string(nil), surface.transcripts...)
	replies := append([]render.ReplyUpdate(nil), surface.replies...)
	surface.mu.Unlock()

	if len(transcripts) != 1 || transcripts[0] != "konnichiwa" {
		t.Errorf("expected the recognized transcript on the surface, got %v", transcripts)
	}
	if len(replies) == 0 || replies[len(replies)-1].PartialText != "Hello! Nice to meet you." {
		t.Errorf("expected the full reply text on the surface, got %v", replies)
	}

	select {
	case req := <-requests:
		if req.UtteranceText != "konnichiwa" {
			t.Errorf("expected the transcript in the reply request, got %q", req.UtteranceText)
		}
	default:
		t.Errorf("expected a reply request to have been opened")
	}

	output.mu.Lock()
	played := len(output.played)
	output.mu.Unlock()
	if played != 2 {
		t.Errorf("expected both chunks played, got %d", played)
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestPipelineBargeInStopsReplyAndListens(t *testing.T) {
	device := &fakeDevice{}
	surface := &recordingSurface{}
	output := &recordingOutput{}

	var chunks []replystream.Event
	for i := range 50 {
		chunks = append(chunks, wireEvent(i, fmt.Sprintf("part %d ", i), []byte{byte(i)}, i == 49))
	}

	p := New(append(fastOptions(),
		WithCaptureDevice(device),
		WithAudioOutput(output),
		WithSpeechToText(stubSpeechToText{text: "tell me a story"}),
		WithReplyStream(stubReplyStream{events: chunks, pause: 20 * time.Millisecond}),
		WithSurface(surface),
	)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	device.setLevel(80)
	time.Sleep(60 * time.Millisecond)
	device.setLevel(5)

	waitFor(t, "speaking state", func() bool { return surface.sawState("speaking") })

	device.setLevel(95)
	waitFor(t, "barge-in teardown", func() bool {
		return surface.sawState("interrupted") && output.wasStopped()
	})
	waitFor(t, "listening after interrupt", func() bool {
		return surface.lastState() == "listening"
	})

	surface.mu.Lock()
	var interruptedUpdate *render.ReplyUpdate
	for i := range surface.replies {
		if surface.replies[i].IsInterrupted {
			interruptedUpdate = &surface.replies[i]
			break
		}
	}
	surface.mu.Unlock()
	if interruptedUpdate == nil {
		t.Errorf("expected the surface to be told the reply was interrupted")
	}
}

func TestPipelineStaleReplyEventsAfterBargeInAreDropped(t *testing.T) {
	surface := &recordingSurface{}
	output := &recordingOutput{}

	p := New(
		WithAudioOutput(output),
		WithReplyStream(stubReplyStream{}),
		WithSurface(surface),
	)
	p.detector = newDetector(p.detectorConfig)
	p.state = StateSpeaking
	p.replyText.WriteString("half a re")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := newPlaybackQueue()
	p.interrupts.Arm(cancel, queue, output)

	p.handleEvent(ctx, events.NewInterrupt(95), time.Now())
	if p.state != StateListening {
		t.Fatalf("expected the barge-in to leave the pipeline listening, got %s", p.state)
	}

	surface.mu.Lock()
	repliesBefore := len(surface.replies)
	surface.mu.Unlock()

	// Segments and the stream end queued behind the barge-in belong to the
	// torn-down reply and must not repaint the surface.
	p.handleEvent(ctx, events.NewReplyTextSegment("queued leftover", 7), time.Now())
	p.handleEvent(ctx, events.NewReplyStreamEnded("", 7, &TransportError{Err: errors.New("stream torn down")}), time.Now())

	surface.mu.Lock()
	defer surface.mu.Unlock()
	if len(surface.replies) != repliesBefore {
		t.Errorf("expected no reply repaint after the barge-in, got %+v", surface.replies[repliesBefore:])
	}
	if len(surface.warnings) != 0 {
		t.Errorf("expected no warning from the torn-down stream, got %v", surface.warnings)
	}
	if p.state != StateListening {
		t.Errorf("expected the pipeline to keep listening, got %s", p.state)
	}
}

func TestPipelinePauseHoldsReplyUntilResume(t *testing.T) {
	surface := &recordingSurface{}
	output := &recordingOutput{}

	var chunks []replystream.Event
	for i := range 6 {
		chunks = append(chunks, wireEvent(i, fmt.Sprintf("part %d ", i), []byte{byte(i)}, i == 5))
	}

	p := New(
		WithAudioOutput(output),
		WithReplyStream(stubReplyStream{events: chunks, pause: 15 * time.Millisecond}),
		WithSurface(surface),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })
	if err := p.SubmitText("pause me"); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	waitFor(t, "first chunk played", func() bool {
		output.mu.Lock()
		defer output.mu.Unlock()
		return len(output.played) >= 1
	})
	p.PausePlayback()

	output.mu.Lock()
	pausedAt := len(output.played)
	output.mu.Unlock()

	// Long enough for every remaining chunk to arrive on the stream.
	time.Sleep(150 * time.Millisecond)

	output.mu.Lock()
	duringPause := len(output.played)
	output.mu.Unlock()
	// The chunk already past the pause boundary may still play out.
	if duringPause > pausedAt+1 {
		t.Fatalf("playback consumed chunks while paused: %d then %d", pausedAt, duringPause)
	}
	if surface.lastState() != "speaking" {
		t.Fatalf("expected the reply to stay active while paused, got %s", surface.lastState())
	}

	p.ResumePlayback()
	waitFor(t, "reply to finish after resume", func() bool {
		output.mu.Lock()
		played := len(output.played)
		output.mu.Unlock()
		return played == 6 && surface.lastState() == "idle"
	})
}

func TestPipelineTypedRoundTrip(t *testing.T) {
	surface := &recordingSurface{}
	output := &recordingOutput{}
	requests := make(chan replystream.Request, 1)

	p := New(
		WithAudioOutput(output),
		WithReplyStream(stubReplyStream{
			events:   []replystream.Event{wireEvent(0, "Typed reply.", []byte{9}, true)},
			requests: requests,
		}),
		WithSurface(surface),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	if err := p.SubmitText("  hello there  "); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	waitFor(t, "reply to finish", func() bool {
		return surface.sawState("speaking") && surface.lastState() == "idle"
	})

	select {
	case req := <-requests:
		if req.UtteranceText != "hello there" {
			t.Errorf("expected trimmed typed text, got %q", req.UtteranceText)
		}
	default:
		t.Errorf("expected a reply request for the typed text")
	}
}

func TestPipelineSecondTurnCarriesHistory(t *testing.T) {
	surface := &recordingSurface{}
	requests := make(chan replystream.Request, 2)

	p := New(
		WithAudioOutput(&recordingOutput{}),
		WithReplyStream(stubReplyStream{
			events:   []replystream.Event{wireEvent(0, "Reply.", []byte{9}, true)},
			requests: requests,
		}),
		WithSurface(surface),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	if err := p.SubmitText("first"); err != nil {
		t.Fatalf("first SubmitText failed: %v", err)
	}
	waitFor(t, "first reply to finish", func() bool {
		return len(requests) == 1 && surface.lastState() == "idle"
	})

	if err := p.SubmitText("second"); err != nil {
		t.Fatalf("second SubmitText failed: %v", err)
	}
	waitFor(t, "second reply request", func() bool { return len(requests) == 2 })

	<-requests
	second := <-requests
	if len(second.PriorTurns) != 2 {
		t.Fatalf("expected the first exchange in the history, got %v", second.PriorTurns)
	}
	if second.PriorTurns[0].Role != roleUser || second.PriorTurns[0].Text != "first" {
		t.Errorf("unexpected first history turn: %+v", second.PriorTurns[0])
	}
	if second.PriorTurns[1].Role != roleAssistant || second.PriorTurns[1].Text != "Reply." {
		t.Errorf("unexpected second history turn: %+v", second.PriorTurns[1])
	}
}

func TestPipelineRecognitionFailureOffersTypedFallback(t *testing.T) {
	device := &fakeDevice{}
	surface := &recordingSurface{}

	p := New(append(fastOptions(),
		WithCaptureDevice(device),
		WithAudioOutput(&recordingOutput{}),
		WithSpeechToText(stubSpeechToText{err: &speechtotext.RecognitionError{Reason: "no speech detected"}}),
		WithReplyStream(stubReplyStream{}),
		WithSurface(surface),
	)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	device.setLevel(80)
	time.Sleep(60 * time.Millisecond)
	device.setLevel(5)

	waitFor(t, "error surfaced and back to idle", func() bool {
		surface.mu.Lock()
		defer surface.mu.Unlock()
		return len(surface.errorsShown) > 0 &&
			len(surface.states) > 0 && surface.states[len(surface.states)-1] == "idle"
	})

	// The fallback path must accept typed text now.
	if err := p.SubmitText("typed instead"); err != nil {
		t.Errorf("expected typed fallback to be accepted, got %v", err)
	}
}

func TestPipelineTypedInputAcceptedWhileListening(t *testing.T) {
	surface := &recordingSurface{}
	requests := make(chan replystream.Request, 1)

	p := New(
		WithAudioOutput(&recordingOutput{}),
		WithReplyStream(stubReplyStream{
			events:   []replystream.Event{wireEvent(0, "Reply.", []byte{9}, true)},
			requests: requests,
		}),
		WithSurface(surface),
	)
	p.detector = newDetector(p.detectorConfig)
	p.recorder = newRecorder(audio.GetDefaultEncodingInfo(), 100*time.Millisecond)

	// A barge-in spike that never confirms as speech parks the pipeline
	// here; typing must still work.
	p.state = StateListening

	p.handleEvent(context.Background(), events.NewUserTextSubmitted("typed instead"), time.Now())

	if p.state != StateAwaitingReply {
		t.Fatalf("expected the typed turn to start a reply, got %s", p.state)
	}
	select {
	case req := <-requests:
		if req.UtteranceText != "typed instead" {
			t.Errorf("expected the typed text in the reply request, got %q", req.UtteranceText)
		}
	default:
		t.Fatalf("expected a reply request for typed input while listening")
	}
}

func TestPipelineTransportFailureIsSoftWarning(t *testing.T) {
	surface := &recordingSurface{}
	output := &recordingOutput{}

	// Two chunks, then the stream dies without its final event.
	p := New(
		WithAudioOutput(output),
		WithReplyStream(stubReplyStream{
			events: []replystream.Event{
				wireEvent(0, "partial ", []byte{1}, false),
				wireEvent(1, "reply", []byte{2}, false),
			},
		}),
		WithSurface(surface),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	if err := p.SubmitText("hello"); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	waitFor(t, "soft warning and return to idle", func() bool {
		surface.mu.Lock()
		defer surface.mu.Unlock()
		return len(surface.warnings) > 0 &&
			len(surface.states) > 0 && surface.states[len(surface.states)-1] == "idle"
	})

	// Chunks received before the failure still played.
	output.mu.Lock()
	played := len(output.played)
	output.mu.Unlock()
	if played != 2 {
		t.Errorf("expected the played chunks to survive the transport failure, got %d", played)
	}
}

func TestPipelineOpenFailureReturnsToIdle(t *testing.T) {
	surface := &recordingSurface{}

	p := New(
		WithAudioOutput(&recordingOutput{}),
		WithReplyStream(stubReplyStream{openErr: errors.New("connection refused")}),
		WithSurface(surface),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, "idle state", func() bool { return surface.sawState("idle") })

	if err := p.SubmitText("hello"); err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}

	waitFor(t, "error surfaced and back to idle", func() bool {
		surface.mu.Lock()
		defer surface.mu.Unlock()
		return len(surface.errorsShown) > 0 &&
			surface.states[len(surface.states)-1] == "idle"
	})
}

func TestPipelineRunRequiresCollaborators(t *testing.T) {
	p := New()
	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected Run without collaborators to fail")
	}
}

func TestPipelineRunTwiceFails(t *testing.T) {
	p := New(WithAudioOutput(&recordingOutput{}), WithReplyStream(stubReplyStream{}))

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- p.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-runDone

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected a second Run to fail")
	}
}
