package pipeline

import (
	"context"
	"time"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
	"github.com/kaiwa-labs/kaiwa-core/core/render"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext"
)

type PipelineOption func(*Pipeline)

// CaptureDevice is the microphone side of an audio backend. ReadLevel and
// ReadBytes are polled on the sampler cadence, so both must be cheap and
// non-blocking.
type CaptureDevice interface {
	Open(ctx context.Context) error
	ReadLevel() (int, error)
	ReadBytes() ([]byte, error)
	Close() error
	EncodingInfo() audio.EncodingInfo
}

func WithCaptureDevice(device CaptureDevice) PipelineOption {
	return func(p *Pipeline) { p.capture = device }
}

// AudioOutput is the speaker side. Play blocks until the given audio stops
// sounding or ctx is cancelled; Stop silences the device immediately.
type AudioOutput interface {
	Play(ctx context.Context, pcm []byte) error
	Stop()
}

func WithAudioOutput(output AudioOutput) PipelineOption {
	return func(p *Pipeline) { p.output = output }
}

type SpeechToText interface {
	Transcribe(ctx context.Context, req speechtotext.Request) (speechtotext.Result, error)
}

func WithSpeechToText(client SpeechToText) PipelineOption {
	return func(p *Pipeline) { p.speechToText = client }
}

type ReplyStream interface {
	Open(ctx context.Context, req replystream.Request) (<-chan replystream.Event, error)
}

func WithReplyStream(client ReplyStream) PipelineOption {
	return func(p *Pipeline) { p.replyStream = client }
}

func WithSurface(surface render.Surface) PipelineOption {
	return func(p *Pipeline) { p.surface = surface }
}

// WithChunkDecoder installs a transcoder from the reply stream's audio
// format to the output device's PCM format. The default passes audio
// through untouched.
func WithChunkDecoder(decode func(encoded []byte) ([]byte, error)) PipelineOption {
	return func(p *Pipeline) { p.chunkDecoder = decode }
}

func WithLanguage(language string) PipelineOption {
	return func(p *Pipeline) { p.language = language }
}

func WithScenario(scenarioID string) PipelineOption {
	return func(p *Pipeline) { p.scenarioID = scenarioID }
}

func WithSampleInterval(interval time.Duration) PipelineOption {
	return func(p *Pipeline) { p.sampleInterval = interval }
}

func WithOnsetThreshold(level int) PipelineOption {
	return func(p *Pipeline) { p.detectorConfig.OnsetThreshold = level }
}

func WithInterruptThreshold(level int) PipelineOption {
	return func(p *Pipeline) { p.detectorConfig.InterruptThreshold = level }
}

func WithContinuityWindow(window time.Duration) PipelineOption {
	return func(p *Pipeline) { p.detectorConfig.ContinuityWindow = window }
}

func WithSilenceWindow(window time.Duration) PipelineOption {
	return func(p *Pipeline) { p.detectorConfig.SilenceWindow = window }
}

func WithMinUtterance(duration time.Duration) PipelineOption {
	return func(p *Pipeline) { p.detectorConfig.MinUtterance = duration }
}
