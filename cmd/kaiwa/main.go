// Command kaiwa runs a spoken conversation against a kaiwa reply service
// from the terminal: microphone in, synthesized reply out, with a live
// subtitle view and typed fallback input.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pipeline "github.com/kaiwa-labs/kaiwa-core/core"
	"github.com/kaiwa-labs/kaiwa-core/core/audio/miniaudio"
	"github.com/kaiwa-labs/kaiwa-core/core/audio/portaudio"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream/sse"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream/wsstream"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext/deepgram"
	"github.com/kaiwa-labs/kaiwa-core/core/speechtotext/whisper"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg := loadConfig()

	if err := run(cfg); err != nil {
		log.Fatalf("kaiwa: %v", err)
	}
}

func run(cfg config) error {
	// metrics/health
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok\n")) })
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	capture, output, closeAudio, err := buildAudio(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up audio: %w", err)
	}
	defer closeAudio()

	speechToText, err := buildSpeechToText(cfg)
	if err != nil {
		return err
	}

	replyStream, err := buildReplyStream(cfg)
	if err != nil {
		return err
	}

	ui := newTUI()

	p := pipeline.New(
		pipeline.WithCaptureDevice(capture),
		pipeline.WithAudioOutput(output),
		pipeline.WithSpeechToText(speechToText),
		pipeline.WithReplyStream(replyStream),
		pipeline.WithSurface(ui),
		pipeline.WithLanguage(cfg.SpeechToText.Language),
		pipeline.WithScenario(cfg.Reply.Scenario),
		pipeline.WithOnsetThreshold(cfg.VAD.OnsetThreshold),
		pipeline.WithInterruptThreshold(cfg.VAD.InterruptThreshold),
		pipeline.WithContinuityWindow(cfg.VAD.ContinuityWindow),
		pipeline.WithSilenceWindow(cfg.VAD.SilenceWindow),
		pipeline.WithMinUtterance(cfg.VAD.MinUtterance),
	)
	ui.submitText = p.SubmitText
	ui.pausePlayback = p.PausePlayback
	ui.resumePlayback = p.ResumePlayback

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelineDone := make(chan error, 1)
	go func() { pipelineDone <- p.Run(ctx) }()

	if _, err := ui.program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	cancel()
	if err := <-pipelineDone; err != nil {
		return err
	}
	return nil
}

func buildAudio(cfg config) (pipeline.CaptureDevice, pipeline.AudioOutput, func(), error) {
	switch cfg.Audio.Backend {
	case "portaudio":
		client, err := portaudio.NewClient(cfg.Audio.BufferSize)
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client, func() {
			if err := client.Close(); err != nil {
				log.Printf("failed to close portaudio client: %v", err)
			}
		}, nil

	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client, func() {
			if err := client.Close(); err != nil {
				log.Printf("failed to close miniaudio client: %v", err)
			}
		}, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown audio backend %q", cfg.Audio.Backend)
}

func buildSpeechToText(cfg config) (pipeline.SpeechToText, error) {
	switch cfg.SpeechToText.Backend {
	case "whisper":
		opts := []whisper.ClientOption{}
		if cfg.SpeechToText.APIKey != "" {
			opts = append(opts, whisper.WithAPIKey(cfg.SpeechToText.APIKey))
		}
		if cfg.SpeechToText.Model != "" {
			opts = append(opts, whisper.WithModel(cfg.SpeechToText.Model))
		}
		return whisper.NewClient(cfg.SpeechToText.Endpoint, opts...), nil

	case "deepgram":
		opts := []deepgram.ClientOption{deepgram.WithAPIKey(cfg.SpeechToText.APIKey)}
		if cfg.SpeechToText.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.SpeechToText.Model))
		}
		if cfg.SpeechToText.Language != "" {
			opts = append(opts, deepgram.WithLanguage(cfg.SpeechToText.Language))
		}
		return deepgram.NewTranscriptionClient(opts...), nil
	}

	return nil, fmt.Errorf("unknown speech-to-text backend %q", cfg.SpeechToText.Backend)
}

func buildReplyStream(cfg config) (pipeline.ReplyStream, error) {
	switch cfg.Reply.Transport {
	case "sse":
		return sse.NewClient(cfg.Reply.Endpoint), nil
	case "websocket":
		return wsstream.NewClient(cfg.Reply.Endpoint), nil
	}

	return nil, fmt.Errorf("unknown reply transport %q", cfg.Reply.Transport)
}
