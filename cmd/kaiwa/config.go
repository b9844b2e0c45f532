package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type config struct {
	Audio struct {
		Backend    string
		BufferSize int
	}
	SpeechToText struct {
		Backend  string
		Endpoint string
		APIKey   string
		Model    string
		Language string
	}
	Reply struct {
		Transport string
		Endpoint  string
		Scenario  string
	}
	VAD struct {
		OnsetThreshold     int
		InterruptThreshold int
		ContinuityWindow   time.Duration
		SilenceWindow      time.Duration
		MinUtterance       time.Duration
	}
	Metrics struct {
		Addr string
	}
}

func loadConfig() config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("audio.backend", "miniaudio")
	v.SetDefault("audio.buffer_size", 1024)

	v.SetDefault("stt.backend", "whisper")
	v.SetDefault("stt.endpoint", "http://localhost:8000/api/transcribe")
	v.SetDefault("stt.model", "")
	v.SetDefault("stt.language", "ja")

	v.SetDefault("reply.transport", "sse")
	v.SetDefault("reply.endpoint", "http://localhost:8000/api/converse")
	v.SetDefault("reply.scenario", "")

	v.SetDefault("vad.onset_threshold", 75)
	v.SetDefault("vad.interrupt_threshold", 85)
	v.SetDefault("vad.continuity_window_ms", 400)
	v.SetDefault("vad.silence_window_ms", 400)
	v.SetDefault("vad.min_utterance_ms", 1000)

	v.SetDefault("metrics.addr", ":9108")

	// Map envs
	v.BindEnv("audio.backend", "KAIWA_AUDIO_BACKEND")
	v.BindEnv("audio.buffer_size", "KAIWA_AUDIO_BUFFER_SIZE")

	v.BindEnv("stt.backend", "KAIWA_STT_BACKEND")
	v.BindEnv("stt.endpoint", "KAIWA_STT_ENDPOINT")
	v.BindEnv("stt.api_key", "KAIWA_STT_API_KEY", "DEEPGRAM_API_KEY")
	v.BindEnv("stt.model", "KAIWA_STT_MODEL")
	v.BindEnv("stt.language", "KAIWA_LANGUAGE")

	v.BindEnv("reply.transport", "KAIWA_REPLY_TRANSPORT")
	v.BindEnv("reply.endpoint", "KAIWA_REPLY_ENDPOINT")
	v.BindEnv("reply.scenario", "KAIWA_SCENARIO")

	v.BindEnv("vad.onset_threshold", "KAIWA_VAD_ONSET")
	v.BindEnv("vad.interrupt_threshold", "KAIWA_VAD_INTERRUPT")
	v.BindEnv("vad.continuity_window_ms", "KAIWA_VAD_CONTINUITY_MS")
	v.BindEnv("vad.silence_window_ms", "KAIWA_VAD_SILENCE_MS")
	v.BindEnv("vad.min_utterance_ms", "KAIWA_VAD_MIN_UTTERANCE_MS")

	v.BindEnv("metrics.addr", "KAIWA_METRICS_ADDR")

	var c config
	c.Audio.Backend = v.GetString("audio.backend")
	c.Audio.BufferSize = v.GetInt("audio.buffer_size")

	c.SpeechToText.Backend = v.GetString("stt.backend")
	c.SpeechToText.Endpoint = v.GetString("stt.endpoint")
	c.SpeechToText.APIKey = v.GetString("stt.api_key")
	c.SpeechToText.Model = v.GetString("stt.model")
	c.SpeechToText.Language = v.GetString("stt.language")

	c.Reply.Transport = v.GetString("reply.transport")
	c.Reply.Endpoint = v.GetString("reply.endpoint")
	c.Reply.Scenario = v.GetString("reply.scenario")

	c.VAD.OnsetThreshold = v.GetInt("vad.onset_threshold")
	c.VAD.InterruptThreshold = v.GetInt("vad.interrupt_threshold")
	c.VAD.ContinuityWindow = time.Duration(v.GetInt("vad.continuity_window_ms")) * time.Millisecond
	c.VAD.SilenceWindow = time.Duration(v.GetInt("vad.silence_window_ms")) * time.Millisecond
	c.VAD.MinUtterance = time.Duration(v.GetInt("vad.min_utterance_ms")) * time.Millisecond

	c.Metrics.Addr = v.GetString("metrics.addr")

	return c
}
