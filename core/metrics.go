package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLevelSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_level_samples_total",
		Help: "Total microphone level samples processed",
	})

	metricVADStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_vad_starts_total",
		Help: "Total confirmed speech start events",
	})

	metricVADEnds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_vad_ends_total",
		Help: "Total speech end events",
	})

	metricUtterancesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_utterances_discarded_total",
		Help: "Utterances dropped for being under the minimum duration or size",
	})

	metricBargeIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_barge_in_events_total",
		Help: "Total barge-in interruptions triggered",
	})

	metricBargeInLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kaiwa_barge_in_stop_latency_ms",
		Help:    "Latency from interrupt detection to playback silence",
		Buckets: prometheus.ExponentialBuckets(5, 1.6, 10),
	})

	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kaiwa_state_transitions_total",
		Help: "Conversation state transitions",
	}, []string{"from", "to"})

	metricReplyChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_reply_chunks_total",
		Help: "Total reply chunks enqueued for playback",
	})

	metricChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaiwa_reply_chunk_failures_total",
		Help: "Reply chunks skipped because they could not be decoded or played",
	})

	metricTranscriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kaiwa_transcription_latency_ms",
		Help:    "Latency of one synchronous transcription round trip",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 10),
	})
)
