package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/kaiwa-labs/kaiwa-core/core/events"
)

// DetectorConfig tunes the level-threshold voice activity detector. The
// defaults suit a normalized 0..100 microphone level at a ~100ms sampling
// cadence; deployments with different rooms or microphones are expected to
// tune them.
type DetectorConfig struct {
	// OnsetThreshold is the level at or above which a sample counts as
	// voiced.
	OnsetThreshold int
	// InterruptThreshold is the level a single sample must reach to barge
	// in while the detector is armed. Deliberately above OnsetThreshold so
	// playback bleeding into the microphone does not self-interrupt.
	InterruptThreshold int
	// ContinuityWindow is how long voiced samples must persist before
	// speech is confirmed. Shorter bursts are treated as noise spikes.
	ContinuityWindow time.Duration
	// SilenceWindow is how long unvoiced samples must persist before
	// confirmed speech is considered ended.
	SilenceWindow time.Duration
	// MinUtterance is the shortest confirmed speech span worth keeping.
	MinUtterance time.Duration
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		OnsetThreshold:     75,
		InterruptThreshold: 85,
		ContinuityWindow:   400 * time.Millisecond,
		SilenceWindow:      400 * time.Millisecond,
		MinUtterance:       time.Second,
	}
}

type vadPhase int

const (
	vadIdle vadPhase = iota
	// vadRising means voiced samples are accumulating toward the
	// continuity window but speech is not confirmed yet.
	vadRising
	vadSpeaking
)

// detector is the VAD state machine. Observe is pure with respect to the
// clock it is handed, which keeps the timing-sensitive paths testable
// without sleeping. Only the orchestrator goroutine calls Observe; armed is
// atomic because the interrupt coordinator flips it from outside.
type detector struct {
	config DetectorConfig

	armed atomic.Bool

	phase        vadPhase
	risingSince  time.Time
	speechSince  time.Time
	silenceSince time.Time
}

func newDetector(config DetectorConfig) *detector {
	return &detector{config: config}
}

// Arm enables single-sample interrupt detection. The orchestrator arms the
// detector while a reply is sounding and disarms it everywhere else.
func (d *detector) Arm()    { d.armed.Store(true) }
func (d *detector) Disarm() { d.armed.Store(false) }

// Observe feeds one level sample to the state machine and returns the
// events it produced, in occurrence order.
func (d *detector) Observe(now time.Time, level int) []events.Event {
	var produced []events.Event

	voiced := level >= d.config.OnsetThreshold

	// The interrupt check runs before and independently of the
	// onset/continuity machinery: while armed, one loud sample is enough.
	// CompareAndSwap keeps a sustained shout from firing every tick.
	if level >= d.config.InterruptThreshold && d.armed.CompareAndSwap(true, false) {
		produced = append(produced, events.NewInterrupt(level))
		metricBargeIn.Inc()
	}

	switch d.phase {
	case vadIdle:
		if voiced {
			d.phase = vadRising
			d.risingSince = now
		}

	case vadRising:
		if !voiced {
			// Spike shorter than the continuity window, forget it.
			d.phase = vadIdle
			break
		}
		if now.Sub(d.risingSince) >= d.config.ContinuityWindow {
			d.phase = vadSpeaking
			d.speechSince = d.risingSince
			d.silenceSince = time.Time{}
			produced = append(produced, events.NewSpeechStarted())
			metricVADStarts.Inc()
		}

	case vadSpeaking:
		if voiced {
			d.silenceSince = time.Time{}
			break
		}
		if d.silenceSince.IsZero() {
			d.silenceSince = now
			break
		}
		if now.Sub(d.silenceSince) >= d.config.SilenceWindow {
			duration := d.silenceSince.Sub(d.speechSince)
			d.phase = vadIdle
			if duration < d.config.MinUtterance {
				produced = append(produced, events.NewUtteranceDiscarded(duration))
				metricUtterancesDiscarded.Inc()
			} else {
				produced = append(produced, events.NewSpeechEnded(duration))
				metricVADEnds.Inc()
			}
		}
	}

	return produced
}
