package pipeline

import (
	"testing"
	"time"

	"github.com/kaiwa-labs/kaiwa-core/core/events"
)

func testDetectorConfig() DetectorConfig {
	return DetectorConfig{
		OnsetThreshold:     75,
		InterruptThreshold: 85,
		ContinuityWindow:   400 * time.Millisecond,
		SilenceWindow:      400 * time.Millisecond,
		MinUtterance:       time.Second,
	}
}

// feed runs a sequence of level samples through the detector at a fixed
// 100ms cadence and collects everything it emits.
func feed(d *detector, start time.Time, levels []int) []events.Event {
	var produced []events.Event
	for i, level := range levels {
		at := start.Add(time.Duration(i) * 100 * time.Millisecond)
		produced = append(produced, d.Observe(at, level)...)
	}
	return produced
}

func TestDetectorStaysQuietBelowOnset(t *testing.T) {
	d := newDetector(testDetectorConfig())

	produced := feed(d, time.Now(), []int{10, 40, 74, 60, 74, 30, 0, 74})
	if len(produced) != 0 {
		t.Fatalf("expected no events below onset threshold, got %v", produced)
	}
}

func TestDetectorConfirmsSpeechAndEndsIt(t *testing.T) {
	d := newDetector(testDetectorConfig())
	start := time.Now()

	// 1.2s of voice, then 0.5s of silence.
	levels := []int{80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 10, 10, 10, 10, 10}
	produced := feed(d, start, levels)

	if len(produced) != 2 {
		t.Fatalf("expected exactly one start/end pair, got %d events: %v", len(produced), produced)
	}
	if _, ok := produced[0].(events.SpeechStarted); !ok {
		t.Fatalf("expected SpeechStarted first, got %T", produced[0])
	}
	ended, ok := produced[1].(events.SpeechEnded)
	if !ok {
		t.Fatalf("expected SpeechEnded second, got %T", produced[1])
	}
	if ended.Duration < time.Second {
		t.Errorf("expected utterance duration of at least 1s, got %v", ended.Duration)
	}
}

func TestDetectorIgnoresShortSpike(t *testing.T) {
	d := newDetector(testDetectorConfig())

	// Two loud samples (200ms) is under the 400ms continuity window.
	produced := feed(d, time.Now(), []int{90, 90, 10, 10, 10, 10, 10})
	if len(produced) != 0 {
		t.Fatalf("expected spike shorter than continuity window to be ignored, got %v", produced)
	}
}

func TestDetectorDiscardsSubMinimumUtterance(t *testing.T) {
	d := newDetector(testDetectorConfig())

	// Confirmed speech lasting ~500ms, under the 1s minimum.
	levels := []int{80, 80, 80, 80, 80, 10, 10, 10, 10, 10}
	produced := feed(d, time.Now(), levels)

	if len(produced) != 2 {
		t.Fatalf("expected start plus discard, got %d events: %v", len(produced), produced)
	}
	discarded, ok := produced[1].(events.UtteranceDiscarded)
	if !ok {
		t.Fatalf("expected UtteranceDiscarded, got %T", produced[1])
	}
	if discarded.Duration >= time.Second {
		t.Errorf("discarded utterance should be under the minimum, got %v", discarded.Duration)
	}
}

func TestDetectorInterruptBypassesContinuity(t *testing.T) {
	d := newDetector(testDetectorConfig())
	d.Arm()

	produced := d.Observe(time.Now(), 90)
	if len(produced) != 1 {
		t.Fatalf("expected an immediate interrupt, got %v", produced)
	}
	interrupt, ok := produced[0].(events.Interrupt)
	if !ok {
		t.Fatalf("expected Interrupt, got %T", produced[0])
	}
	if interrupt.Level != 90 {
		t.Errorf("expected interrupt level 90, got %d", interrupt.Level)
	}
}

func TestDetectorInterruptFiresOncePerArm(t *testing.T) {
	d := newDetector(testDetectorConfig())
	d.Arm()

	interrupts := 0
	for _, event := range feed(d, time.Now(), []int{90, 92, 95, 90}) {
		if _, ok := event.(events.Interrupt); ok {
			interrupts++
		}
	}
	if interrupts != 1 {
		t.Fatalf("expected a sustained shout to interrupt once, got %d", interrupts)
	}
}

func TestDetectorLoudSampleWithoutArmIsNotAnInterrupt(t *testing.T) {
	d := newDetector(testDetectorConfig())

	for _, event := range d.Observe(time.Now(), 95) {
		if _, ok := event.(events.Interrupt); ok {
			t.Fatalf("unarmed detector must not emit interrupts")
		}
	}
}

func TestDetectorSilenceGapShorterThanWindowContinuesUtterance(t *testing.T) {
	d := newDetector(testDetectorConfig())

	// Voice, a 200ms dip, then more voice; still one utterance.
	levels := []int{80, 80, 80, 80, 80, 80, 10, 10, 80, 80, 80, 80, 10, 10, 10, 10, 10}
	produced := feed(d, time.Now(), levels)

	starts, ends := 0, 0
	for _, event := range produced {
		switch event.(type) {
		case events.SpeechStarted:
			starts++
		case events.SpeechEnded:
			ends++
		}
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("expected one start and one end across the dip, got %d/%d", starts, ends)
	}
}
