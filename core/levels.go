package pipeline

import (
	"context"
	"log"
	"time"
)

const defaultSampleInterval = 100 * time.Millisecond

// captureTick is one poll of the capture device: the loudness of the most
// recent frame plus every byte captured since the previous tick. Pairing the
// two in one message keeps level decisions and the recorded audio aligned.
type captureTick struct {
	At    time.Time
	Level int
	Audio []byte
}

// runSampler polls the capture device on a fixed cadence and feeds ticks to
// the orchestrator. When the orchestrator has not consumed the previous
// tick yet the level reading is dropped; levels are point-in-time and stale
// ones are worthless, but the drained audio is carried into the next tick.
func (p *Pipeline) runSampler(ctx context.Context, ticks chan<- captureTick) {
	ticker := time.NewTicker(p.sampleInterval)
	defer ticker.Stop()
	defer close(ticks)

	var carried []byte
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			level, err := p.capture.ReadLevel()
			if err != nil {
				log.Printf("failed to read capture level: %v", err)
				continue
			}
			drained, err := p.capture.ReadBytes()
			if err != nil {
				log.Printf("failed to drain capture buffer: %v", err)
				continue
			}
			metricLevelSamples.Inc()

			// Audio from a dropped tick is carried forward so the
			// recorder never loses bytes, only level readings.
			carried = append(carried, drained...)

			select {
			case ticks <- captureTick{At: now, Level: level, Audio: carried}:
				carried = nil
			default:
			}
		}
	}
}
