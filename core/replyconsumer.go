package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/kaiwa-labs/kaiwa-core/core/events"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
)

// consumeReply drains one reply stream into the playback queue, announcing
// the reply start on the first usable chunk and publishing text segments as
// they arrive. It enforces the wire contract: sequence
// numbers are contiguous from zero, audio is base64. Malformed events are
// skipped; a sequence gap abandons the stream as a protocol failure; a
// stream that closes without its final event is a transport failure. In
// every exit path the queue is marked fully loaded so already-enqueued
// chunks stay playable.
func (p *Pipeline) consumeReply(ctx context.Context, stream <-chan replystream.Event, queue *playbackQueue) {
	defer queue.AllLoaded()

	var fullText strings.Builder
	nextSequence := 0
	sawFinal := false
	started := false

	announceStart := func() {
		if started {
			return
		}
		started = true
		p.publish(ctx, events.NewReplyStarted())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case wireEvent, ok := <-stream:
			if !ok {
				var err error
				if !sawFinal && ctx.Err() == nil {
					err = &TransportError{Err: fmt.Errorf("stream closed before final event")}
				}
				p.publish(ctx, events.NewReplyStreamEnded(fullText.String(), nextSequence, err))
				return
			}

			if wireEvent.Error != "" {
				chunkErr := &ChunkError{Sequence: wireEvent.Sequence, Err: fmt.Errorf("%s", wireEvent.Error)}
				log.Printf("skipping reply event: %v", chunkErr)
				metricChunkFailures.Inc()
				continue
			}

			if wireEvent.Sequence != nextSequence {
				err := &TransportError{Err: fmt.Errorf(
					"reply chunk %d arrived where %d was expected", wireEvent.Sequence, nextSequence,
				)}
				p.publish(ctx, events.NewReplyStreamEnded(fullText.String(), nextSequence, err))
				return
			}

			pcm, err := base64.StdEncoding.DecodeString(wireEvent.Audio)
			if err != nil {
				chunkErr := &ChunkError{Sequence: wireEvent.Sequence, Err: fmt.Errorf("undecodable audio: %w", err)}
				log.Printf("skipping reply event: %v", chunkErr)
				metricChunkFailures.Inc()
				// The text half of the chunk is still good; sequence
				// advances so the gap check stays meaningful.
				nextSequence++
				fullText.WriteString(wireEvent.Text)
				announceStart()
				p.publish(ctx, events.NewReplyTextSegment(wireEvent.Text, wireEvent.Sequence))
				continue
			}

			queue.Push(replystream.Chunk{
				Sequence: wireEvent.Sequence,
				Text:     wireEvent.Text,
				Audio:    pcm,
				IsFinal:  wireEvent.IsFinal,
			})
			metricReplyChunks.Inc()

			nextSequence++
			fullText.WriteString(wireEvent.Text)
			announceStart()
			p.publish(ctx, events.NewReplyTextSegment(wireEvent.Text, wireEvent.Sequence))

			if wireEvent.IsFinal {
				sawFinal = true
			}
		}
	}
}
