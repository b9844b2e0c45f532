package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/kaiwa-labs/kaiwa-core/core/events"
	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
)

// playbackQueue is the hand-off between the reply consumer and the playback
// loop: a mutex-guarded chunk list with a playhead, pumped through a range
// iterator. The one-slot updateSignal wakes the iterator when anything
// about the queue changes.
type playbackQueue struct {
	mu sync.Mutex

	chunks    []replystream.Chunk
	playhead  int
	allLoaded bool
	stopped   bool
	paused    bool

	updateSignal chan struct{}
}

func newPlaybackQueue() *playbackQueue {
	return &playbackQueue{
		updateSignal: make(chan struct{}, 1),
	}
}

func (q *playbackQueue) Push(chunk replystream.Chunk) {
	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()
	q.signalUpdate()
}

// AllLoaded marks that no more chunks will arrive. The iterator finishes
// once the playhead catches up.
func (q *playbackQueue) AllLoaded() {
	q.mu.Lock()
	q.allLoaded = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Stop terminates the iterator and discards everything not yet consumed.
func (q *playbackQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.chunks = nil
	q.playhead = 0
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *playbackQueue) Pause() {
	q.mu.Lock()
	if q.stopped || q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = true
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *playbackQueue) Resume() {
	q.mu.Lock()
	if q.stopped || !q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = false
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *playbackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks) - q.playhead
}

// Chunks yields queued chunks in order, blocking between arrivals. The
// iteration ends when Stop is called or when the queue drains after
// AllLoaded.
func (q *playbackQueue) Chunks(yield func(replystream.Chunk) bool) {
	for {
		if ok := q.waitIfPaused(); !ok {
			return
		}

		chunk, ok := q.consumeNext()
		if ok {
			if !yield(chunk) {
				return
			}
			continue
		}

		if done := q.waitForNextChunk(); done {
			return
		}
	}
}

func (q *playbackQueue) waitIfPaused() (ok bool) {
	for {
		q.mu.Lock()
		paused := q.paused
		stopped := q.stopped
		q.mu.Unlock()

		if stopped {
			return false
		}
		if !paused {
			return true
		}

		<-q.updateSignal
	}
}

func (q *playbackQueue) consumeNext() (replystream.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.playhead >= len(q.chunks) {
		return replystream.Chunk{}, false
	}

	chunk := q.chunks[q.playhead]
	q.playhead++
	return chunk, true
}

func (q *playbackQueue) waitForNextChunk() (done bool) {
	for {
		q.mu.Lock()
		empty := q.playhead >= len(q.chunks)
		stopped := q.stopped
		drained := q.allLoaded && empty
		q.mu.Unlock()

		if stopped || drained {
			return true
		}
		if !empty {
			return false
		}

		<-q.updateSignal
	}
}

func (q *playbackQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}

// runPlayback plays queued chunks back-to-back and reports completion on
// the pipeline's event channel. Chunk decode and play failures are logged
// and skipped so one bad chunk never ends the reply.
func (p *Pipeline) runPlayback(ctx context.Context, queue *playbackQueue) {
	for chunk := range queue.Chunks {
		pcm, err := p.chunkDecoder(chunk.Audio)
		if err != nil {
			chunkErr := &ChunkError{Sequence: chunk.Sequence, Err: err}
			log.Printf("skipping reply chunk: %v", chunkErr)
			metricChunkFailures.Inc()
			continue
		}

		if err := p.output.Play(ctx, pcm); err != nil {
			if ctx.Err() != nil {
				return
			}
			chunkErr := &ChunkError{Sequence: chunk.Sequence, Err: err}
			log.Printf("skipping reply chunk: %v", chunkErr)
			metricChunkFailures.Inc()
		}
	}

	if ctx.Err() != nil {
		return
	}

	p.publish(ctx, events.NewPlaybackFinished())
}
