package pipeline

import (
	"context"
	"sync"
	"time"
)

// interruptCoordinator owns the teardown race between a barge-in and a
// reply ending on its own. Arm is called when a reply starts sounding,
// Disarm when it finishes naturally; Trigger between the two stops
// everything the reply holds.
type interruptCoordinator struct {
	mu sync.Mutex

	armed        bool
	cancelStream context.CancelFunc
	queue        *playbackQueue
	output       AudioOutput
}

// Arm registers the resources a barge-in must tear down.
func (c *interruptCoordinator) Arm(cancelStream context.CancelFunc, queue *playbackQueue, output AudioOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
	c.cancelStream = cancelStream
	c.queue = queue
	c.output = output
}

// Disarm makes subsequent Triggers no-ops. Called when a reply completes
// naturally; the late barge-in race resolves here.
func (c *interruptCoordinator) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	c.cancelStream = nil
	c.queue = nil
	c.output = nil
}

// Pause holds the armed reply's queue at the next chunk boundary. A no-op
// when no reply is armed.
func (c *interruptCoordinator) Pause() {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()
	if queue != nil {
		queue.Pause()
	}
}

// Resume releases a paused queue. A no-op when no reply is armed.
func (c *interruptCoordinator) Resume() {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()
	if queue != nil {
		queue.Resume()
	}
}

// Trigger tears down the armed reply: cancel the stream, silence the
// device, drop the queue. Returns [ErrInterruptRace] when the reply
// already ended.
func (c *interruptCoordinator) Trigger() error {
	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return ErrInterruptRace
	}
	c.armed = false
	cancelStream := c.cancelStream
	queue := c.queue
	output := c.output
	c.cancelStream = nil
	c.queue = nil
	c.output = nil
	c.mu.Unlock()

	start := time.Now()
	if cancelStream != nil {
		cancelStream()
	}
	if output != nil {
		output.Stop()
	}
	if queue != nil {
		queue.Stop()
	}
	metricBargeInLatency.Observe(float64(time.Since(start).Milliseconds()))

	return nil
}
