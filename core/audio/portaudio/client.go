// Package portaudio is an alternative device backend built on the
// PortAudio bindings. It trades the miniaudio backend's callback model for
// blocking stream reads and writes pumped by a background goroutine.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

const maxPendingBytes = 2 * audio.DefaultSampleRate * 10

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	bufMu     sync.Mutex
	pending   []byte
	lastFrame []byte

	writeMu  sync.Mutex
	draining atomic.Bool

	cancelPump context.CancelFunc
	pumpDone   chan struct{}
	opened     bool
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, audio.ClassifyDeviceError(fmt.Errorf("failed to initialize PortAudio: %w", err))
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, audio.ClassifyDeviceError(fmt.Errorf("failed to open PortAudio stream: %w", err))
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Open starts the stream and the capture pump. The pump blocks on stream
// reads, so it runs on its own goroutine until Close.
func (c *Client) Open(_ context.Context) error {
	if c.opened {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return audio.ClassifyDeviceError(fmt.Errorf("failed to start PortAudio stream: %w", err))
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	c.cancelPump = cancel
	c.pumpDone = make(chan struct{})
	go c.pump(pumpCtx)

	c.opened = true
	return nil
}

func (c *Client) pump(ctx context.Context) {
	defer close(c.pumpDone)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			continue
		}

		frameBuffer := bytes.Buffer{}
		_ = binary.Write(&frameBuffer, binary.LittleEndian, c.in)
		frame := frameBuffer.Bytes()

		c.bufMu.Lock()
		c.lastFrame = append(c.lastFrame[:0], frame...)
		c.pending = append(c.pending, frame...)
		if len(c.pending) > maxPendingBytes {
			c.pending = c.pending[len(c.pending)-maxPendingBytes:]
		}
		c.bufMu.Unlock()
	}
}

func (c *Client) ReadLevel() (int, error) {
	if !c.opened {
		return 0, fmt.Errorf("device not opened")
	}

	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return audio.Level(c.lastFrame), nil
}

func (c *Client) ReadBytes() ([]byte, error) {
	if !c.opened {
		return nil, fmt.Errorf("device not opened")
	}

	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	drained := c.pending
	c.pending = nil
	return drained, nil
}

// Play writes pcm to the stream one device buffer at a time. The blocking
// writes mean Play returns roughly when the audio stops sounding. Stop or
// ctx cancellation abandons the remaining buffers.
func (c *Client) Play(ctx context.Context, pcm []byte) error {
	if !c.opened {
		return fmt.Errorf("device not opened")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.draining.Store(false)

	frameBytes := c.bufferSize * 2
	for off := 0; off < len(pcm); off += frameBytes {
		if c.draining.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(off+frameBytes, len(pcm))
		chunk := pcm[off:end]
		if len(chunk) < frameBytes {
			chunk = append(chunk, make([]byte, frameBytes-len(chunk))...)
		}

		_ = binary.Read(bytes.NewBuffer(chunk), binary.LittleEndian, c.out)
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
	}

	return nil
}

// Stop abandons any in-flight Play as soon as its current device buffer
// finishes.
func (c *Client) Stop() {
	c.draining.Store(true)
}

func (c *Client) Close() error {
	if c.cancelPump != nil {
		c.cancelPump()
		<-c.pumpDone
		c.cancelPump = nil
	}

	err := c.stream.Close()
	_ = portaudio.Terminate()
	c.opened = false
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
