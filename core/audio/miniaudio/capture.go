package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

// maxPendingBytes bounds the drain buffer so a stalled reader cannot grow
// it without limit. At 16kHz linear16 mono this is ~10s of audio.
const maxPendingBytes = 2 * sampleRate * 10

type captureClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	mu sync.Mutex

	bufMu     sync.Mutex
	pending   []byte
	lastFrame []byte
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = uint32(sampleRate)
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	c.config.PeriodSizeInFrames = 480
	c.config.Periods = 3

	c.audioContext = audioContext

	var err error
	c.device, err = malgo.InitDevice(c.audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.appendFrame(pInput[:n])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

func (c *captureClient) appendFrame(frame []byte) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	c.lastFrame = append(c.lastFrame[:0], frame...)
	c.pending = append(c.pending, frame...)
	if len(c.pending) > maxPendingBytes {
		c.pending = c.pending[len(c.pending)-maxPendingBytes:]
	}
}

func (c *captureClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

// ReadLevel reports the loudness of the most recent capture frame on a
// 0..100 scale.
func (c *captureClient) ReadLevel() (int, error) {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return 0, fmt.Errorf("device not initialized")
	}
	c.mu.Unlock()

	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return audio.Level(c.lastFrame), nil
}

// ReadBytes drains and returns all audio captured since the previous call.
func (c *captureClient) ReadBytes() ([]byte, error) {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("device not initialized")
	}
	c.mu.Unlock()

	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	drained := c.pending
	c.pending = nil
	return drained, nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}

	c.bufMu.Lock()
	c.pending = nil
	c.lastFrame = nil
	c.bufMu.Unlock()
	return nil
}
