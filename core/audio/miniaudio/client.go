// Package miniaudio backs the pipeline's capture-device and audio-output
// contracts with malgo (miniaudio) devices.
package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

const sampleRate = audio.DefaultSampleRate

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient

	openMu sync.Mutex
	opened bool
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, audio.ClassifyDeviceError(fmt.Errorf("malgo InitContext failed: %w", err))
	}

	return &Client{audioContext: audioCtx}, nil
}

// Open initializes and starts the capture and playback devices. It reports
// classified device errors so each failure class maps to a distinct
// user-facing message.
func (c *Client) Open(_ context.Context) error {
	c.openMu.Lock()
	defer c.openMu.Unlock()
	if c.opened {
		return nil
	}

	if err := c.captureClient.Init(c.audioContext); err != nil {
		return audio.ClassifyDeviceError(err)
	}
	if err := c.captureClient.Start(); err != nil {
		_ = c.captureClient.Uninit()
		return audio.ClassifyDeviceError(err)
	}

	if err := c.playbackClient.Init(c.audioContext); err != nil {
		_ = c.captureClient.Uninit()
		return audio.ClassifyDeviceError(err)
	}
	if err := c.playbackClient.Start(); err != nil {
		_ = c.captureClient.Uninit()
		_ = c.playbackClient.Uninit()
		return audio.ClassifyDeviceError(err)
	}

	c.opened = true
	return nil
}

func (c *Client) Close() error {
	c.openMu.Lock()
	defer c.openMu.Unlock()

	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
	c.opened = false
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: sampleRate,
		Format:     audio.EncodingLinear16,
	}
}
