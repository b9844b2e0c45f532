package audio

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceErrorKind classifies capture/playback device failures so each can be
// mapped to a distinct user-facing message.
type DeviceErrorKind string

const (
	DeviceErrorPermissionDenied DeviceErrorKind = "permission-denied"
	DeviceErrorNotFound         DeviceErrorKind = "device-not-found"
	DeviceErrorBusy             DeviceErrorKind = "device-busy"
	DeviceErrorUnsupported      DeviceErrorKind = "unsupported"
)

type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device error (%s): %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// UserMessage returns the message shown to the user for this failure class.
func (e *DeviceError) UserMessage() string {
	switch e.Kind {
	case DeviceErrorPermissionDenied:
		return "Microphone access was denied. Allow microphone permissions and try again."
	case DeviceErrorNotFound:
		return "No microphone was found. Connect an audio input device and try again."
	case DeviceErrorBusy:
		return "The microphone is in use by another application."
	case DeviceErrorUnsupported:
		return "The microphone does not support the required audio format."
	}
	return "An audio device error occurred."
}

// ClassifyDeviceError wraps a raw backend error into a DeviceError, guessing
// the failure class from the backend's message. Backends that can classify
// directly should construct DeviceError themselves instead.
func ClassifyDeviceError(err error) *DeviceError {
	if err == nil {
		return nil
	}
	var deviceErr *DeviceError
	if errors.As(err, &deviceErr) {
		return deviceErr
	}

	msg := strings.ToLower(err.Error())
	kind := DeviceErrorUnsupported
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission"):
		kind = DeviceErrorPermissionDenied
	case strings.Contains(msg, "no device"), strings.Contains(msg, "not found"), strings.Contains(msg, "no such device"):
		kind = DeviceErrorNotFound
	case strings.Contains(msg, "busy"), strings.Contains(msg, "in use"):
		kind = DeviceErrorBusy
	}

	return &DeviceError{Kind: kind, Err: err}
}
