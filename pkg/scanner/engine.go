package scanner

import (
	"context"
	"time"
)

const (
	DefaultFPS     = 10
	DefaultBoxSize = 250
)

// CameraDevice is a video input reported by the engine. Id is the device's
// identity, Label is whatever human readable name the host gave it.
type CameraDevice struct {
	Id    string `json:"id"`
	Label string `json:"label"`
}

// BindConfig is passed through to the engine when a session attaches to a
// device.
type BindConfig struct {
	FPS     int
	BoxSize int
}

func (c BindConfig) withDefaults() BindConfig {
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.BoxSize <= 0 {
		c.BoxSize = DefaultBoxSize
	}
	return c
}

// ScanResult is a single successful decode. Ownership passes to the
// success handler; nothing in this package keeps it.
type ScanResult struct {
	Text     string    `json:"text"`
	Metadata any       `json:"metadata,omitempty"`
	Device   string    `json:"device"`
	ScanTime time.Time `json:"scanTime"`
}

// DecodeFunc is called by an engine for every frame that decoded to text.
type DecodeFunc func(text string, metadata any)

// DecodeErrorFunc is called by an engine for every frame that failed to
// decode, including the common "nothing found" case.
type DecodeErrorFunc func(err error)

type SuccessFunc func(ScanResult)

type ErrorFunc func(msg string)

type Engine interface {
	// ListCameras returns the video inputs currently available. May block
	// on a host permission prompt.
	ListCameras(ctx context.Context) ([]CameraDevice, error)
	// Bind attaches the engine to a device and starts decoding into the
	// given view anchor. Callbacks may arrive on any goroutine until Unbind
	// returns. Only one binding may exist at a time.
	Bind(
		anchor string,
		deviceId string,
		cfg BindConfig,
		onDecode DecodeFunc,
		onDecodeError DecodeErrorFunc,
	) error
	// Unbind releases the device and the view anchor. Must not be called
	// from inside a decode callback.
	Unbind() error
}
