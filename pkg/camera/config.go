// Package camera provides the live frame source the till classifies.
package camera

import (
	"context"
	"image"
)

// Camera is a live video frame source.
type Camera interface {
	// Start opens the device and begins capturing. It returns once the
	// device is open; capture continues until Stop.
	Start(ctx context.Context) error

	// Stop halts capture and releases the device. Safe to call twice.
	Stop() error

	// Frame returns the most recent frame, or false if none has arrived yet.
	Frame() (image.Image, bool)
}

// Config holds webcam capture parameters.
type Config struct {
	// Device is the capture device index (0 = first webcam).
	Device int `json:"device"`

	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// Mirror flips frames horizontally so the operator sees a mirror image.
	Mirror bool `json:"mirror"`
}

// Capture limits.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns a mirrored 640x480 webcam, which is what image
// classifiers trained in the browser saw.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Mirror:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must be >= 0")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}

	return errors
}
