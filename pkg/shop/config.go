// Package shop runs the till: one loop owns the checkout session, polls the
// classifier while scanning and publishes snapshots to the front ends.
package shop

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/fruit-shop/pkg/audio"
	"github.com/teslashibe/fruit-shop/pkg/camera"
	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/classifier"
)

// DefaultTick is how often the loop polls the classifier.
const DefaultTick = 100 * time.Millisecond

// Config holds everything the App needs.
// Only OpenCamera and LoadClassifier are required.
type Config struct {
	Catalog *catalog.Catalog

	// Rules defaults to checkout.DefaultRules when nil. A zero Rules is
	// honored as given.
	Rules *checkout.Rules

	// Tick is the polling interval.
	Tick time.Duration

	// OpenCamera builds a camera for a new session. It is not started yet.
	OpenCamera func() (camera.Camera, error)

	// LoadClassifier builds the classifier. The first success is cached for
	// the life of the App.
	LoadClassifier func(ctx context.Context) (classifier.Classifier, error)

	// Cue plays after every accepted scan.
	Cue audio.Cue

	// OnFrame receives the latest camera frame on every tick. It runs on the
	// loop goroutine and must not block.
	OnFrame func(image.Image)

	// Test seams
	Clock    func() time.Time
	NewToken func() uuid.UUID
	Ticker   func(d time.Duration) (<-chan time.Time, func())
}

// ConfigError describes an invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("shop config: %s %s", e.Field, e.Message)
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.OpenCamera == nil {
		return &ConfigError{Field: "OpenCamera", Message: "is required"}
	}
	if c.LoadClassifier == nil {
		return &ConfigError{Field: "LoadClassifier", Message: "is required"}
	}
	if c.Tick < 0 {
		return &ConfigError{Field: "Tick", Message: "must not be negative"}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Catalog == nil {
		c.Catalog = catalog.Default()
	}
	if c.Rules == nil {
		rules := checkout.DefaultRules()
		c.Rules = &rules
	}
	if c.Tick == 0 {
		c.Tick = DefaultTick
	}
	if c.Cue == nil {
		c.Cue = audio.Nop{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewToken == nil {
		c.NewToken = uuid.New
	}
	if c.Ticker == nil {
		c.Ticker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
}
