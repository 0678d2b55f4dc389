package camera

import (
	"context"
	"image"
	"sync"
)

// Mock implements Camera for testing.
type Mock struct {
	// StartFunc is called when Start is invoked. Nil means success.
	StartFunc func(ctx context.Context) error

	mu      sync.Mutex
	frame   image.Image
	running bool
	starts  int
	stops   int
}

// NewMock creates a mock camera that serves frame once started.
func NewMock(frame image.Image) *Mock {
	return &Mock{frame: frame}
}

// Start marks the camera running.
func (m *Mock) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		if err := m.StartFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.starts++
	return nil
}

// Stop marks the camera stopped.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.stops++
	}
	m.running = false
	return nil
}

// Frame returns the configured frame while running.
func (m *Mock) Frame() (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.frame == nil {
		return nil, false
	}
	return m.frame, true
}

// SetFrame replaces the served frame. Nil means no frame available.
func (m *Mock) SetFrame(img image.Image) {
	m.mu.Lock()
	m.frame = img
	m.mu.Unlock()
}

// Running reports whether Start was called without a matching Stop.
func (m *Mock) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stops returns how many times a running camera was stopped.
func (m *Mock) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
