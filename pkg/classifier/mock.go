package classifier

import (
	"context"
	"image"
	"sync"
)

// Mock implements Classifier for testing.
type Mock struct {
	// PredictFunc is called when Predict is invoked.
	PredictFunc func(ctx context.Context, img image.Image) ([]Prediction, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock returns a mock that always predicts label with probability p.
func NewMock(label string, p float64) *Mock {
	return &Mock{
		PredictFunc: func(ctx context.Context, img image.Image) ([]Prediction, error) {
			return []Prediction{
				{Label: "background", Probability: 1 - p},
				{Label: label, Probability: p},
			}, nil
		},
	}
}

// Predict calls PredictFunc and records the call.
func (m *Mock) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	m.mu.Lock()
	m.calls++
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if m.PredictFunc == nil {
		return nil, nil
	}
	return m.PredictFunc(ctx, img)
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns how many times Predict ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
