// Package classifier turns camera frames into class probability distributions.
package classifier

import (
	"context"
	"errors"
	"image"
	"math"
)

// Sentinel errors for common conditions.
var (
	// ErrNoLabels is returned when metadata lists no classes.
	ErrNoLabels = errors.New("classifier: metadata has no labels")

	// ErrLabelMismatch is returned when the model output width differs from the label count.
	ErrLabelMismatch = errors.New("classifier: label count does not match model output")

	// ErrEmptyModel is returned when the model descriptor is empty.
	ErrEmptyModel = errors.New("classifier: empty model")

	// ErrClosed is returned by Predict after Close.
	ErrClosed = errors.New("classifier: closed")
)

// Prediction is one class and its probability.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Classifier produces a probability per known class for a frame.
type Classifier interface {
	// Predict classifies img. The result has one entry per class, in model order.
	Predict(ctx context.Context, img image.Image) ([]Prediction, error)

	// Close releases resources
	Close() error
}

// Top returns the most probable class. On a tie the later class wins.
func Top(preds []Prediction) (Prediction, bool) {
	if len(preds) == 0 {
		return Prediction{}, false
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if !(best.Probability > p.Probability) {
			best = p
		}
	}
	return best, true
}

// Zip pairs raw scores with labels. Scores that already form a distribution
// are kept as-is; anything else goes through a softmax.
func Zip(labels []string, scores []float32) ([]Prediction, error) {
	if len(labels) != len(scores) {
		return nil, ErrLabelMismatch
	}

	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = float64(s)
	}
	if !isDistribution(probs) {
		probs = Softmax(probs)
	}

	out := make([]Prediction, len(labels))
	for i, l := range labels {
		out[i] = Prediction{Label: l, Probability: probs[i]}
	}
	return out, nil
}

// Softmax converts logits into probabilities.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func isDistribution(p []float64) bool {
	sum := 0.0
	for _, v := range p {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) < 1e-3
}
