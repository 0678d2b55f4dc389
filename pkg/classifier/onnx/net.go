// Package onnx runs an ONNX image classifier with OpenCV's DNN module.
package onnx

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/fruit-shop/pkg/classifier"
)

// Input normalization: pixels are mapped from [0, 255] to [-1, 1].
const (
	meanValue   = 127.5
	scaleFactor = 1.0 / 127.5
)

// Net classifies frames with a gocv.Net.
type Net struct {
	net    gocv.Net
	labels []string
	size   int

	mu     sync.Mutex // Protects inference
	closed bool
}

// New loads the descriptor's model into OpenCV.
func New(d *classifier.Descriptor) (*Net, error) {
	if d == nil || len(d.Model) == 0 {
		return nil, classifier.ErrEmptyModel
	}
	if len(d.Metadata.Labels) == 0 {
		return nil, classifier.ErrNoLabels
	}

	net, err := gocv.ReadNetFromONNXBytes(d.Model)
	if err != nil {
		return nil, fmt.Errorf("load onnx model: %w", err)
	}
	if net.Empty() {
		return nil, fmt.Errorf("load onnx model: empty network")
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Net{
		net:    net,
		labels: append([]string(nil), d.Metadata.Labels...),
		size:   d.Metadata.ImageSize,
	}, nil
}

// Load fetches the descriptors from src and builds a Net.
func Load(ctx context.Context, client *http.Client, src classifier.Source) (*Net, error) {
	d, err := classifier.Fetch(ctx, client, src)
	if err != nil {
		return nil, err
	}
	return New(d)
}

// Predict runs one forward pass over img.
func (n *Net) Predict(ctx context.Context, img image.Image) ([]classifier.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared := classifier.Prepare(img, n.size)
	mat, err := gocv.ImageToMatRGB(prepared)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, classifier.ErrClosed
	}

	// ImageToMatRGB yields BGR channel order; swapRB feeds the net RGB.
	blob := gocv.BlobFromImage(mat, scaleFactor, image.Pt(n.size, n.size),
		gocv.NewScalar(meanValue, meanValue, meanValue, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	output := n.net.Forward("")
	defer output.Close()

	scores, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(scores) != len(n.labels) {
		return nil, fmt.Errorf("%w: %d outputs, %d labels", classifier.ErrLabelMismatch, len(scores), len(n.labels))
	}

	// scores aliases the output Mat, which is closed on return.
	return classifier.Zip(n.labels, append([]float32(nil), scores...))
}

// Close releases the network.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.net.Close()
}

var _ classifier.Classifier = (*Net)(nil)
