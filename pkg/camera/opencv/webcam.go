// Package opencv captures webcam frames with GoCV.
package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/camera"
)

// Webcam implements camera.Camera on top of gocv.VideoCapture.
type Webcam struct {
	config camera.Config

	mu      sync.Mutex // Protects capture lifecycle
	capture *gocv.VideoCapture
	cancel  context.CancelFunc
	done    chan struct{}

	// Latest decoded frame
	latest   image.Image
	frameMu  sync.RWMutex
	captured int
}

// NewWebcam creates a webcam that is opened on Start.
func NewWebcam(cfg camera.Config) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}
	return &Webcam{config: cfg}, nil
}

// Start opens the device and launches the capture loop.
func (w *Webcam) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vc, err := gocv.OpenVideoCapture(w.config.Device)
	if err != nil {
		return fmt.Errorf("open device %d: %w", w.config.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("device %d not opened", w.config.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(w.config.Framerate))

	// The capture loop outlives the setup context; Stop ends it.
	loopCtx, cancel := context.WithCancel(context.Background())
	w.capture = vc
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(loopCtx, vc, w.done)

	log.Info("webcam started",
		"device", w.config.Device,
		"width", w.config.Width,
		"height", w.config.Height,
		"mirror", w.config.Mirror)
	return nil
}

// loop reads frames until ctx is canceled. Only this goroutine touches vc
// while it runs.
func (w *Webcam) loop(ctx context.Context, vc *gocv.VideoCapture, done chan struct{}) {
	defer close(done)

	mat := gocv.NewMat()
	defer mat.Close()
	flipped := gocv.NewMat()
	defer flipped.Close()

	interval := time.Second / time.Duration(w.config.Framerate)
	misses := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := vc.Read(&mat); !ok || mat.Empty() {
			misses++
			if misses%int(w.config.Framerate) == 1 {
				log.Warn("webcam read failed", "device", w.config.Device, "misses", misses)
			}
			time.Sleep(interval)
			continue
		}
		misses = 0

		src := mat
		if w.config.Mirror {
			gocv.Flip(mat, &flipped, 1)
			src = flipped
		}

		img, err := src.ToImage()
		if err != nil {
			log.Debug("webcam frame conversion failed", "error", err)
			continue
		}

		w.frameMu.Lock()
		w.latest = img
		w.captured++
		w.frameMu.Unlock()
	}
}

// Stop halts capture and releases the device.
func (w *Webcam) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture == nil {
		return nil
	}

	w.cancel()
	<-w.done
	err := w.capture.Close()

	w.capture = nil
	w.cancel = nil
	w.done = nil

	w.frameMu.Lock()
	w.latest = nil
	captured := w.captured
	w.captured = 0
	w.frameMu.Unlock()

	log.Info("webcam stopped", "device", w.config.Device, "frames", captured)
	return err
}

// Frame returns the latest captured frame.
func (w *Webcam) Frame() (image.Image, bool) {
	w.frameMu.RLock()
	defer w.frameMu.RUnlock()
	if w.latest == nil {
		return nil, false
	}
	return w.latest, true
}

var _ camera.Camera = (*Webcam)(nil)
