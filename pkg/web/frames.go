package web

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/fruit-shop/internal/log"
)

// Frames larger than this are shrunk before encoding.
const (
	maxFrameWidth  = 640
	maxFrameHeight = 480
)

// EncodeFrame converts a camera frame to JPEG for the dashboard.
func EncodeFrame(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > maxFrameWidth || b.Dy() > maxFrameHeight {
		img = imaging.Fit(img, maxFrameWidth, maxFrameHeight, imaging.Linear)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// streamCamera encodes the latest frame at most once per FrameInterval while
// anyone is watching.
func (s *Server) streamCamera(ctx context.Context) {
	ticker := time.NewTicker(s.FrameInterval)
	defer ticker.Stop()

	var (
		lastSeq     uint64
		frameCount  int
		lastLogTime time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.cameraHub.ClientCount() == 0 {
				continue
			}
			frame, seq := s.latestFrame()
			if frame == nil || seq == lastSeq {
				continue
			}
			lastSeq = seq

			data, err := EncodeFrame(frame, s.JPEGQuality)
			if err != nil {
				if time.Since(lastLogTime) > 5*time.Second {
					log.Warn("encode camera frame", "error", err)
					lastLogTime = time.Now()
				}
				continue
			}
			s.cameraHub.BroadcastBinary(data)
			frameCount++
			if frameCount == 1 {
				log.Debug("first camera frame sent to dashboard", "bytes", len(data))
			}
		}
	}
}
