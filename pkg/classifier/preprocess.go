package classifier

import (
	"image"

	"github.com/disintegration/imaging"
)

// Prepare center-crops img to a square and scales it to size×size, the
// input an image classifier trained on webcam stills expects.
func Prepare(img image.Image, size int) *image.NRGBA {
	if size <= 0 {
		size = DefaultImageSize
	}
	return imaging.Fill(img, size, size, imaging.Center, imaging.Linear)
}
