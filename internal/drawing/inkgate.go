package drawing

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// InkThreshold is the smallest ink ratio a drawing needs before it is scored.
const InkThreshold = 0.001

// DecodeImage decodes an uploaded drawing.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// InkRatio returns the fraction of pixels that are neither transparent
// (alpha <= 10) nor near-white (R, G and B all >= 245).
func InkRatio(img image.Image) float64 {
	nrgba := imaging.Clone(img)
	width, height := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	total := width * height
	if total == 0 {
		return 0
	}

	ink := 0
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for i := 0; i < len(row); i += 4 {
			r, g, b, a := row[i], row[i+1], row[i+2], row[i+3]
			if a <= 10 {
				continue
			}
			if r >= 245 && g >= 245 && b >= 245 {
				continue
			}
			ink++
		}
	}
	return float64(ink) / float64(total)
}

// InkRatioOf decodes data and measures its ink ratio.
func InkRatioOf(data []byte) (float64, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return 0, err
	}
	return InkRatio(img), nil
}

// FailsInkGate reports whether a drawing is too blank to be worth scoring.
func FailsInkGate(ratio float64) bool {
	return ratio < InkThreshold
}
