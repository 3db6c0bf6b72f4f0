package scene

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"video-narrator/internal/types"
)

const edgeThreshold = 96

// ClassifyShot guesses the framing from edge density: busy detail reads as
// a close-up, sparse detail as a wide shot.
func ClassifyShot(imagePath string) string {
	f, err := os.Open(imagePath)
	if err != nil {
		return types.SceneTypeUnknown
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return types.SceneTypeUnknown
	}
	return shotFromDensity(edgeDensity(img))
}

func shotFromDensity(density float64) string {
	switch {
	case density > 0.1:
		return types.SceneTypeCloseUp
	case density > 0.05:
		return types.SceneTypeMedium
	default:
		return types.SceneTypeWide
	}
}

// edgeDensity is the share of pixels whose Sobel gradient magnitude exceeds
// edgeThreshold on the 8-bit luma plane.
func edgeDensity(img image.Image) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	luma := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			luma[y*w+x] = int((299*r + 587*g + 114*bl) / 1000 >> 8)
		}
	}

	at := func(x, y int) int { return luma[y*w+x] }
	edges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) + at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) + at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if abs(gx)+abs(gy) > edgeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(w*h)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
