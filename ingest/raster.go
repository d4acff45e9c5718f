package ingest

import (
	"bufio"
	"fmt"
	"image"
	"os"

	// Registered decoders for the raster pipeline
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/paulmach/orb"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Raster pipeline constants, in pixels
const (
	blurSize        = 5
	thresholdBlock  = 11
	thresholdC      = 2.0
	closeRadius     = 1 // 3x3
	closeIterations = 2
	openRadius      = 2 // 5x5
	openIterations  = 2
)

// loadImage decodes an image file in any registered format
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnreadableInput, path, err)
	}
	return img, nil
}

// ImageScale estimates meters per pixel by assuming the longer image side
// spans the configured real extent.
func (p *Pipeline) ImageScale(width, height int) float64 {
	return p.cfg.ImageExtentM / float64(max(width, height))
}

// ExtractImage runs the vision pipeline on a decoded plan: binarize, close
// the wall strokes, take enclosed floor regions as rooms, then detect wall
// segments and the door gaps between them. A non-positive scale is
// estimated from the image size.
func (p *Pipeline) ExtractImage(img image.Image, scale float64) *Extraction {
	gray := toGray(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return &Extraction{}
	}
	if scale <= 0 {
		scale = p.ImageScale(w, h)
	}

	blurred := gaussianBlur(gray.Pix, w, h, blurSize, 0)
	ink := adaptiveThresholdInv(blurred, w, h, thresholdBlock, thresholdC)
	walls := closeRect(ink, closeRadius, closeIterations)
	floor := openRect(walls.invert(), openRadius, openIterations)

	minPixels := int(float64(w*h) * p.cfg.MinContourFraction)
	ex := &Extraction{
		Rooms: floorContours(floor, minPixels, p.cfg.ContourEpsilonFraction, scale),
	}

	toMeters := func(x, y int) orb.Point {
		return orb.Point{float64(x) * scale, float64(h-y) * scale}
	}
	for _, s := range houghSegments(walls, p.cfg.Hough) {
		ex.Walls = append(ex.Walls, Segment{toMeters(s.x1, s.y1), toMeters(s.x2, s.y2)})
	}
	ex.Doors = p.DetectDoors(ex.Walls)

	p.logger.Debug("extracted raster plan",
		"width", w, "height", h, "scale", scale,
		"rooms", len(ex.Rooms), "walls", len(ex.Walls), "doors", len(ex.Doors))

	return ex
}
