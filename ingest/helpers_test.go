package ingest

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
)

// newTestPipeline returns a pipeline with silent logging and sequential ids
func newTestPipeline(t *testing.T, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	for _, m := range mutate {
		m(&cfg)
	}
	p := New(cfg)
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

// rect returns a closed axis-aligned ring
func rect(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

// planImage draws black wall rectangles on a white image
func planImage(w, h int, walls ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, r := range walls {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

// outline returns the four wall bars of a rectangle with the given thickness
func outline(x0, y0, x1, y1, thick int) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(x0, y0, x1, y0+thick),
		image.Rect(x0, y1-thick, x1, y1),
		image.Rect(x0, y0, x0+thick, y1),
		image.Rect(x1-thick, y0, x1, y1),
	}
}

// twoRoomPlan is a 400x300 plan split by a middle wall with a narrow doorway
func twoRoomPlan() *image.Gray {
	walls := outline(20, 20, 380, 280, 4)
	walls = append(walls,
		image.Rect(198, 20, 202, 146),
		image.Rect(198, 154, 202, 280),
	)
	return planImage(400, 300, walls...)
}

// oneRoomPlan is a 200x200 plan with a single closed room
func oneRoomPlan() *image.Gray {
	return planImage(200, 200, outline(40, 40, 160, 160, 4)...)
}
