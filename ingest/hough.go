package ingest

import (
	"math"
	"math/rand/v2"
)

const (
	houghAngles = 180
	houghShift  = 16
)

// pixelSegment is a detected line segment in pixel coordinates
type pixelSegment struct {
	x1, y1, x2, y2 int
}

// houghSegments runs the progressive probabilistic Hough transform over the
// set pixels of m with a 1 px distance and 1 degree angle resolution. Pixels
// are visited in a random order drawn from a generator seeded with
// cfg.Seed, so the output is deterministic for a given configuration.
func houghSegments(m *mask, cfg HoughConfig) []pixelSegment {
	w, h := m.w, m.h
	numRho := (w+h)*2 + 1
	rhoOffset := (numRho - 1) / 2

	cosTab := make([]float64, houghAngles)
	sinTab := make([]float64, houghAngles)
	for n := range houghAngles {
		theta := float64(n) * math.Pi / houghAngles
		cosTab[n] = math.Cos(theta)
		sinTab[n] = math.Sin(theta)
	}

	pending := make([]bool, len(m.pix))
	copy(pending, m.pix)

	var points []int
	for i, v := range m.pix {
		if v {
			points = append(points, i)
		}
	}

	accum := make([]int32, houghAngles*numRho)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	rhoIndex := func(n, x, y int) int {
		r := int(math.RoundToEven(float64(x)*cosTab[n] + float64(y)*sinTab[n]))
		return n*numRho + r + rhoOffset
	}

	var segments []pixelSegment
	for count := len(points); count > 0; count-- {
		pick := rng.IntN(count)
		pt := points[pick]
		points[pick] = points[count-1]

		if !pending[pt] {
			continue
		}
		px, py := pt%w, pt/w

		maxVal, maxN := int32(cfg.Threshold-1), 0
		for n := range houghAngles {
			idx := rhoIndex(n, px, py)
			accum[idx]++
			if accum[idx] > maxVal {
				maxVal, maxN = accum[idx], n
			}
		}
		if maxVal < int32(cfg.Threshold) {
			continue
		}

		// Walk along the line in both directions from the seed pixel using
		// fixed-point stepping on the minor axis.
		a, b := -sinTab[maxN], cosTab[maxN]
		var x0, y0, dx0, dy0 int
		xMajor := math.Abs(a) > math.Abs(b)
		if xMajor {
			dx0 = 1
			if a < 0 {
				dx0 = -1
			}
			dy0 = int(math.RoundToEven(b * (1 << houghShift) / math.Abs(a)))
			x0 = px
			y0 = (py << houghShift) + (1 << (houghShift - 1))
		} else {
			dy0 = 1
			if b < 0 {
				dy0 = -1
			}
			dx0 = int(math.RoundToEven(a * (1 << houghShift) / math.Abs(b)))
			x0 = (px << houghShift) + (1 << (houghShift - 1))
			y0 = py
		}

		pixelAt := func(x, y int) (int, int) {
			if xMajor {
				return x, y >> houghShift
			}
			return x >> houghShift, y
		}

		var ends [2][2]int
		for k := range 2 {
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			gap := 0
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				jx, iy := pixelAt(x, y)
				if jx < 0 || jx >= w || iy < 0 || iy >= h {
					break
				}
				if pending[iy*w+jx] {
					gap = 0
					ends[k] = [2]int{jx, iy}
				} else if gap++; gap > cfg.MaxLineGap {
					break
				}
			}
		}

		goodLine := abs(ends[1][0]-ends[0][0]) >= cfg.MinLineLength ||
			abs(ends[1][1]-ends[0][1]) >= cfg.MinLineLength

		// Remove the walked pixels; a good line also withdraws their votes
		for k := range 2 {
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				jx, iy := pixelAt(x, y)
				idx := iy*w + jx
				if pending[idx] {
					if goodLine {
						for n := range houghAngles {
							accum[rhoIndex(n, jx, iy)]--
						}
					}
					pending[idx] = false
				}
				if jx == ends[k][0] && iy == ends[k][1] {
					break
				}
			}
		}

		if goodLine {
			segments = append(segments, pixelSegment{ends[0][0], ends[0][1], ends[1][0], ends[1][1]})
		}
	}

	return segments
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
