package ingest

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// component is a 4-connected region of set pixels
type component struct {
	id          int
	startX      int // first pixel in raster order
	startY      int
	pixels      int
	touchesEdge bool
}

// labelComponents labels the 4-connected regions of m. The returned label
// slice holds the 1-based component id of every pixel, 0 for unset pixels.
func labelComponents(m *mask) ([]component, []int) {
	labels := make([]int, len(m.pix))
	var comps []component
	var queue []int

	for start := range m.pix {
		if !m.pix[start] || labels[start] != 0 {
			continue
		}

		c := component{id: len(comps) + 1, startX: start % m.w, startY: start / m.w}
		labels[start] = c.id
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			c.pixels++

			x, y := idx%m.w, idx/m.w
			if x == 0 || y == 0 || x == m.w-1 || y == m.h-1 {
				c.touchesEdge = true
			}

			for _, d := range dirs4 {
				nx, ny := x+d.dx, y+d.dy
				if !m.at(nx, ny) {
					continue
				}
				n := ny*m.w + nx
				if labels[n] == 0 {
					labels[n] = c.id
					queue = append(queue, n)
				}
			}
		}
		comps = append(comps, c)
	}
	return comps, labels
}

// Direction vectors indexed by facing: N, E, S, W (y grows downward)
var dirs4 = [4]struct{ dx, dy int }{
	{0, -1},
	{1, 0},
	{0, 1},
	{-1, 0},
}

type traceState struct {
	idx    int
	facing int
}

// traceOuterBoundary walks the outer boundary of one labeled component,
// keeping the outside on the left, and returns the pixel positions visited.
// The walk starts at the component's first raster pixel facing north and
// stops once any (pixel, facing) state repeats.
func traceOuterBoundary(labels []int, w, h int, c component) [][2]int {
	isSet := func(x, y int) bool {
		if x < 0 || x >= w || y < 0 || y >= h {
			return false
		}
		return labels[y*w+x] == c.id
	}

	var path [][2]int
	seen := make(map[traceState]bool)
	curX, curY := c.startX, c.startY
	facing := 0

	for {
		key := traceState{curY*w + curX, facing}
		if seen[key] {
			break
		}
		seen[key] = true
		if n := len(path); n == 0 || path[n-1] != [2]int{curX, curY} {
			path = append(path, [2]int{curX, curY})
		}

		// Scan left, straight, right, back
		found := false
		for i := 0; i < 4; i++ {
			dir := (facing + 3 + i) % 4
			nx, ny := curX+dirs4[dir].dx, curY+dirs4[dir].dy
			if isSet(nx, ny) {
				curX, curY = nx, ny
				facing = dir
				found = true
				break
			}
		}
		if !found {
			break
		}
	}

	if len(path) > 1 && path[len(path)-1] == path[0] {
		path = path[:len(path)-1]
	}
	return path
}

// simplifyClosed reduces a closed ring with Douglas-Peucker using a tolerance
// proportional to its perimeter. Rings that collapse below a triangle are
// dropped.
func simplifyClosed(ring orb.Ring, epsFraction float64) (orb.Ring, bool) {
	ring = closeRing(ring)
	if len(ring) < 4 {
		return nil, false
	}

	eps := epsFraction * planar.Length(ring)
	out := simplify.DouglasPeucker(eps).Ring(ring.Clone())
	out = closeRing(out)
	if len(out) < 4 || planar.Area(out) == 0 {
		return nil, false
	}
	return out, true
}

// floorContours traces the rooms of a floor mask: every component that does
// not touch the image border and covers at least minPixels. Vertices are
// converted to meters with the y axis flipped so that north is up.
func floorContours(m *mask, minPixels int, epsFraction, scale float64) []orb.Ring {
	comps, labels := labelComponents(m)

	var rooms []orb.Ring
	for _, c := range comps {
		if c.touchesEdge || c.pixels < minPixels {
			continue
		}

		path := traceOuterBoundary(labels, m.w, m.h, c)
		if len(path) < 3 {
			continue
		}

		ring := make(orb.Ring, len(path))
		for i, p := range path {
			ring[i] = orb.Point{float64(p[0]) * scale, float64(m.h-p[1]) * scale}
		}

		if simplified, ok := simplifyClosed(ring, epsFraction); ok {
			rooms = append(rooms, simplified)
		}
	}
	return rooms
}
