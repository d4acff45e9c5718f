package ingest

import (
	"math"

	"github.com/paulmach/orb"
)

func distance(a, b orb.Point) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}

// DetectDoors infers door openings from wall segments: any two endpoints of
// distinct segments whose distance lies within the door gap bounds mark a
// door at their midpoint. Candidates are deduplicated on a snap grid, keeping
// the first candidate seen in each cell.
func (p *Pipeline) DetectDoors(walls []Segment) []orb.Point {
	minGap, maxGap := p.cfg.DoorGapMinM, p.cfg.DoorGapMaxM
	snap := p.cfg.DoorSnapM

	type cell struct{ x, y int64 }
	seen := make(map[cell]bool)
	var doors []orb.Point

	for i := range walls {
		for j := i + 1; j < len(walls); j++ {
			for _, ea := range [2]orb.Point{walls[i].A, walls[i].B} {
				for _, eb := range [2]orb.Point{walls[j].A, walls[j].B} {
					d := distance(ea, eb)
					if d < minGap || d > maxGap {
						continue
					}
					mid := orb.Point{(ea[0] + eb[0]) / 2, (ea[1] + eb[1]) / 2}
					key := cell{int64(math.Round(mid[0] / snap)), int64(math.Round(mid[1] / snap))}
					if seen[key] {
						continue
					}
					seen[key] = true
					doors = append(doors, mid)
				}
			}
		}
	}

	return doors
}
