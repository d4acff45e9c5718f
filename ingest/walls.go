package ingest

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// wallGrid maps between planar meters and the cells of a wall raster.
// The canvas y axis points up, so row 0 is the northern edge.
type wallGrid struct {
	minX, minY float64
	cell       float64
	w, h       int
}

func newWallGrid(bound orb.Bound, pad, cell float64) wallGrid {
	g := wallGrid{
		minX: bound.Min[0] - pad,
		minY: bound.Min[1] - pad,
		cell: cell,
	}
	g.w = int(math.Ceil((bound.Max[0] + pad - g.minX) / cell))
	g.h = int(math.Ceil((bound.Max[1] + pad - g.minY) / cell))
	return g
}

// fitWallGrid sizes a grid over bound with at most maxCells cells, growing
// the cell size from cell as needed. It fails once the cell would reach the
// wall buffer, since gaps could no longer be closed and reopened.
func fitWallGrid(bound orb.Bound, buffer, cell float64, maxCells int) (wallGrid, bool) {
	for {
		pad := buffer + 2*cell
		cols := math.Ceil((bound.Max[0] - bound.Min[0] + 2*pad) / cell)
		rows := math.Ceil((bound.Max[1] - bound.Min[1] + 2*pad) / cell)
		if cols*rows <= float64(maxCells) {
			return newWallGrid(bound, pad, cell), true
		}
		cell *= 1.25
		if cell >= buffer {
			return wallGrid{}, false
		}
	}
}

// toCanvas converts meters to canvas units (one unit per cell)
func (g wallGrid) toCanvas(p orb.Point) (float64, float64) {
	return (p[0] - g.minX) / g.cell, (p[1] - g.minY) / g.cell
}

// cellCenter converts a pixel position to the planar center of its cell
func (g wallGrid) cellCenter(col, row int) orb.Point {
	return orb.Point{
		g.minX + (float64(col)+0.5)*g.cell,
		g.minY + (float64(g.h-row)-0.5)*g.cell,
	}
}

// rasterizeWalls strokes every wall segment with round caps and joins at the
// given buffer distance on each side and returns the covered cells.
func rasterizeWalls(walls []Segment, g wallGrid, buffer float64) *mask {
	rast := rasterizer.New(float64(g.w), float64(g.h), canvas.DPMM(1), canvas.DefaultColorSpace)

	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: canvas.Transparent}
	style.Stroke = canvas.Paint{Color: canvas.Black}
	style.StrokeWidth = 2 * buffer / g.cell
	style.StrokeCapper = canvas.RoundCap
	style.StrokeJoiner = canvas.RoundJoin

	for _, s := range walls {
		path := &canvas.Path{}
		path.MoveTo(g.toCanvas(s.A))
		path.LineTo(g.toCanvas(s.B))
		rast.RenderPath(path, style, canvas.Identity)
	}

	m := newMask(g.w, g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			_, _, _, a := rast.At(x, y).RGBA()
			m.set(x, y, a >= 0x8000)
		}
	}
	return m
}

// RoomsFromWalls derives room outlines from bare wall segments: walls are
// buffered outward to close small gaps, eroded back, and every region fully
// enclosed by walls whose area exceeds the configured minimum becomes a room.
func (p *Pipeline) RoomsFromWalls(walls []Segment) []orb.Ring {
	if len(walls) == 0 {
		return nil
	}

	cell := p.cfg.WallGridCellM
	buffer := p.cfg.WallBufferM

	bound := orb.Bound{Min: walls[0].A, Max: walls[0].A}
	for _, s := range walls {
		bound = bound.Extend(s.A).Extend(s.B)
	}
	g, ok := fitWallGrid(bound, buffer, cell, p.cfg.MaxWallGridCells)
	if !ok {
		p.logger.Warn("walls span too large an area to derive rooms",
			"width_m", bound.Max[0]-bound.Min[0], "height_m", bound.Max[1]-bound.Min[1])
		return nil
	}
	if g.cell != cell {
		p.logger.Warn("coarsened wall grid to fit cell budget", "cell_m", g.cell, "cells", g.w*g.h)
	}
	cell = g.cell

	wallMask := rasterizeWalls(walls, g, buffer)
	// Stop one cell short of the buffer so that the closed gaps stay closed
	wallMask = erodeDisk(wallMask, int(math.Round(buffer/cell))-1)

	comps, labels := labelComponents(wallMask.invert())

	var rooms []orb.Ring
	for _, c := range comps {
		if c.touchesEdge {
			continue
		}
		path := traceOuterBoundary(labels, g.w, g.h, c)
		if len(path) < 3 {
			continue
		}

		ring := make(orb.Ring, len(path))
		for i, px := range path {
			ring[i] = g.cellCenter(px[0], px[1])
		}
		ring = closeRing(ring)
		ring = closeRing(simplify.DouglasPeucker(cell).Ring(ring))

		if len(ring) < 4 || math.Abs(planar.Area(ring)) <= p.cfg.MinWallRoomAreaM2 {
			continue
		}
		rooms = append(rooms, ring)
	}

	p.logger.Debug("derived rooms from walls", "walls", len(walls), "rooms", len(rooms))
	return rooms
}
