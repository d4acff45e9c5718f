package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// dxfTag is one group-code/value pair of an ASCII DXF file
type dxfTag struct {
	Code  int
	Value string
}

// dxfEntity is an entity from the ENTITIES section with its raw tags
type dxfEntity struct {
	Type  string
	Layer string
	Tags  []dxfTag
}

var binaryDXFSentinel = []byte("AutoCAD Binary DXF")

// readDXFEntities parses the ENTITIES section of an ASCII DXF stream.
// Group codes and values alternate line by line.
func readDXFEntities(r io.Reader) ([]dxfEntity, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(binaryDXFSentinel)); bytes.Equal(head, binaryDXFSentinel) {
		return nil, fmt.Errorf("%w: binary DXF is not supported", ErrUnreadableInput)
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		entities    []dxfEntity
		current     *dxfEntity
		section     string
		wantSection bool
		line        int
	)

	flush := func() {
		if current != nil {
			entities = append(entities, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line++
		codeText := strings.TrimSpace(scanner.Text())
		if codeText == "" && !scanner.Scan() {
			break
		} else if codeText == "" {
			// Tolerate blank padding lines between pairs
			line++
			codeText = strings.TrimSpace(scanner.Text())
		}
		code, err := strconv.Atoi(codeText)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid group code %q", ErrUnreadableInput, line, codeText)
		}
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: line %d: group code %d has no value", ErrUnreadableInput, line, code)
		}
		line++
		value := strings.TrimSpace(scanner.Text())

		if code == 0 {
			flush()
			switch value {
			case "SECTION":
				wantSection = true
				continue
			case "ENDSEC":
				section = ""
				continue
			case "EOF":
				return entities, nil
			}
			if section == "ENTITIES" {
				current = &dxfEntity{Type: value}
			}
			continue
		}

		if wantSection && code == 2 {
			section = value
			wantSection = false
			continue
		}

		if current != nil {
			if code == 8 {
				current.Layer = value
			}
			current.Tags = append(current.Tags, dxfTag{Code: code, Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading DXF: %v", ErrUnreadableInput, err)
	}

	flush()
	return entities, nil
}

// float returns the first value for a group code
func (e *dxfEntity) float(code int) (float64, bool) {
	for _, t := range e.Tags {
		if t.Code == code {
			v, err := strconv.ParseFloat(t.Value, 64)
			return v, err == nil
		}
	}
	return 0, false
}

func (e *dxfEntity) int(code int) int {
	v, ok := e.float(code)
	if !ok {
		return 0
	}
	return int(v)
}

// point reads the X (xCode) and Y (xCode+10) coordinates of a point
func (e *dxfEntity) point(xCode int) (orb.Point, bool) {
	x, okX := e.float(xCode)
	y, okY := e.float(xCode + 10)
	return orb.Point{x, y}, okX && okY
}

// vertices collects the repeated 10/20 pairs of a polyline
func (e *dxfEntity) vertices() []orb.Point {
	var pts []orb.Point
	var x float64
	haveX := false
	for _, t := range e.Tags {
		switch t.Code {
		case 10:
			x, _ = strconv.ParseFloat(t.Value, 64)
			haveX = true
		case 20:
			if haveX {
				y, _ := strconv.ParseFloat(t.Value, 64)
				pts = append(pts, orb.Point{x, y})
				haveX = false
			}
		}
	}
	return pts
}

func (e *dxfEntity) closed() bool {
	return e.int(70)&1 == 1
}

// hatchPolylinePaths returns the vertices of every polyline boundary path.
// Edge-defined paths (lines, arcs, splines) are skipped.
func (e *dxfEntity) hatchPolylinePaths() [][]orb.Point {
	var (
		paths      [][]orb.Point
		current    []orb.Point
		inPolyline bool
		inPaths    bool
		x          float64
	)
	for _, t := range e.Tags {
		switch t.Code {
		case 91:
			inPaths = true
		case 92:
			if !inPaths {
				continue
			}
			flags, _ := strconv.Atoi(t.Value)
			inPolyline = flags&2 != 0
			current = nil
		case 10:
			if inPolyline {
				x, _ = strconv.ParseFloat(t.Value, 64)
			}
		case 20:
			if inPolyline {
				y, _ := strconv.ParseFloat(t.Value, 64)
				current = append(current, orb.Point{x, y})
			}
		case 97:
			if inPolyline && len(current) > 0 {
				paths = append(paths, current)
			}
			inPolyline = false
			current = nil
		}
	}
	return paths
}

// calibrateDXFScale derives meters per drawing unit from the first usable
// DIMENSION entity: measured length over drawing distance between its
// definition points.
func calibrateDXFScale(entities []dxfEntity) (float64, bool) {
	for i := range entities {
		e := &entities[i]
		if e.Type != "DIMENSION" {
			continue
		}
		measured, ok := e.float(42)
		if !ok || measured <= 0 {
			continue
		}

		a, okA := e.point(13)
		b, okB := e.point(14)
		if !okA || !okB {
			a, okA = e.point(10)
			b, okB = e.point(13)
		}
		if !okA || !okB {
			continue
		}

		if d := distance(a, b); d > 0 {
			return measured / d, true
		}
	}
	return 0, false
}

// ExtractDXFFile reads a DXF drawing from disk
func (p *Pipeline) ExtractDXFFile(path string, scale float64) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}
	defer f.Close()
	return p.ExtractDXF(f, scale)
}

// ExtractDXF classifies drawing entities by layer into walls, doors and
// rooms, all scaled to meters. When no room outline is drawn, rooms are
// derived from the walls.
func (p *Pipeline) ExtractDXF(r io.Reader, scale float64) (*Extraction, error) {
	entities, err := readDXFEntities(r)
	if err != nil {
		return nil, err
	}

	if scale <= 0 {
		if s, ok := calibrateDXFScale(entities); ok {
			scale = s
			p.logger.Debug("calibrated DXF scale from dimension", "scale", scale)
		} else {
			scale = p.cfg.DefaultDXFScale
		}
	}

	scalePt := func(pt orb.Point) orb.Point {
		return orb.Point{pt[0] * scale, pt[1] * scale}
	}
	scaleRing := func(pts []orb.Point) (orb.Ring, bool) {
		if len(pts) < 3 {
			return nil, false
		}
		ring := make(orb.Ring, len(pts))
		for i, pt := range pts {
			ring[i] = scalePt(pt)
		}
		ring = closeRing(ring)
		if !validRing(ring) {
			return nil, false
		}
		return ring, true
	}

	ex := &Extraction{}
	for i := range entities {
		e := &entities[i]
		layer := strings.ToLower(e.Layer)

		if strings.Contains(layer, "wall") {
			switch e.Type {
			case "LINE":
				a, okA := e.point(10)
				b, okB := e.point(11)
				if okA && okB {
					ex.Walls = append(ex.Walls, Segment{scalePt(a), scalePt(b)})
				}
			case "LWPOLYLINE":
				pts := e.vertices()
				for j := 0; j+1 < len(pts); j++ {
					ex.Walls = append(ex.Walls, Segment{scalePt(pts[j]), scalePt(pts[j+1])})
				}
				if e.closed() && len(pts) > 2 {
					ex.Walls = append(ex.Walls, Segment{scalePt(pts[len(pts)-1]), scalePt(pts[0])})
					if ring, ok := scaleRing(pts); ok {
						ex.Rooms = append(ex.Rooms, ring)
					}
				}
			}
		}

		if strings.Contains(layer, "door") || strings.Contains(layer, "opening") {
			switch e.Type {
			case "INSERT":
				if pt, ok := e.point(10); ok {
					ex.Doors = append(ex.Doors, scalePt(pt))
				}
			case "LINE":
				a, okA := e.point(10)
				b, okB := e.point(11)
				if okA && okB {
					ex.Doors = append(ex.Doors, scalePt(orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}))
				}
			}
		}

		if strings.Contains(layer, "room") || strings.Contains(layer, "space") || strings.Contains(layer, "area") {
			switch e.Type {
			case "LWPOLYLINE":
				if e.closed() {
					if ring, ok := scaleRing(e.vertices()); ok {
						ex.Rooms = append(ex.Rooms, ring)
					}
				}
			case "HATCH":
				for _, path := range e.hatchPolylinePaths() {
					if ring, ok := scaleRing(path); ok {
						ex.Rooms = append(ex.Rooms, ring)
					}
				}
			}
		}
	}

	if len(ex.Rooms) == 0 && len(ex.Walls) > 0 {
		ex.Rooms = p.RoomsFromWalls(ex.Walls)
	}

	return ex, nil
}
