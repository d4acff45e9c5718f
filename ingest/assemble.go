package ingest

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// roomTypeByArea is an ascending step table: the first entry whose bound
// exceeds the area wins. Anything larger is a lobby.
var roomTypeByArea = []struct {
	maxArea  float64
	zoneType string
}{
	{6.0, ZoneCloset},
	{15.0, ZoneRoom},
	{30.0, ZoneCorridor},
	{60.0, ZoneRoom},
	{120.0, ZoneLobby},
}

var zonePriority = map[string]int{
	ZoneEntrance:  9,
	ZoneLobby:     8,
	ZoneCorridor:  6,
	ZoneStairwell: 5,
	ZoneRoom:      4,
	ZoneCustom:    3,
	ZoneCloset:    2,
}

const (
	defaultZonePriority = 3
	maxZonePriority     = 9

	perchAreaPerPoint = 15.0
	minPerchPoints    = 1
	maxPerchPoints    = 4
)

// ClassifyRoom maps a floor area in square meters to a zone type
func ClassifyRoom(areaSqM float64) string {
	for _, step := range roomTypeByArea {
		if areaSqM < step.maxArea {
			return step.zoneType
		}
	}
	return ZoneLobby
}

// CoveragePriority returns the scheduling priority of a zone type
func CoveragePriority(zoneType string) int {
	if p, ok := zonePriority[zoneType]; ok {
		return p
	}
	return defaultZonePriority
}

// PerchCount is floor(area/15) clamped to [1, 4]
func PerchCount(areaSqM float64) int {
	n := int(areaSqM / perchAreaPerPoint)
	return max(minPerchPoints, min(maxPerchPoints, n))
}

// tierFor returns the device tier a zone requires
func tierFor(environment string) string {
	if environment == EnvironmentIndoor {
		return "tier_1"
	}
	return "either"
}

// perchSurface returns surface class, orientation and mounting height
func perchSurface(environment string) (string, string, float64) {
	if environment == EnvironmentIndoor {
		return "wall", "vertical", 3.0
	}
	return "ledge", "horizontal", 5.0
}

func coverageValue(priority int) float64 {
	return roundTo(0.4+0.3*(float64(priority)/maxZonePriority), 100)
}

// assembled pairs a zone with its planar outline for the connection and perch
// passes.
type assembled struct {
	zone     *Zone
	ring     orb.Ring
	centroid orb.Point
}

// Assemble turns an extraction into zones, connections and perch points.
// It is the only place entities are created. An extraction without rooms
// yields an empty result.
func (p *Pipeline) Assemble(ex *Extraction, venueLat, venueLon float64, floorLevel int) *Result {
	result := NewResult()

	var rooms []orb.Ring
	if ex != nil {
		for _, room := range ex.Rooms {
			if !validRing(room) {
				p.logger.Debug("skipping degenerate room outline", "vertices", len(room))
				continue
			}
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		p.logger.Warn("no room polygons detected, returning empty result", "floor", floorLevel)
		return result
	}

	frame := FrameForRooms(venueLat, venueLon, rooms)
	environment := EnvironmentIndoor

	zones := make([]assembled, 0, len(rooms))
	for i, room := range rooms {
		ring := closeRing(room)
		centroid, area := planar.CentroidArea(ring)
		area = math.Abs(area)
		zoneType := ClassifyRoom(area)
		cLat, cLon := frame.ToGeo(centroid)

		result.Zones = append(result.Zones, Zone{
			ID:               p.newID(),
			Name:             fmt.Sprintf("Zone %d (%s)", i+1, zoneType),
			Type:             zoneType,
			Environment:      environment,
			FloorLevel:       floorLevel,
			Polygon:          frame.RingToGeo(ring),
			CentroidLat:      cLat,
			CentroidLon:      cLon,
			AreaSqM:          roundTo(area, 100),
			TierRequirement:  tierFor(environment),
			CoveragePriority: CoveragePriority(zoneType),
		})
		zones = append(zones, assembled{ring: ring, centroid: centroid})
	}
	for i := range zones {
		zones[i].zone = &result.Zones[i]
	}

	result.Connections = p.connectZones(zones, ex.Doors, frame)
	for _, az := range zones {
		result.PerchPoints = append(result.PerchPoints, p.perchPoints(az, frame)...)
	}

	return result
}

// connectZones pairs the two nearest zones around each door. Without any
// door connection, consecutive zones are chained by adjacency.
func (p *Pipeline) connectZones(zones []assembled, doors []orb.Point, frame Frame) []Connection {
	conns := []Connection{}

	type nearby struct {
		idx  int
		dist float64
	}

	for _, door := range doors {
		var near []nearby
		for i, az := range zones {
			d := ringDistance(az.ring, door)
			if d < p.cfg.DoorSearchRadiusM {
				near = append(near, nearby{i, d})
			}
		}
		if len(near) < 2 {
			continue
		}
		sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })

		lat, lon := frame.ToGeo(door)
		conns = append(conns, Connection{
			ID:             p.newID(),
			FromZoneID:     zones[near[0].idx].zone.ID,
			ToZoneID:       zones[near[1].idx].zone.ID,
			ConnectionType: ConnectionDoor,
			Position:       &[2]float64{lat, lon},
		})
	}

	if len(conns) == 0 && len(zones) > 1 {
		for i := 0; i+1 < len(zones); i++ {
			conns = append(conns, Connection{
				ID:             p.newID(),
				FromZoneID:     zones[i].zone.ID,
				ToZoneID:       zones[i+1].zone.ID,
				ConnectionType: ConnectionAdjacency,
			})
		}
	}

	return conns
}

// ringDistance is zero inside the ring and the distance to its boundary
// outside.
func ringDistance(r orb.Ring, p orb.Point) float64 {
	if planar.RingContains(r, p) {
		return 0
	}
	return planar.DistanceFrom(orb.LineString(r), p)
}

type perchCandidate struct {
	pos    orb.Point
	normal r2.Vec
	dist   float64
}

// perchPoints places perch points on the edge midpoints farthest from the
// zone centroid.
func (p *Pipeline) perchPoints(az assembled, frame Frame) []PerchPoint {
	zone := az.zone
	count := PerchCount(zone.AreaSqM)
	candidates := edgeCandidates(az.ring, az.centroid)
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	surface, orientation, height := perchSurface(zone.Environment)
	coverage := coverageValue(zone.CoveragePriority)

	points := make([]PerchPoint, 0, len(candidates))
	for _, c := range candidates {
		lat, lon := frame.ToGeo(c.pos)
		pp := PerchPoint{
			ID:                 p.newID(),
			ZoneID:             zone.ID,
			SurfaceClass:       surface,
			SurfaceOrientation: orientation,
			TierRequired:       zone.TierRequirement,
			PositionLat:        lat,
			PositionLon:        lon,
			HeightM:            height,
			CoverageValue:      coverage,
		}
		if c.normal != (r2.Vec{}) {
			pp.WallNormal = &[2]float64{roundTo(c.normal.X, 1e4), roundTo(c.normal.Y, 1e4)}
		}
		points = append(points, pp)
	}
	return points
}

// edgeCandidates returns edge midpoints sorted by descending distance from
// the centroid, each with the unit normal of its edge facing the centroid.
func edgeCandidates(ring orb.Ring, centroid orb.Point) []perchCandidate {
	pts := openRing(ring)
	if len(pts) < 2 {
		return []perchCandidate{{pos: centroid}}
	}

	c := r2.Vec{X: centroid[0], Y: centroid[1]}
	out := make([]perchCandidate, 0, len(pts))
	for i := range pts {
		a := r2.Vec{X: pts[i][0], Y: pts[i][1]}
		b := r2.Vec{X: pts[(i+1)%len(pts)][0], Y: pts[(i+1)%len(pts)][1]}
		mid := r2.Scale(0.5, r2.Add(a, b))

		var normal r2.Vec
		if edge := r2.Sub(b, a); r2.Norm(edge) > 0 {
			normal = r2.Unit(r2.Vec{X: -edge.Y, Y: edge.X})
			if r2.Dot(normal, r2.Sub(c, mid)) < 0 {
				normal = r2.Scale(-1, normal)
			}
		}

		out = append(out, perchCandidate{
			pos:    orb.Point{mid.X, mid.Y},
			normal: normal,
			dist:   r2.Norm(r2.Sub(mid, c)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].dist > out[j].dist })
	return out
}
