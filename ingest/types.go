package ingest

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Format identifies which extraction pipeline handles a source file
type Format string

const (
	FormatDXF   Format = "dxf"
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
)

// Zone types assigned by area classification. Entrance, stairwell and custom
// are never produced by the classifier but carry priorities for zones that
// are retyped downstream.
const (
	ZoneCloset    = "closet"
	ZoneRoom      = "room"
	ZoneCorridor  = "corridor"
	ZoneLobby     = "lobby"
	ZoneEntrance  = "entrance"
	ZoneStairwell = "stairwell"
	ZoneCustom    = "custom"
)

const (
	EnvironmentIndoor  = "indoor"
	EnvironmentOutdoor = "outdoor"

	ConnectionDoor      = "door"
	ConnectionAdjacency = "adjacency"
)

// Zone is a classified room or area. Polygon holds [lat, lon] pairs as an
// open ring: the closing vertex is not repeated.
type Zone struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	Environment      string       `json:"environment"`
	FloorLevel       int          `json:"floor_level"`
	Polygon          [][2]float64 `json:"polygon"`
	CentroidLat      float64      `json:"centroid_lat"`
	CentroidLon      float64      `json:"centroid_lon"`
	AreaSqM          float64      `json:"area_sq_m"`
	TierRequirement  string       `json:"tier_requirement"`
	CoveragePriority int          `json:"coverage_priority"`
}

// Connection links two zones of the same result. Position is [lat, lon] and
// is only set for door connections.
type Connection struct {
	ID             string      `json:"id"`
	FromZoneID     string      `json:"from_zone_id"`
	ToZoneID       string      `json:"to_zone_id"`
	ConnectionType string      `json:"connection_type"`
	Position       *[2]float64 `json:"position,omitempty"`
}

// PerchPoint is a candidate device attachment location inside one zone.
// WallNormal is the inward unit normal of the wall edge as (east, north).
type PerchPoint struct {
	ID                 string      `json:"id"`
	ZoneID             string      `json:"zone_id"`
	SurfaceClass       string      `json:"surface_class"`
	SurfaceOrientation string      `json:"surface_orientation"`
	TierRequired       string      `json:"tier_required"`
	PositionLat        float64     `json:"position_lat"`
	PositionLon        float64     `json:"position_lon"`
	HeightM            float64     `json:"height_m"`
	WallNormal         *[2]float64 `json:"wall_normal,omitempty"`
	CoverageValue      float64     `json:"coverage_value"`
}

// Result is everything produced by one ingestion call. It is owned by the
// caller once returned.
type Result struct {
	Zones       []Zone       `json:"zones"`
	Connections []Connection `json:"connections"`
	PerchPoints []PerchPoint `json:"perch_points"`
}

// NewResult returns an empty result with non-nil slices so that an empty
// ingestion serializes as empty arrays rather than null.
func NewResult() *Result {
	return &Result{
		Zones:       []Zone{},
		Connections: []Connection{},
		PerchPoints: []PerchPoint{},
	}
}

// IsEmpty reports whether nothing was detected
func (r *Result) IsEmpty() bool {
	return len(r.Zones) == 0 && len(r.Connections) == 0 && len(r.PerchPoints) == 0
}

// Append concatenates another result onto r, preserving order
func (r *Result) Append(other *Result) {
	if other == nil {
		return
	}
	r.Zones = append(r.Zones, other.Zones...)
	r.Connections = append(r.Connections, other.Connections...)
	r.PerchPoints = append(r.PerchPoints, other.PerchPoints...)
}

// FindZone returns the zone with the given ID
func (r *Result) FindZone(id string) (*Zone, bool) {
	for i := range r.Zones {
		if r.Zones[i].ID == id {
			return &r.Zones[i], true
		}
	}
	return nil, false
}

// Floors returns the distinct floor levels in zone order
func (r *Result) Floors() []int {
	var floors []int
	seen := make(map[int]bool)
	for _, z := range r.Zones {
		if !seen[z.FloorLevel] {
			seen[z.FloorLevel] = true
			floors = append(floors, z.FloorLevel)
		}
	}
	return floors
}

// Segment is a straight wall segment in the planar frame (meters)
type Segment struct {
	A orb.Point
	B orb.Point
}

// Length returns the segment length
func (s Segment) Length() float64 {
	return planar.Distance(s.A, s.B)
}

// Extraction is the common output of every extractor: room outlines, door
// positions and wall segments, all in meters in the planar frame. Room rings
// are closed (first point repeated at the end).
type Extraction struct {
	Rooms []orb.Ring
	Doors []orb.Point
	Walls []Segment
}
