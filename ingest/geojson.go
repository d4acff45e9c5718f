package ingest

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property
const (
	FeatureZone       = "zone"
	FeatureConnection = "connection"
	FeaturePerchPoint = "perch_point"
)

// lonLat swaps a [lat, lon] pair into a GeoJSON position
func lonLat(latLon [2]float64) orb.Point {
	return orb.Point{latLon[1], latLon[0]}
}

// ToFeatureCollection exports a result as GeoJSON. Zones become polygons,
// door connections points at the door, adjacency connections lines between
// the two zone centroids, and perch points points.
func (r *Result) ToFeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, z := range r.Zones {
		ring := make(orb.Ring, 0, len(z.Polygon)+1)
		for _, c := range z.Polygon {
			ring = append(ring, lonLat(c))
		}
		f := geojson.NewFeature(orb.Polygon{closeRing(ring)})
		f.ID = z.ID
		f.Properties["kind"] = FeatureZone
		f.Properties["name"] = z.Name
		f.Properties["type"] = z.Type
		f.Properties["environment"] = z.Environment
		f.Properties["floor_level"] = z.FloorLevel
		f.Properties["area_sq_m"] = z.AreaSqM
		f.Properties["tier_requirement"] = z.TierRequirement
		f.Properties["coverage_priority"] = z.CoveragePriority
		fc.Append(f)
	}

	for _, c := range r.Connections {
		var geom orb.Geometry
		if c.Position != nil {
			geom = lonLat(*c.Position)
		} else {
			from, okFrom := r.FindZone(c.FromZoneID)
			to, okTo := r.FindZone(c.ToZoneID)
			if !okFrom || !okTo {
				continue
			}
			geom = orb.LineString{
				{from.CentroidLon, from.CentroidLat},
				{to.CentroidLon, to.CentroidLat},
			}
		}
		f := geojson.NewFeature(geom)
		f.ID = c.ID
		f.Properties["kind"] = FeatureConnection
		f.Properties["from_zone_id"] = c.FromZoneID
		f.Properties["to_zone_id"] = c.ToZoneID
		f.Properties["connection_type"] = c.ConnectionType
		fc.Append(f)
	}

	for _, pp := range r.PerchPoints {
		f := geojson.NewFeature(orb.Point{pp.PositionLon, pp.PositionLat})
		f.ID = pp.ID
		f.Properties["kind"] = FeaturePerchPoint
		f.Properties["zone_id"] = pp.ZoneID
		f.Properties["surface_class"] = pp.SurfaceClass
		f.Properties["surface_orientation"] = pp.SurfaceOrientation
		f.Properties["tier_required"] = pp.TierRequired
		f.Properties["height_m"] = pp.HeightM
		f.Properties["coverage_value"] = pp.CoverageValue
		if pp.WallNormal != nil {
			f.Properties["wall_normal"] = []float64{pp.WallNormal[0], pp.WallNormal[1]}
		}
		fc.Append(f)
	}

	return fc
}
