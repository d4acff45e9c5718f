package ingest

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleResult has two zones joined by a door, plus perch points
func sampleResult(t *testing.T) *Result {
	t.Helper()
	ex := &Extraction{
		Rooms: []orb.Ring{rect(0, 0, 4, 4), rect(4, 0, 8, 4)},
		Doors: []orb.Point{{4, 2}},
	}
	return newTestPipeline(t).Assemble(ex, 40.7128, -74.006, 0)
}

func featuresByKind(fc *geojson.FeatureCollection) map[string][]*geojson.Feature {
	out := make(map[string][]*geojson.Feature)
	for _, f := range fc.Features {
		kind, _ := f.Properties["kind"].(string)
		out[kind] = append(out[kind], f)
	}
	return out
}

func TestToFeatureCollection(t *testing.T) {
	res := sampleResult(t)
	fc := res.ToFeatureCollection()

	require.Len(t, fc.Features, len(res.Zones)+len(res.Connections)+len(res.PerchPoints))
	byKind := featuresByKind(fc)

	zones := byKind[FeatureZone]
	require.Len(t, zones, 2)
	poly, ok := zones[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 1)
	ring := poly[0]
	assert.Len(t, ring, len(res.Zones[0].Polygon)+1)
	assert.True(t, ring.Closed())

	// Positions are [lon, lat]
	first := res.Zones[0].Polygon[0]
	assert.Equal(t, orb.Point{first[1], first[0]}, ring[0])
	assert.Equal(t, res.Zones[0].ID, zones[0].ID)
	assert.Equal(t, res.Zones[0].Name, zones[0].Properties["name"])
	assert.Equal(t, 16.0, zones[0].Properties["area_sq_m"])

	conns := byKind[FeatureConnection]
	require.Len(t, conns, 1)
	door, ok := conns[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, orb.Point{res.Connections[0].Position[1], res.Connections[0].Position[0]}, door)
	assert.Equal(t, ConnectionDoor, conns[0].Properties["connection_type"])

	perches := byKind[FeaturePerchPoint]
	require.Len(t, perches, len(res.PerchPoints))
	assert.Contains(t, perches[0].Properties, "wall_normal")
	assert.Equal(t, res.PerchPoints[0].ZoneID, perches[0].Properties["zone_id"])
}

func TestToFeatureCollection_Adjacency(t *testing.T) {
	res := newTestPipeline(t).Assemble(&Extraction{
		Rooms: []orb.Ring{rect(0, 0, 4, 4), rect(4, 0, 8, 4)},
	}, 10, 20, 0)

	// A dangling connection is not exported
	res.Connections = append(res.Connections, Connection{ID: "x", FromZoneID: "missing", ToZoneID: res.Zones[0].ID, ConnectionType: ConnectionAdjacency})

	conns := featuresByKind(res.ToFeatureCollection())[FeatureConnection]
	require.Len(t, conns, 1)

	line, ok := conns[0].Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, line, 2)
	assert.Equal(t, orb.Point{res.Zones[0].CentroidLon, res.Zones[0].CentroidLat}, line[0])
	assert.Equal(t, orb.Point{res.Zones[1].CentroidLon, res.Zones[1].CentroidLat}, line[1])
}

func TestToFeatureCollection_MarshalsAsGeoJSON(t *testing.T) {
	data, err := json.Marshal(sampleResult(t).ToFeatureCollection())
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.NotEmpty(t, fc.Features)

	empty, err := json.Marshal(NewResult().ToFeatureCollection())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(empty))
}
