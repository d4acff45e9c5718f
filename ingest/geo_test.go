package ingest

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestFrame_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		origin   orb.Point
		point    orb.Point
	}{
		{"new york", 40.7128, -74.0060, orb.Point{0, 0}, orb.Point{12.5, -3.25}},
		{"equator", 0, 0, orb.Point{10, 10}, orb.Point{-40, 80}},
		{"southern", -33.8688, 151.2093, orb.Point{5, 5}, orb.Point{5, 5}},
		{"high latitude", 64.1466, -21.9426, orb.Point{-2, 3}, orb.Point{100, -100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.lat, tt.lon, tt.origin)
			lat, lon := f.ToGeo(tt.point)
			back := f.ToPlanar(lat, lon)

			// 8 decimal places of a degree is about a millimeter
			assert.InDelta(t, tt.point[0], back[0], 0.01)
			assert.InDelta(t, tt.point[1], back[1], 0.01)
		})
	}
}

func TestFrame_OriginMapsToAnchor(t *testing.T) {
	f := NewFrame(40.7128, -74.0060, orb.Point{7, 9})
	lat, lon := f.ToGeo(orb.Point{7, 9})
	assert.Equal(t, 40.7128, lat)
	assert.Equal(t, -74.006, lon)
}

func TestFrame_Scale(t *testing.T) {
	f := NewFrame(60, 10, orb.Point{})

	lat, _ := f.ToGeo(orb.Point{0, MetersPerDegreeLat})
	assert.InDelta(t, 61.0, lat, 1e-8)

	// At 60 degrees a degree of longitude is half as long
	_, lon := f.ToGeo(orb.Point{MetersPerDegreeLat * math.Cos(math.Pi/3), 0})
	assert.InDelta(t, 11.0, lon, 1e-8)
}

func TestFrameForRooms(t *testing.T) {
	rooms := []orb.Ring{rect(0, 0, 4, 4), rect(4, 0, 10, 2)}
	f := FrameForRooms(1, 2, rooms)
	assert.Equal(t, orb.Point{5, 2}, f.Origin)

	empty := FrameForRooms(1, 2, nil)
	assert.Equal(t, orb.Point{}, empty.Origin)
}

func TestFrame_RingToGeoIsOpen(t *testing.T) {
	f := NewFrame(40, -74, orb.Point{})
	coords := f.RingToGeo(rect(0, 0, 10, 10))
	assert.Len(t, coords, 4)
	assert.NotEqual(t, coords[0], coords[len(coords)-1])

	ring := f.GeoToRing(coords)
	assert.Len(t, ring, 5)
	assert.True(t, ring[0].Equal(ring[4]))
	assert.InDelta(t, 10.0, ring[1][0], 0.01)
}

func TestCloseRing_DoesNotModifyInput(t *testing.T) {
	open := orb.Ring{{0, 0}, {1, 0}, {1, 1}}
	closed := closeRing(open)
	assert.Len(t, open, 3)
	assert.Len(t, closed, 4)
	assert.Equal(t, open[0], closed[3])

	assert.Len(t, closeRing(closed), 4)
	assert.Len(t, openRing(closed), 3)
}

func TestValidRing(t *testing.T) {
	assert.True(t, validRing(orb.Ring{{0, 0}, {1, 0}, {1, 1}}))
	assert.True(t, validRing(rect(0, 0, 2, 1)))

	assert.False(t, validRing(nil))
	assert.False(t, validRing(orb.Ring{{0, 0}, {4, 0}, {0, 0}}))
	assert.False(t, validRing(orb.Ring{{0, 0}, {2, 0}, {4, 0}}))
}
