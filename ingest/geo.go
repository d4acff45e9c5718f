package ingest

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MetersPerDegreeLat is the fixed meters-per-degree-latitude factor used by
// the planar/geographic transform.
const MetersPerDegreeLat = 111320.0

// geoPrecision is the number of decimal places kept on geographic output
// (1e-8 degrees is roughly 1.1 mm).
const geoPrecision = 1e8

// Frame maps between the local planar frame (meters) and geographic
// coordinates. The longitude scale uses the cosine of the anchor latitude for
// every point, which is accurate at building scale only. Changing that would
// move already-ingested geometry.
type Frame struct {
	// Venue anchor in decimal degrees
	Lat float64
	Lon float64

	// Origin is the planar point that maps onto the anchor
	Origin orb.Point
}

// NewFrame creates a frame anchored at (lat, lon) with the given planar
// origin. lat must be strictly between -90 and 90; at the poles a degree of
// longitude has no length and ToGeo yields infinite longitudes.
func NewFrame(lat, lon float64, origin orb.Point) Frame {
	return Frame{Lat: lat, Lon: lon, Origin: origin}
}

// FrameForRooms anchors the venue at the midpoint of the bounding box of all
// room vertices.
func FrameForRooms(lat, lon float64, rooms []orb.Ring) Frame {
	if len(rooms) == 0 {
		return NewFrame(lat, lon, orb.Point{})
	}
	bound := rooms[0].Bound()
	for _, r := range rooms[1:] {
		bound = bound.Union(r.Bound())
	}
	return NewFrame(lat, lon, bound.Center())
}

func (f Frame) metersPerDegreeLon() float64 {
	return MetersPerDegreeLat * math.Cos(f.Lat*math.Pi/180)
}

// ToGeo converts a planar point to (lat, lon), rounded to 8 decimals
func (f Frame) ToGeo(p orb.Point) (lat, lon float64) {
	lat = f.Lat + (p[1]-f.Origin[1])/MetersPerDegreeLat
	lon = f.Lon + (p[0]-f.Origin[0])/f.metersPerDegreeLon()
	return roundTo(lat, geoPrecision), roundTo(lon, geoPrecision)
}

// ToPlanar is the algebraic inverse of ToGeo
func (f Frame) ToPlanar(lat, lon float64) orb.Point {
	return orb.Point{
		f.Origin[0] + (lon-f.Lon)*f.metersPerDegreeLon(),
		f.Origin[1] + (lat-f.Lat)*MetersPerDegreeLat,
	}
}

// RingToGeo converts a ring to [lat, lon] pairs, dropping the closing vertex
func (f Frame) RingToGeo(r orb.Ring) [][2]float64 {
	pts := openRing(r)
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		lat, lon := f.ToGeo(p)
		out[i] = [2]float64{lat, lon}
	}
	return out
}

// GeoToRing converts [lat, lon] pairs back to a closed planar ring
func (f Frame) GeoToRing(coords [][2]float64) orb.Ring {
	r := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		r = append(r, f.ToPlanar(c[0], c[1]))
	}
	return closeRing(r)
}

func roundTo(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}

// openRing returns the ring vertices without a repeated closing point
func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0].Equal(r[len(r)-1]) {
		return r[:len(r)-1]
	}
	return r
}

// validRing reports whether r has at least three distinct vertices and a
// non-zero area.
func validRing(r orb.Ring) bool {
	r = closeRing(r)
	return len(openRing(r)) >= 3 && planar.Area(r) != 0
}

// closeRing returns r with the first vertex repeated at the end. The input
// is never modified.
func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r[0].Equal(r[len(r)-1]) {
		return r
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}
