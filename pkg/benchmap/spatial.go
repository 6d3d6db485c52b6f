package benchmap

import "math"

// Bounds represents a geographic bounding box in WGS-84 coordinates.
//
// Coordinates are in decimal degrees. A box whose MinLon is greater than its
// MaxLon wraps across the antimeridian.
type Bounds struct {
	MinLon float64 // Western edge
	MaxLon float64 // Eastern edge
	MinLat float64 // Southern edge
	MaxLat float64 // Northern edge
}

// Contains returns true if the point (lon, lat) is within the bounds.
func (b Bounds) Contains(lon, lat float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.Wraps() {
		return lon >= b.MinLon || lon <= b.MaxLon
	}
	return lon >= b.MinLon && lon <= b.MaxLon
}

// ContainsPoint returns true if the record's coordinate is within the bounds.
func (b Bounds) ContainsPoint(p PointRecord) bool {
	return b.Contains(p.Longitude, p.Latitude)
}

// Intersects returns true if the given bounds intersects with this bounds.
// Neither box may wrap; use Split first for wrapping boxes.
func (b Bounds) Intersects(other Bounds) bool {
	return !(other.MaxLon < b.MinLon ||
		other.MinLon > b.MaxLon ||
		other.MaxLat < b.MinLat ||
		other.MinLat > b.MaxLat)
}

// Empty reports whether the bounds cover no area at all.
func (b Bounds) Empty() bool {
	if b.MaxLat <= b.MinLat {
		return true
	}
	return !b.Wraps() && b.MaxLon <= b.MinLon
}

// Wraps reports whether the bounds cross the antimeridian.
func (b Bounds) Wraps() bool {
	return b.MinLon > b.MaxLon
}

// Split returns the bounds as one or two non-wrapping boxes.
func (b Bounds) Split() []Bounds {
	if !b.Wraps() {
		return []Bounds{b}
	}
	return []Bounds{
		{MinLon: b.MinLon, MaxLon: 180, MinLat: b.MinLat, MaxLat: b.MaxLat},
		{MinLon: -180, MaxLon: b.MaxLon, MinLat: b.MinLat, MaxLat: b.MaxLat},
	}
}

// Union returns the smallest non-wrapping bounds containing both boxes.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinLon: math.Min(b.MinLon, other.MinLon),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
		MinLat: math.Min(b.MinLat, other.MinLat),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
	}
}

// Center returns the middle of the bounds. For a wrapping box the center
// longitude is measured across the antimeridian.
func (b Bounds) Center() (lat, lon float64) {
	lat = (b.MinLat + b.MaxLat) / 2
	if b.Wraps() {
		return lat, normalizeLon((b.MinLon + b.MaxLon + 360) / 2)
	}
	return lat, (b.MinLon + b.MaxLon) / 2
}

// Span is the angular size of a map region.
type Span struct {
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Region is the visible area reported by a render surface: a center point
// and the angular span around it.
type Region struct {
	CenterLat float64
	CenterLon float64
	Span      Span
}

// Bounds converts the region into a bounding box. Latitudes are clamped to
// the poles; longitudes are normalized so that a region straddling the
// antimeridian yields a wrapping box. A region spanning the whole globe
// returns full longitude coverage.
func (r Region) Bounds() Bounds {
	halfLat := math.Abs(r.Span.LatitudeDelta) / 2
	halfLon := math.Abs(r.Span.LongitudeDelta) / 2

	b := Bounds{
		MinLat: clamp(r.CenterLat-halfLat, -90, 90),
		MaxLat: clamp(r.CenterLat+halfLat, -90, 90),
	}

	if halfLon >= 180 {
		b.MinLon, b.MaxLon = -180, 180
		return b
	}

	b.MinLon = normalizeLon(r.CenterLon - halfLon)
	b.MaxLon = normalizeLon(r.CenterLon + halfLon)
	return b
}

// Inflate returns the region grown by fraction of its span on each axis,
// e.g. 0.3 adds 30% of the latitude span above and below the region and 30%
// of the longitude span to either side.
func (r Region) Inflate(fraction float64) Region {
	if fraction <= 0 {
		return r
	}
	grow := 1 + 2*fraction
	return Region{
		CenterLat: r.CenterLat,
		CenterLon: r.CenterLon,
		Span: Span{
			LatitudeDelta:  r.Span.LatitudeDelta * grow,
			LongitudeDelta: r.Span.LongitudeDelta * grow,
		},
	}
}

// PaddedBounds is the bounding box of the region inflated by fraction.
func (r Region) PaddedBounds(fraction float64) Bounds {
	return r.Inflate(fraction).Bounds()
}

// normalizeLon maps a longitude into [-180, 180].
func normalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
