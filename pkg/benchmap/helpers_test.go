package benchmap

import (
	"fmt"
	"sort"
)

// surfaceCall records one call made to a recordingSurface.
type surfaceCall struct {
	op  string // "add" or "remove"
	ids []string
}

// recordingSurface is an in-memory RenderSurface that tracks which markers
// are present and the order of calls made to it.
type recordingSurface struct {
	region  Region
	markers map[string]PointRecord
	calls   []surfaceCall
}

func newRecordingSurface(region Region) *recordingSurface {
	return &recordingSurface{
		region:  region,
		markers: make(map[string]PointRecord),
	}
}

func (s *recordingSurface) CurrentVisibleRegion() Region {
	return s.region
}

func (s *recordingSurface) AddMarkers(points []PointRecord) {
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.Key()
		s.markers[p.Key()] = p
	}
	s.calls = append(s.calls, surfaceCall{op: "add", ids: ids})
}

func (s *recordingSurface) RemoveMarkers(ids []string) {
	for _, id := range ids {
		delete(s.markers, id)
	}
	s.calls = append(s.calls, surfaceCall{op: "remove", ids: append([]string(nil), ids...)})
}

func (s *recordingSurface) markerIDs() []string {
	ids := make([]string, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *recordingSurface) resetCalls() {
	s.calls = nil
}

// gridPoints lays out n points on a grid starting at (lon, lat) with the
// given spacing in degrees, 100 points per row.
func gridPoints(n int, lon, lat, step float64) []PointRecord {
	points := make([]PointRecord, n)
	for i := 0; i < n; i++ {
		points[i] = PointRecord{
			ID:        fmt.Sprintf("PT%05d", i),
			Longitude: lon + float64(i%100)*step,
			Latitude:  lat + float64(i/100)*step,
		}
	}
	return points
}

// sliceSeq adapts a slice to the sequence type the reconciler consumes.
func sliceSeq(points []PointRecord) func(func(PointRecord) bool) {
	return func(yield func(PointRecord) bool) {
		for _, p := range points {
			if !yield(p) {
				return
			}
		}
	}
}

func keysOf(points []PointRecord) []string {
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.Key()
	}
	sort.Strings(ids)
	return ids
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// everywhere is a bounds that contains every legal coordinate.
var everywhere = Bounds{MinLon: -180, MaxLon: 180, MinLat: -90, MaxLat: 90}
