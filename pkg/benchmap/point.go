package benchmap

import (
	"fmt"
	"strings"
)

// PointRecord is a single survey benchmark as published on an NGS datasheet.
//
// Records are immutable values. Only ID, Latitude and Longitude are required;
// the remaining fields are classification and recovery attributes carried
// through to the render surface for display.
type PointRecord struct {
	ID        string  // Permanent identifier (PID), e.g. "AB1234"
	Latitude  float64 // Decimal degrees, WGS-84
	Longitude float64 // Decimal degrees, WGS-84

	Name              string // Designation
	Marker            string // Marker type, e.g. "DISK"
	Setting           string // Setting description
	LastRecoveredYear int    // Year of last recovery, 0 if unknown
	LastCondition     string // Condition at last recovery
	LastRecoveredBy   string // Agency that last recovered the mark
	DataDate          string // Datasheet extraction date
	DataSource        string // Datasheet source
	OrthoHeight       string // Orthometric height as published
	State             string // Two-letter state code
	County            string
}

// Key returns the normalized identifier used for all lookups.
func (p PointRecord) Key() string {
	return NormalizeID(p.ID)
}

// Validate checks that the coordinate is a legal WGS-84 position and the
// identifier is non-empty.
func (p PointRecord) Validate() error {
	if NormalizeID(p.ID) == "" {
		return fmt.Errorf("point has empty id")
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return &ErrInvalidCoordinate{ID: p.ID, Lat: p.Latitude, Lon: p.Longitude}
	}
	return nil
}

// NormalizeID trims surrounding whitespace and upper-cases an identifier.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// PointStore is an immutable, ordered collection of points with lookup by
// normalized id.
//
// When the input contains the same id more than once, the first occurrence
// wins and later ones are dropped so that ids stay unique within the store.
type PointStore struct {
	points []PointRecord
	byID   map[string]int
}

// NewPointStore builds a store from points, skipping records that fail
// Validate and duplicates of an id already seen. The returned count is the
// number of records that were skipped.
func NewPointStore(points []PointRecord) (*PointStore, int) {
	s := &PointStore{
		points: make([]PointRecord, 0, len(points)),
		byID:   make(map[string]int, len(points)),
	}

	skipped := 0
	for _, p := range points {
		if p.Validate() != nil {
			skipped++
			continue
		}
		key := p.Key()
		if _, dup := s.byID[key]; dup {
			skipped++
			continue
		}
		s.byID[key] = len(s.points)
		s.points = append(s.points, p)
	}

	return s, skipped
}

// Len returns the number of points in the store.
func (s *PointStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// At returns the i-th point in load order.
func (s *PointStore) At(i int) PointRecord {
	return s.points[i]
}

// Points returns all points in load order. The slice must not be modified.
func (s *PointStore) Points() []PointRecord {
	if s == nil {
		return nil
	}
	return s.points
}

// Lookup returns the point with the given id. The id is normalized first.
func (s *PointStore) Lookup(id string) (PointRecord, bool) {
	if s == nil {
		return PointRecord{}, false
	}
	i, ok := s.byID[NormalizeID(id)]
	if !ok {
		return PointRecord{}, false
	}
	return s.points[i], true
}

// Bounds returns the union of all point coordinates in the store.
func (s *PointStore) Bounds() Bounds {
	if s.Len() == 0 {
		return Bounds{}
	}

	first := s.points[0]
	bounds := Bounds{
		MinLon: first.Longitude, MaxLon: first.Longitude,
		MinLat: first.Latitude, MaxLat: first.Latitude,
	}
	for _, p := range s.points[1:] {
		bounds = bounds.Union(Bounds{
			MinLon: p.Longitude, MaxLon: p.Longitude,
			MinLat: p.Latitude, MaxLat: p.Latitude,
		})
	}
	return bounds
}
