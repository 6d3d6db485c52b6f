package benchmap

import (
	"iter"

	"github.com/dhconnelly/rtreego"
)

// SpatialIndex answers "which points fall in this rectangle" over a PointStore.
//
// The index is built once per dataset generation and is read-only afterwards.
// Queries use an R-tree and cost roughly O(log N + K) for K results, compared
// to O(N) with a linear scan.
//
// Example:
//
//	store, _ := benchmap.NewPointStore(points)
//	idx := benchmap.NewSpatialIndex(store)
//
//	viewport := benchmap.Bounds{
//	    MinLon: -86.9, MaxLon: -86.6,
//	    MinLat: 36.0, MaxLat: 36.3,
//	}
//	for p := range idx.Query(viewport) {
//	    fmt.Println(p.ID)
//	}
type SpatialIndex struct {
	store  *PointStore
	extent Bounds         // Union of every indexed coordinate
	rtree  *rtreego.Rtree // nil means linear scan
}

// indexedPoint wraps a store position for R-tree storage.
type indexedPoint struct {
	index    int
	lon, lat float64
}

// Bounds implements rtreego.Spatial interface.
func (p *indexedPoint) Bounds() rtreego.Rect {
	// R-tree requires non-zero dimensions; ~11 meters at the equator
	const epsilon = 0.0001
	// Centered so points on a query's max edge still intersect
	corner := rtreego.Point{p.lon - epsilon/2, p.lat - epsilon/2}
	rect, _ := rtreego.NewRect(corner, []float64{epsilon, epsilon})
	return rect
}

// NewSpatialIndex builds an R-tree over every point in store.
//
// The tree is bulk loaded, which is faster than repeated inserts and yields
// better-packed nodes.
func NewSpatialIndex(store *PointStore) *SpatialIndex {
	idx := &SpatialIndex{store: store, extent: store.Bounds()}
	if store.Len() == 0 {
		return idx
	}

	objs := make([]rtreego.Spatial, store.Len())
	for i, p := range store.Points() {
		objs[i] = &indexedPoint{index: i, lon: p.Longitude, lat: p.Latitude}
	}

	// 2D, min=25 children, max=50 children
	idx.rtree = rtreego.NewTree(2, 25, 50, objs...)
	return idx
}

// NewLinearIndex returns an index that answers queries with a full scan.
// Useful for small stores and as a reference in tests.
func NewLinearIndex(store *PointStore) *SpatialIndex {
	return &SpatialIndex{store: store, extent: store.Bounds()}
}

// Store returns the indexed point store.
func (idx *SpatialIndex) Store() *PointStore {
	return idx.store
}

// Extent returns the smallest box containing every indexed point. It is the
// zero Bounds for an empty store.
func (idx *SpatialIndex) Extent() Bounds {
	return idx.extent
}

// Len returns the number of indexed points.
func (idx *SpatialIndex) Len() int {
	return idx.store.Len()
}

// Query returns every point whose coordinate lies within bounds.
//
// Order is unspecified and there are no duplicates. The sequence may be
// iterated more than once; each iteration re-runs the query. Empty bounds
// yield nothing. Bounds that wrap the antimeridian are searched as two boxes.
func (idx *SpatialIndex) Query(bounds Bounds) iter.Seq[PointRecord] {
	return func(yield func(PointRecord) bool) {
		if idx == nil || idx.store.Len() == 0 || bounds.Empty() {
			return
		}
		for _, box := range bounds.Split() {
			if box.Empty() || !box.Intersects(idx.extent) {
				continue
			}
			if !idx.queryBox(box, yield) {
				return
			}
		}
	}
}

// Collect runs Query and gathers the results into a slice.
func (idx *SpatialIndex) Collect(bounds Bounds) []PointRecord {
	var result []PointRecord
	for p := range idx.Query(bounds) {
		result = append(result, p)
	}
	return result
}

// queryBox yields matches inside one non-wrapping box. It returns false when
// the consumer stopped iteration.
func (idx *SpatialIndex) queryBox(box Bounds, yield func(PointRecord) bool) bool {
	if idx.rtree == nil {
		// No spatial index, fallback to linear search
		for _, p := range idx.store.Points() {
			if box.ContainsPoint(p) && !yield(p) {
				return false
			}
		}
		return true
	}

	point := rtreego.Point{box.MinLon, box.MinLat}
	lengths := []float64{
		box.MaxLon - box.MinLon,
		box.MaxLat - box.MinLat,
	}
	queryRect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return true
	}

	for _, spatial := range idx.rtree.SearchIntersect(queryRect) {
		indexed := spatial.(*indexedPoint)
		p := idx.store.At(indexed.index)

		// Point rectangles carry an epsilon; confirm the exact coordinate
		if !box.ContainsPoint(p) {
			continue
		}
		if !yield(p) {
			return false
		}
	}
	return true
}
