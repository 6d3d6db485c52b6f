package benchmap

// Dataset is one immutable generation of points together with its spatial
// index. A Dataset is built completely before it is handed to an engine, so
// the engine never observes a partially loaded collection.
type Dataset struct {
	gen     Generation
	store   *PointStore
	index   *SpatialIndex
	skipped int
}

// NewDataset builds a store and index from points. If gen is the zero
// generation, one is computed from the stored points.
func NewDataset(gen Generation, points []PointRecord) *Dataset {
	store, skipped := NewPointStore(points)
	if gen.IsZero() {
		gen = ComputeGeneration(store.Points())
	}
	return &Dataset{
		gen:     gen,
		store:   store,
		index:   NewSpatialIndex(store),
		skipped: skipped,
	}
}

// EmptyDataset returns a dataset with no points.
func EmptyDataset() *Dataset {
	return NewDataset(Generation{}, nil)
}

// Generation returns the dataset's identity token.
func (d *Dataset) Generation() Generation {
	return d.gen
}

// Store returns the point store.
func (d *Dataset) Store() *PointStore {
	return d.store
}

// Index returns the spatial index.
func (d *Dataset) Index() *SpatialIndex {
	return d.index
}

// Bounds returns the extent of the dataset's points.
func (d *Dataset) Bounds() Bounds {
	return d.index.Extent()
}

// Len returns the number of points.
func (d *Dataset) Len() int {
	return d.store.Len()
}

// Skipped returns how many input records were rejected as invalid or
// duplicate when the dataset was built.
func (d *Dataset) Skipped() int {
	return d.skipped
}
