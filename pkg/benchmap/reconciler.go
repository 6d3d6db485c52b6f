package benchmap

import "iter"

// DefaultAddCap is the maximum number of markers added by one refresh.
const DefaultAddCap = 2500

// MarkerSink receives marker deltas. Both calls are treated as
// fire-and-forget: the reconciler never rolls back its state when a sink
// misbehaves.
type MarkerSink interface {
	// AddMarkers adds markers for points. Adding an id that is already
	// present overwrites it.
	AddMarkers(points []PointRecord)

	// RemoveMarkers removes markers by id. Unknown ids are ignored.
	RemoveMarkers(ids []string)
}

// Delta is the outcome of one refresh.
type Delta struct {
	ToAdd    []PointRecord // Points newly shown, in scan order
	ToRemove []string      // Normalized ids no longer shown
	Retained int           // Ids that stayed visible
	Deferred int           // Eligible points left out because of the add cap
	Capped   bool          // True when the add cap was reached
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Reconciler keeps the set of rendered marker ids in step with the set of
// eligible points inside the padded viewport, sending only the difference to
// the sink.
//
// Reconciler is not safe for concurrent use; it is owned by the engine loop.
type Reconciler struct {
	visible map[string]struct{}
	cap     int
	sink    MarkerSink
}

// NewReconciler creates a reconciler with an empty visible set. An addCap of
// zero or less uses DefaultAddCap.
func NewReconciler(sink MarkerSink, addCap int) *Reconciler {
	if addCap <= 0 {
		addCap = DefaultAddCap
	}
	return &Reconciler{
		visible: make(map[string]struct{}),
		cap:     addCap,
		sink:    sink,
	}
}

// Refresh diffs eligible points inside padded against the visible set.
//
// Algorithm:
//  1. Scan eligible. Every point inside padded is "in view". In-view points
//     already visible are retained; the rest are queued to add until the
//     add cap is reached. Points past the cap are counted as deferred.
//  2. Visible ids not seen in view are removed.
//  3. Removals are sent before additions, so a renderer that enforces
//     unique ids never sees a transient duplicate. Nothing is sent when the
//     delta is empty.
//  4. The visible set becomes retained ∪ added. Deferred points are not
//     recorded as visible, so the next refresh picks them up again.
//
// Scanning continues after the cap so that retained markers are recognized
// and not torn down; only additions stop. The cap therefore bounds renderer
// work per refresh, while scan cost stays proportional to the number of
// eligible points inside padded.
func (r *Reconciler) Refresh(eligible iter.Seq[PointRecord], padded Bounds) Delta {
	var delta Delta
	next := make(map[string]struct{}, len(r.visible))

	for p := range eligible {
		if !padded.ContainsPoint(p) {
			continue
		}
		key := p.Key()
		if _, seen := next[key]; seen {
			continue
		}
		if _, ok := r.visible[key]; ok {
			next[key] = struct{}{}
			delta.Retained++
			continue
		}
		if len(delta.ToAdd) >= r.cap {
			delta.Capped = true
			delta.Deferred++
			continue
		}
		next[key] = struct{}{}
		delta.ToAdd = append(delta.ToAdd, p)
	}

	for key := range r.visible {
		if _, ok := next[key]; !ok {
			delta.ToRemove = append(delta.ToRemove, key)
		}
	}

	r.visible = next

	if delta.Empty() || r.sink == nil {
		return delta
	}
	if len(delta.ToRemove) > 0 {
		r.sink.RemoveMarkers(delta.ToRemove)
	}
	if len(delta.ToAdd) > 0 {
		r.sink.AddMarkers(delta.ToAdd)
	}
	return delta
}

// Reset forgets every visible id and returns them. It does not talk to the
// sink; the caller decides whether the returned markers must be removed.
func (r *Reconciler) Reset() []string {
	ids := make([]string, 0, len(r.visible))
	for key := range r.visible {
		ids = append(ids, key)
	}
	r.visible = make(map[string]struct{})
	return ids
}

// Visible reports whether id is currently tracked as rendered.
func (r *Reconciler) Visible(id string) bool {
	_, ok := r.visible[NormalizeID(id)]
	return ok
}

// VisibleIDs returns a copy of the tracked ids in no particular order.
func (r *Reconciler) VisibleIDs() []string {
	ids := make([]string, 0, len(r.visible))
	for key := range r.visible {
		ids = append(ids, key)
	}
	return ids
}

// VisibleCount returns the number of tracked ids.
func (r *Reconciler) VisibleCount() int {
	return len(r.visible)
}

// AddCap returns the per-refresh add limit.
func (r *Reconciler) AddCap() int {
	return r.cap
}
