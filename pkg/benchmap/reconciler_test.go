package benchmap

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func TestReconcilerAddsThenIdempotent(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 100)
	points := gridPoints(10, 0, 0, 0.01)

	d := r.Refresh(sliceSeq(points), everywhere)
	if len(d.ToAdd) != 10 || len(d.ToRemove) != 0 {
		t.Fatalf("Expected 10 adds and 0 removes, got %d and %d", len(d.ToAdd), len(d.ToRemove))
	}
	if r.VisibleCount() != 10 {
		t.Errorf("Expected 10 visible, got %d", r.VisibleCount())
	}

	surface.resetCalls()
	d = r.Refresh(sliceSeq(points), everywhere)
	if !d.Empty() {
		t.Errorf("Expected empty delta on identical refresh, got +%d -%d", len(d.ToAdd), len(d.ToRemove))
	}
	if d.Retained != 10 {
		t.Errorf("Expected 10 retained, got %d", d.Retained)
	}
	if len(surface.calls) != 0 {
		t.Errorf("Expected no surface calls for an empty delta, got %d", len(surface.calls))
	}
}

func TestReconcilerSetDifference(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 100)

	a := PointRecord{ID: "A", Latitude: 1, Longitude: 1}
	b := PointRecord{ID: "B", Latitude: 2, Longitude: 2}
	c := PointRecord{ID: "C", Latitude: 3, Longitude: 3}

	r.Refresh(sliceSeq([]PointRecord{a, b}), everywhere)
	surface.resetCalls()

	d := r.Refresh(sliceSeq([]PointRecord{a, c}), everywhere)
	if got := keysOf(d.ToAdd); !equalStrings(got, []string{"C"}) {
		t.Errorf("Expected to add [C], got %v", got)
	}
	if got := sorted(d.ToRemove); !equalStrings(got, []string{"B"}) {
		t.Errorf("Expected to remove [B], got %v", got)
	}
	if got := surface.markerIDs(); !equalStrings(got, []string{"A", "C"}) {
		t.Errorf("Expected surface [A C], got %v", got)
	}
}

func TestReconcilerRemovesBeforeAdding(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 100)

	r.Refresh(sliceSeq([]PointRecord{{ID: "A", Latitude: 1, Longitude: 1}}), everywhere)
	surface.resetCalls()

	r.Refresh(sliceSeq([]PointRecord{{ID: "B", Latitude: 1, Longitude: 1}}), everywhere)
	if len(surface.calls) != 2 {
		t.Fatalf("Expected 2 surface calls, got %d", len(surface.calls))
	}
	if surface.calls[0].op != "remove" || surface.calls[1].op != "add" {
		t.Errorf("Expected remove then add, got %s then %s", surface.calls[0].op, surface.calls[1].op)
	}
}

func TestReconcilerEmptyEligibleClearsAll(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 100)

	r.Refresh(sliceSeq(gridPoints(25, 0, 0, 0.1)), everywhere)
	d := r.Refresh(sliceSeq(nil), everywhere)

	if len(d.ToRemove) != 25 {
		t.Errorf("Expected 25 removals, got %d", len(d.ToRemove))
	}
	if r.VisibleCount() != 0 {
		t.Errorf("Expected nothing visible, got %d", r.VisibleCount())
	}
	if len(surface.markers) != 0 {
		t.Errorf("Expected empty surface, got %d markers", len(surface.markers))
	}
}

func TestReconcilerFiltersByPaddedBounds(t *testing.T) {
	r := NewReconciler(nil, 100)
	points := []PointRecord{
		{ID: "IN", Latitude: 0.5, Longitude: 0.5},
		{ID: "OUT", Latitude: 5, Longitude: 5},
	}

	d := r.Refresh(sliceSeq(points), Bounds{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1})
	if got := keysOf(d.ToAdd); !equalStrings(got, []string{"IN"}) {
		t.Errorf("Expected only [IN], got %v", got)
	}
}

func TestReconcilerAddCap(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 10)
	points := gridPoints(25, 0, 0, 0.01)

	d := r.Refresh(sliceSeq(points), everywhere)
	if len(d.ToAdd) != 10 {
		t.Fatalf("Expected exactly 10 adds, got %d", len(d.ToAdd))
	}
	if !d.Capped || d.Deferred != 15 {
		t.Errorf("Expected capped with 15 deferred, got capped=%v deferred=%d", d.Capped, d.Deferred)
	}

	// Deferred points are picked up by later refreshes; retained ones stay
	d = r.Refresh(sliceSeq(points), everywhere)
	if len(d.ToAdd) != 10 || d.Retained != 10 || len(d.ToRemove) != 0 {
		t.Errorf("Second pass: expected +10 retained 10 -0, got +%d retained %d -%d",
			len(d.ToAdd), d.Retained, len(d.ToRemove))
	}

	d = r.Refresh(sliceSeq(points), everywhere)
	if len(d.ToAdd) != 5 || d.Capped {
		t.Errorf("Third pass: expected +5 uncapped, got +%d capped=%v", len(d.ToAdd), d.Capped)
	}
	if len(surface.markers) != 25 {
		t.Errorf("Expected all 25 markers eventually, got %d", len(surface.markers))
	}
}

func TestReconcilerDuplicateEligible(t *testing.T) {
	r := NewReconciler(nil, 100)
	p := PointRecord{ID: "dup", Latitude: 1, Longitude: 1}

	d := r.Refresh(sliceSeq([]PointRecord{p, p, {ID: " DUP ", Latitude: 1, Longitude: 1}}), everywhere)
	if len(d.ToAdd) != 1 {
		t.Errorf("Expected one add for repeated id, got %d", len(d.ToAdd))
	}
}

func TestReconcilerReset(t *testing.T) {
	surface := newRecordingSurface(Region{})
	r := NewReconciler(surface, 100)
	r.Refresh(sliceSeq(gridPoints(3, 0, 0, 0.1)), everywhere)
	surface.resetCalls()

	stale := r.Reset()
	if len(stale) != 3 {
		t.Errorf("Expected 3 stale ids, got %d", len(stale))
	}
	if r.VisibleCount() != 0 {
		t.Error("Expected Reset to clear the visible set")
	}
	if len(surface.calls) != 0 {
		t.Error("Expected Reset not to call the surface")
	}

	d := r.Refresh(sliceSeq(gridPoints(3, 0, 0, 0.1)), everywhere)
	if len(d.ToAdd) != 3 {
		t.Errorf("Expected all points re-added after Reset, got %d", len(d.ToAdd))
	}
}

func TestReconcilerVisibleNormalizesID(t *testing.T) {
	r := NewReconciler(nil, 0)
	if r.AddCap() != DefaultAddCap {
		t.Errorf("Expected default cap %d, got %d", DefaultAddCap, r.AddCap())
	}
	r.Refresh(sliceSeq([]PointRecord{{ID: "ab1234", Latitude: 1, Longitude: 1}}), everywhere)
	if !r.Visible(" AB1234") {
		t.Error("Expected Visible to match a differently formatted id")
	}
}

// The surface must always end up holding exactly the reconciler's visible
// set, no refresh may exceed the cap, and with a cap larger than the input
// the visible set equals the in-bounds eligible set.
func TestReconcilerProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		universe := make([]PointRecord, 40)
		for i := range universe {
			universe[i] = PointRecord{
				ID:        fmt.Sprintf("U%02d", i),
				Longitude: float64(i%8) * 0.1,
				Latitude:  float64(i/8) * 0.1,
			}
		}

		addCap := rapid.IntRange(1, 50).Draw(t, "cap")
		surface := newRecordingSurface(Region{})
		r := NewReconciler(surface, addCap)

		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for step := 0; step < steps; step++ {
			picks := rapid.SliceOfN(rapid.Bool(), len(universe), len(universe)).Draw(t, "picks")
			var eligible []PointRecord
			for i, pick := range picks {
				if pick {
					eligible = append(eligible, universe[i])
				}
			}

			minLon := rapid.Float64Range(-0.1, 0.4).Draw(t, "minLon")
			minLat := rapid.Float64Range(-0.1, 0.3).Draw(t, "minLat")
			padded := Bounds{MinLon: minLon, MaxLon: minLon + 0.5, MinLat: minLat, MaxLat: minLat + 0.5}

			d := r.Refresh(sliceSeq(eligible), padded)

			if len(d.ToAdd) > addCap {
				t.Fatalf("added %d markers with cap %d", len(d.ToAdd), addCap)
			}
			if !equalStrings(surface.markerIDs(), sorted(r.VisibleIDs())) {
				t.Fatalf("surface %v diverged from visible set %v", surface.markerIDs(), sorted(r.VisibleIDs()))
			}

			var inView []string
			for _, p := range eligible {
				if padded.ContainsPoint(p) {
					inView = append(inView, p.Key())
				}
			}
			for _, id := range r.VisibleIDs() {
				found := false
				for _, v := range inView {
					if v == id {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("visible id %s is not eligible in view", id)
				}
			}
			if len(inView) <= addCap && !equalStrings(sorted(inView), sorted(r.VisibleIDs())) {
				t.Fatalf("expected visible %v, got %v", sorted(inView), sorted(r.VisibleIDs()))
			}
		}
	})
}

// Refreshing twice with unchanged inputs never produces a second delta once
// the backlog is drained.
func TestReconcilerIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 60).Draw(t, "n")
		addCap := rapid.IntRange(1, 20).Draw(t, "cap")
		points := gridPoints(n, 0, 0, 0.01)
		r := NewReconciler(nil, addCap)

		for i := 0; i <= n/addCap+1; i++ {
			r.Refresh(sliceSeq(points), everywhere)
		}
		if d := r.Refresh(sliceSeq(points), everywhere); !d.Empty() {
			t.Fatalf("expected empty delta after draining, got +%d -%d", len(d.ToAdd), len(d.ToRemove))
		}
		if r.VisibleCount() != n {
			t.Fatalf("expected %d visible, got %d", n, r.VisibleCount())
		}
	})
}
