package benchmap

import "testing"

func TestClusterResolverOrdering(t *testing.T) {
	store, _ := NewPointStore([]PointRecord{
		{ID: "PID-2", Name: "Two", Latitude: 1, Longitude: 1},
		{ID: "PID-3", Name: "Three", Latitude: 1, Longitude: 1},
		{ID: "PID-1", Name: "One", Latitude: 1, Longitude: 1},
	})
	resolver := NewClusterResolver(store)

	first := resolver.Resolve([]string{"PID-3", "PID-1", "PID-2"})
	second := resolver.Resolve([]string{"PID-2", "PID-3", "PID-1"})

	want := []string{"PID-1", "PID-2", "PID-3"}
	for i, p := range first {
		if p.ID != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}
	if !equalStrings(keysOf(first), keysOf(second)) {
		t.Error("Expected identical ordering regardless of input order")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Position %d differs between taps: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestClusterResolverSingleMember(t *testing.T) {
	store, _ := NewPointStore([]PointRecord{{ID: "AB1234", Latitude: 1, Longitude: 1}})
	members := NewClusterResolver(store).Resolve([]string{"ab1234"})

	if len(members) != 1 {
		t.Fatalf("Expected 1 member, got %d", len(members))
	}
	if members[0].ID != "AB1234" {
		t.Errorf("Expected AB1234, got %s", members[0].ID)
	}
}

func TestClusterResolverUnknownAndDuplicates(t *testing.T) {
	store, _ := NewPointStore([]PointRecord{
		{ID: "A", Latitude: 1, Longitude: 1},
		{ID: "B", Latitude: 1, Longitude: 1},
	})
	members := NewClusterResolver(store).Resolve([]string{"B", "MISSING", "a", "A", " b "})

	if got := keysOf(members); !equalStrings(got, []string{"A", "B"}) {
		t.Errorf("Expected [A B], got %v", got)
	}
}

func TestClusterResolverEmpty(t *testing.T) {
	store, _ := NewPointStore(nil)
	if got := NewClusterResolver(store).Resolve(nil); len(got) != 0 {
		t.Errorf("Expected no members, got %d", len(got))
	}
}
