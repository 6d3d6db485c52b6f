package benchmap

import "sort"

// ClusterResolver turns the member ids of a tapped marker cluster into the
// list shown to the user for disambiguation.
type ClusterResolver struct {
	store *PointStore
}

// NewClusterResolver creates a resolver backed by store.
func NewClusterResolver(store *PointStore) *ClusterResolver {
	return &ClusterResolver{store: store}
}

// Resolve looks up each member and returns the points sorted by id
// ascending. Ids are normalized; unknown ids are skipped and duplicates
// collapse to one entry. The order depends only on the ids, so repeated taps
// on an unchanged cluster give identical lists. A single-member cluster
// yields a one-element list.
func (c *ClusterResolver) Resolve(memberIDs []string) []PointRecord {
	seen := make(map[string]struct{}, len(memberIDs))
	result := make([]PointRecord, 0, len(memberIDs))

	for _, id := range memberIDs {
		key := NormalizeID(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		p, ok := c.store.Lookup(key)
		if !ok {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key() < result[j].Key()
	})

	return result
}
