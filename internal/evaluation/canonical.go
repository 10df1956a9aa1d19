package evaluation

import (
	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// ClusterSet is a set of canonical clusters keyed by their hashable form.
// Clusters with the same members collapse to one entry regardless of the key
// they were reported under.
type ClusterSet map[string]schemas.Cluster

// NewCluster builds the canonical form of a cluster: a sorted copy of ids
// with duplicates removed.
func NewCluster(ids []schemas.FindingID) schemas.Cluster {
	sorted := append(schemas.Cluster(nil), ids...)
	schemas.SortIDs(sorted)
	out := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Canonicalize converts a raw id→cluster mapping (predictions or labels) into
// a set of canonical clusters. Empty clusters are discarded so they cannot
// inflate denominators.
func Canonicalize[K comparable](raw map[K][]schemas.FindingID) ClusterSet {
	set := make(ClusterSet, len(raw))
	for _, ids := range raw {
		if len(ids) == 0 {
			continue
		}
		set.Add(NewCluster(ids))
	}
	return set
}

// Add inserts an already canonical cluster.
func (s ClusterSet) Add(c schemas.Cluster) {
	s[c.Key()] = c
}

// Has reports whether the set contains c.
func (s ClusterSet) Has(c schemas.Cluster) bool {
	_, ok := s[c.Key()]
	return ok
}

// Intersect returns the clusters present in both sets.
func (s ClusterSet) Intersect(other ClusterSet) ClusterSet {
	out := make(ClusterSet)
	for key, c := range s {
		if _, ok := other[key]; ok {
			out[key] = c
		}
	}
	return out
}

// Difference returns the clusters of s that are not in other.
func (s ClusterSet) Difference(other ClusterSet) ClusterSet {
	out := make(ClusterSet)
	for key, c := range s {
		if _, ok := other[key]; !ok {
			out[key] = c
		}
	}
	return out
}

// Universe flattens the set into the finding IDs of all its members.
func (s ClusterSet) Universe() map[schemas.FindingID]struct{} {
	universe := make(map[schemas.FindingID]struct{})
	for _, c := range s {
		for _, id := range c {
			universe[id] = struct{}{}
		}
	}
	return universe
}

// Sorted lists the clusters in ascending lexicographic order.
func (s ClusterSet) Sorted() []schemas.Cluster {
	out := make([]schemas.Cluster, 0, len(s))
	for _, c := range s {
		out = append(out, c)
	}
	schemas.SortClusters(out)
	return out
}
