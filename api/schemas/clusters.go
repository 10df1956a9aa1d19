package schemas

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// -- Clustering Schemas --

// FindingID identifies one reported issue instance within a run. It is
// assigned by a data loader and never changes afterwards.
type FindingID int

// Corpus maps every finding to the normalized text that represents it.
// The text may be empty.
type Corpus map[FindingID]string

// IDs returns the corpus finding IDs in ascending order.
func (c Corpus) IDs() []FindingID {
	ids := make([]FindingID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// LabelKey names a ground-truth collection. It is used for grouping only and
// never takes part in comparisons.
type LabelKey struct {
	CollectionID int    `json:"collection_id" yaml:"collection_id"`
	Name         string `json:"name" yaml:"name"`
}

func (k LabelKey) String() string {
	return fmt.Sprintf("(%d, %q)", k.CollectionID, k.Name)
}

// Labels maps each ground-truth collection to the findings known to be
// duplicates of one another.
type Labels map[LabelKey][]FindingID

// Prediction maps a finding to the findings a technique judged as related to
// it. It is neither guaranteed symmetric nor transitive and may hold
// duplicates or empty lists.
type Prediction map[FindingID][]FindingID

// Cluster is a canonical cluster: distinct finding IDs in ascending order.
type Cluster []FindingID

// Key returns the hashable form of the cluster, used for set membership.
func (c Cluster) Key() string {
	var b strings.Builder
	for i, id := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

// Less orders clusters lexicographically by member ID.
func (c Cluster) Less(other Cluster) bool {
	for i := 0; i < len(c) && i < len(other); i++ {
		if c[i] != other[i] {
			return c[i] < other[i]
		}
	}
	return len(c) < len(other)
}

// SortIDs sorts finding IDs ascending in place.
func SortIDs(ids []FindingID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// SortClusters orders clusters lexicographically in place.
func SortClusters(clusters []Cluster) {
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Less(clusters[j]) })
}
