package evaluation

import (
	"fmt"

	"github.com/xkilldash9x/finding-dedup/api/schemas"
)

// TransitiveClosure expands every entry of a raw prediction with the related
// findings of its direct neighbours, so that if A relates to B and B relates
// to C, A's cluster also holds C.
//
// Exactly one pass is made per key and neighbour lists are read from the
// input as it stands when the function is called, which makes the result
// independent of map iteration order. Chains longer than two hops are only
// fully merged when the input relation is already reciprocal. The input is
// not modified; the returned lists are deduplicated and sorted.
func TransitiveClosure(raw schemas.Prediction) schemas.Prediction {
	closed := make(schemas.Prediction, len(raw))
	for id, related := range raw {
		members := make(map[schemas.FindingID]struct{}, len(related))
		for _, other := range related {
			members[other] = struct{}{}
		}
		for _, other := range related {
			if other == id {
				continue
			}
			// Neighbours that are not keys themselves contribute only their own ID.
			for _, transitive := range raw[other] {
				members[transitive] = struct{}{}
			}
		}
		closed[id] = sortedMembers(members)
	}
	return closed
}

// ComponentClosure replaces every entry with the full connected component of
// the relation graph it belongs to. Unlike TransitiveClosure it merges chains
// of any length and ignores edge direction.
func ComponentClosure(raw schemas.Prediction) schemas.Prediction {
	uf := newUnionFind()
	for id, related := range raw {
		uf.add(id)
		for _, other := range related {
			uf.union(id, other)
		}
	}

	components := make(map[schemas.FindingID][]schemas.FindingID)
	for id := range uf.parent {
		root := uf.find(id)
		components[root] = append(components[root], id)
	}
	for root := range components {
		schemas.SortIDs(components[root])
	}

	closed := make(schemas.Prediction, len(raw))
	for id := range raw {
		members := components[uf.find(id)]
		closed[id] = append([]schemas.FindingID(nil), members...)
	}
	return closed
}

// ApplyClosure runs the closure selected by mode over a raw prediction.
func ApplyClosure(raw schemas.Prediction, mode schemas.ClosureMode) (schemas.Prediction, error) {
	switch mode {
	case schemas.ClosureNone, "":
		return raw, nil
	case schemas.ClosureSinglePass:
		return TransitiveClosure(raw), nil
	case schemas.ClosureComponents:
		return ComponentClosure(raw), nil
	default:
		return nil, fmt.Errorf("unsupported closure mode '%s'", mode)
	}
}

func sortedMembers(members map[schemas.FindingID]struct{}) []schemas.FindingID {
	ids := make([]schemas.FindingID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	schemas.SortIDs(ids)
	return ids
}

// unionFind is a disjoint-set forest with path compression.
type unionFind struct {
	parent map[schemas.FindingID]schemas.FindingID
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[schemas.FindingID]schemas.FindingID)}
}

func (u *unionFind) add(id schemas.FindingID) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
	}
}

func (u *unionFind) find(id schemas.FindingID) schemas.FindingID {
	u.add(id)
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

func (u *unionFind) union(a, b schemas.FindingID) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Smaller ID becomes the root so components are stable across runs.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
