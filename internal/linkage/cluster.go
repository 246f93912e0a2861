package linkage

import "sort"

// Group is a set of rows linked by a chain of pairwise matches, ascending.
type Group []int

// unionFind is a disjoint-set forest over local positions 0..n-1.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Cluster returns the connected components of one block, treating matched pairs as
// edges. Any chain of matches merges into one group even when its ends would not match
// directly. Groups are ordered by their smallest row and every block row appears in
// exactly one group.
func Cluster(rows []int, pairs []PairDecision) []Group {
	local := make(map[int]int, len(rows))
	for i, r := range rows {
		local[r] = i
	}
	uf := newUnionFind(len(rows))
	for _, p := range pairs {
		if !p.Matched {
			continue
		}
		a, okA := local[p.I]
		b, okB := local[p.J]
		if okA && okB {
			uf.union(a, b)
		}
	}

	byRoot := make(map[int]int)
	var groups []Group
	sorted := make([]int, len(rows))
	copy(sorted, rows)
	sort.Ints(sorted)
	for _, r := range sorted {
		root := uf.find(local[r])
		g, ok := byRoot[root]
		if !ok {
			g = len(groups)
			byRoot[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], r)
	}
	return groups
}
