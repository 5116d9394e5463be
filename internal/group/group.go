// Package group merges matched pairs into duplicate groups.
package group

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/dupehash/internal/pairbuf"
)

// unionFind is a disjoint-set forest over 0..n-1 with union by size.
type unionFind struct {
	parent []int32
	size   []int32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int32, n),
		size:   make([]int32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int32) int32 {
	for uf.parent[x] != x {
		// path halving
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int32) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}

// Build returns the connected components with more than one member among
// n fingerprints linked by pairs, ordered by smallest member. Pairs with an
// index outside [0, n) are ignored.
func Build(n int, pairs []pairbuf.Pair) []*roaring.Bitmap {
	if n <= 1 || len(pairs) == 0 {
		return nil
	}

	uf := newUnionFind(n)
	for _, p := range pairs {
		if p.I < 0 || p.I >= n || p.J < 0 || p.J >= n {
			continue
		}
		uf.union(int32(p.I), int32(p.J))
	}

	index := make(map[int32]int)
	var groups []*roaring.Bitmap
	for i := 0; i < n; i++ {
		root := uf.find(int32(i))
		if uf.size[root] < 2 {
			continue
		}
		k, ok := index[root]
		if !ok {
			k = len(groups)
			index[root] = k
			groups = append(groups, roaring.New())
		}
		groups[k].Add(uint32(i))
	}
	return groups
}

// Indices returns the members of each group in ascending order.
func Indices(groups []*roaring.Bitmap) [][]int {
	out := make([][]int, len(groups))
	for k, g := range groups {
		members := make([]int, 0, g.GetCardinality())
		it := g.Iterator()
		for it.HasNext() {
			members = append(members, int(it.Next()))
		}
		out[k] = members
	}
	return out
}
