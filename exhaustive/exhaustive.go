// Package exhaustive implements a flat-list spatial index with the same
// query interface as rtree, for O(N)-per-query reference behavior used to
// validate the R-tree's results in tests (spec §4.3 "Exhaustive index").
package exhaustive

import (
	"sort"

	"github.com/geopart/hopi/bound"
	"github.com/geopart/hopi/predicate"
)

// Index is a simple slice-backed index: every query is a full scan.
type Index[T bound.Float, V any] struct {
	values    []V
	extractor func(V) bound.Box3[T]
}

// New builds an empty exhaustive index.
func New[T bound.Float, V any](extractor func(V) bound.Box3[T]) *Index[T, V] {
	return &Index[T, V]{extractor: extractor}
}

func (x *Index[T, V]) Len() int { return len(x.values) }

// Insert appends value to the flat list.
func (x *Index[T, V]) Insert(value V) {
	x.values = append(x.values, value)
}

// Remove deletes every value matching equal, mutating (not const, per the
// corrected defect noted for TruncatedMultiSet/Exhaustive::clear in spec
// Design Notes #3 — Remove here genuinely mutates, as it must).
func (x *Index[T, V]) Remove(value V, equal func(a, b V) bool) int {
	kept := x.values[:0]
	removed := 0
	for _, v := range x.values {
		if equal(v, value) {
			removed++
		} else {
			kept = append(kept, v)
		}
	}
	x.values = kept
	return removed
}

// Clear empties the index. Declared `const noexcept` while mutating in the
// source; here it is a correctly mutating method.
func (x *Index[T, V]) Clear() {
	x.values = x.values[:0]
}

// Query performs a linear scan, testing every value's bound against pred's
// leaf test (there being no internal nodes to prune with the node test).
func (x *Index[T, V]) Query(pred predicate.Spatial[T]) []V {
	var out []V
	for _, v := range x.values {
		if pred.Test(x.extractor(v), true) {
			out = append(out, v)
		}
	}
	return out
}

// Nearest scans every value, sorts by distance, and returns the closest
// pred.Count of them.
func (x *Index[T, V]) Nearest(pred predicate.Distance[T]) []V {
	type scored struct {
		v    V
		dist T
	}
	scoredAll := make([]scored, len(x.values))
	for i, v := range x.values {
		scoredAll[i] = scored{v: v, dist: pred.Eval(x.extractor(v), true)}
	}
	sort.Slice(scoredAll, func(i, j int) bool { return scoredAll[i].dist < scoredAll[j].dist })
	n := pred.Count
	if n > len(scoredAll) {
		n = len(scoredAll)
	}
	out := make([]V, n)
	for i := 0; i < n; i++ {
		out[i] = scoredAll[i].v
	}
	return out
}
