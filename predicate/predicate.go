// Package predicate implements the parameterized predicate objects used to
// drive R-tree traversal: boolean spatial predicates for containment and
// intersection style queries, and scalar distance predicates for k-NN
// queries.
package predicate

import "github.com/geopart/hopi/bound"

// Spatial is a boolean predicate carrying a reference bound. NodeTest is the
// (possibly less restrictive) test used while descending internal pages;
// LeafTest is the exact test applied to leaf candidates.
type Spatial[T bound.Float] struct {
	Bound    bound.Box3[T]
	NodeTest func(candidate, ref bound.Box3[T]) bool
	LeafTest func(candidate, ref bound.Box3[T]) bool
}

// Test evaluates the predicate against candidate, dispatching to the node
// or leaf test depending on isLeaf.
func (p Spatial[T]) Test(candidate bound.Box3[T], isLeaf bool) bool {
	if isLeaf {
		return p.LeafTest(candidate, p.Bound)
	}
	return p.NodeTest(candidate, p.Bound)
}

// Distance is a k-NN predicate: a scalar distance metric plus the number of
// neighbors requested.
type Distance[T bound.Float] struct {
	Bound    bound.Box3[T]
	Count    int
	NodeDist func(candidate, ref bound.Box3[T]) T
	LeafDist func(candidate, ref bound.Box3[T]) T
}

// Eval evaluates the distance metric against candidate.
func (p Distance[T]) Eval(candidate bound.Box3[T], isLeaf bool) T {
	if isLeaf {
		return p.LeafDist(candidate, p.Bound)
	}
	return p.NodeDist(candidate, p.Bound)
}

func allTrue[T bound.Float](bound.Box3[T], bound.Box3[T]) bool { return true }

func swap[T bound.Float](f func(a, b bound.Box3[T]) bool) func(a, b bound.Box3[T]) bool {
	return func(a, b bound.Box3[T]) bool { return f(b, a) }
}

// Disjoint returns all bounds that do not touch ref at any location.
func Disjoint[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: allTrue[T], LeafTest: bound.Disjoint[T]}
}

// Intersects returns all bounds that touch ref in any location.
func Intersects[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Intersects[T], LeafTest: bound.Intersects[T]}
}

// Overlaps returns all bounds overlapping ref by some extent.
func Overlaps[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Overlaps[T], LeafTest: bound.Overlaps[T]}
}

// Contains returns all bounds that fully contain ref.
func Contains[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Contains[T], LeafTest: bound.Contains[T]}
}

// ContainedBy returns all bounds contained by ref. The leaf test swaps
// argument order (Contains(ref, candidate)) since the tree candidate is the
// contained party here, not the container.
func ContainedBy[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Intersects[T], LeafTest: swap(bound.Contains[T])}
}

// ContainedByNonInclusive is ContainedBy but strict on ref's max face — the
// predicate RCB uses to assign points to exactly one partition.
func ContainedByNonInclusive[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Intersects[T], LeafTest: swap(bound.ContainsNonInclusive[T])}
}

// Covers returns all bounds that fully cover ref (strict in both directions).
func Covers[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Covers[T], LeafTest: bound.Covers[T]}
}

// CoveredBy returns all bounds covered by ref.
func CoveredBy[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Overlaps[T], LeafTest: swap(bound.Covers[T])}
}

// Equals returns all bounds exactly equal to ref.
func Equals[T bound.Float](ref bound.Box3[T]) Spatial[T] {
	return Spatial[T]{Bound: ref, NodeTest: bound.Intersects[T], LeafTest: bound.Equals[T]}
}

// Nearest builds a k-NN distance predicate requesting the count nearest
// neighbors of ref.
func Nearest[T bound.Float](ref bound.Box3[T], count int) Distance[T] {
	return Distance[T]{Bound: ref, Count: count, NodeDist: bound.Nearest[T], LeafDist: bound.Nearest[T]}
}
