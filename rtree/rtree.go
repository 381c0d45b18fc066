// Package rtree implements a dynamic R-tree spatial index: insertion,
// deletion, linear/quadratic node splitting, and both breadth-first spatial
// queries and best-first k-nearest-neighbor queries.
//
// Nodes live in a flat arena (Tree.nodes) addressed by integer index rather
// than pointer, so a page's parent reference is just an index (or noParent)
// rather than a raw back-pointer — this sidesteps the cyclic-ownership
// hazard a pointer-based tree would have in Go, preferring flat slice-backed
// storage over a pointer-chasing node graph.
package rtree

import (
	"fmt"

	"github.com/geopart/hopi/bound"
	"github.com/geopart/hopi/predicate"
	"github.com/geopart/hopi/tmultiset"
)

const noParent = -1

// Split selects the node-splitting strategy used on overflow.
type Split int

const (
	// Linear picks seed children by scanning each axis for the widest
	// normalized gap between a maximum-min and a minimum-max child.
	Linear Split = iota
	// Quadratic picks the seed pair maximizing wasted area.
	Quadratic
)

type node[T bound.Float, V any] struct {
	isLeaf   bool
	bound    bound.Box3[T]
	parent   int
	children []int // page children, arena indices
	value    V     // leaf payload
	free     bool  // arena slot reusable
}

// Tree is a dynamic R-tree over values of type V, keyed by axis-aligned
// bounds of coordinate kind T, extracted from each value by Extractor.
type Tree[T bound.Float, V any] struct {
	nodes       []node[T, V]
	freeList    []int
	root        int
	maxChildren int
	minChildren int
	split       Split
	extractor   func(V) bound.Box3[T]
	size        int
}

// New builds an empty tree. maxChildren/minChildren bound page fan-out per
// spec §3 ("1 < min_children <= max_children/2"); extractor derives a leaf's
// bound from its stored value.
func New[T bound.Float, V any](split Split, maxChildren, minChildren int, extractor func(V) bound.Box3[T]) *Tree[T, V] {
	if minChildren <= 1 || minChildren > maxChildren/2 {
		panic(fmt.Sprintf("rtree: invalid min/max children %d/%d", minChildren, maxChildren))
	}
	return &Tree[T, V]{
		root:        -1,
		maxChildren: maxChildren,
		minChildren: minChildren,
		split:       split,
		extractor:   extractor,
	}
}

// Len returns the number of values currently stored.
func (t *Tree[T, V]) Len() int { return t.size }

func (t *Tree[T, V]) alloc(n node[T, V]) int {
	if len(t.freeList) > 0 {
		idx := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		n.free = false
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree[T, V]) release(idx int) {
	t.nodes[idx] = node[T, V]{free: true}
	t.freeList = append(t.freeList, idx)
}

func (t *Tree[T, V]) at(idx int) *node[T, V] { return &t.nodes[idx] }

// Insert wraps value in a new leaf and descends from the root choosing, at
// each level, the child whose bound requires the smallest area increase to
// hold the new bound (ties broken by smaller current area, then smaller
// child count). Splits overflowing pages on the way back up.
func (t *Tree[T, V]) Insert(value V) {
	b := t.extractor(value)
	leaf := t.alloc(node[T, V]{isLeaf: true, bound: b, parent: noParent, value: value})
	t.size++

	if t.root == -1 {
		t.root = t.alloc(node[T, V]{isLeaf: false, bound: b, parent: noParent, children: []int{leaf}})
		t.at(leaf).parent = t.root
		return
	}

	pageIdx := t.findBestFitPage(t.root, b)
	t.at(leaf).parent = pageIdx
	page := t.at(pageIdx)
	page.children = append(page.children, leaf)
	page.bound.Stretch(b)

	t.expandFrom(pageIdx)
}

// findBestFitPage descends from start choosing at each level the child page
// whose insertion cost is lowest, stopping one level above the leaves.
func (t *Tree[T, V]) findBestFitPage(start int, b bound.Box3[T]) int {
	cur := start
	for {
		node := t.at(cur)
		if len(node.children) == 0 {
			return cur
		}
		if t.at(node.children[0]).isLeaf {
			return cur
		}
		cur = t.bestChild(node.children, b)
	}
}

func (t *Tree[T, V]) bestChild(children []int, b bound.Box3[T]) int {
	best := children[0]
	bestIncrease := bound.IncreaseToHold(t.at(best).bound, b)
	for _, c := range children[1:] {
		inc := bound.IncreaseToHold(t.at(c).bound, b)
		switch {
		case inc < bestIncrease:
			bestIncrease, best = inc, c
		case inc == bestIncrease:
			bn, cn := t.at(best), t.at(c)
			ba, ca := bn.bound.Area(), cn.bound.Area()
			if ca < ba || (ca == ba && len(cn.children) < len(bn.children)) {
				best = c
			}
		}
	}
	return best
}

// expandFrom walks up from pageIdx, splitting any page that has overflowed
// and re-stretching bounds, creating a new root if the root itself overflows.
func (t *Tree[T, V]) expandFrom(pageIdx int) {
	cur := pageIdx
	for t.at(cur).parent != noParent {
		parentIdx := t.at(cur).parent
		if len(t.at(cur).children) > t.maxChildren {
			aIdx, bIdx := t.splitNode(cur)
			parent := t.at(parentIdx)
			parent.children = removeInt(parent.children, cur)
			parent.children = append(parent.children, aIdx, bIdx)
			t.at(aIdx).parent = parentIdx
			t.at(bIdx).parent = parentIdx
			t.release(cur)
		}
		parent := t.at(parentIdx)
		parent.bound = unionOfChildren(t, parent.children)
		cur = parentIdx
	}
	if len(t.at(cur).children) > t.maxChildren {
		aIdx, bIdx := t.splitNode(cur)
		newRoot := t.alloc(node[T, V]{isLeaf: false, parent: noParent, children: []int{aIdx, bIdx}})
		t.at(aIdx).parent = newRoot
		t.at(bIdx).parent = newRoot
		t.at(newRoot).bound = unionOfChildren(t, t.at(newRoot).children)
		t.release(cur)
		t.root = newRoot
	}
}

func unionOfChildren[T bound.Float, V any](t *Tree[T, V], children []int) bound.Box3[T] {
	u := t.at(children[0]).bound
	for _, c := range children[1:] {
		u.Stretch(t.at(c).bound)
	}
	return u
}

func removeInt(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// splitNode splits the over-full page at idx into two new pages sized in
// [min_children, max_children], per spec §4.3's split body.
func (t *Tree[T, V]) splitNode(idx int) (int, int) {
	children := append([]int(nil), t.at(idx).children...)
	seedA, seedB := t.pickSeeds(children)

	remaining := make([]int, 0, len(children)-2)
	for _, c := range children {
		if c != seedA && c != seedB {
			remaining = append(remaining, c)
		}
	}

	aChildren := []int{seedA}
	bChildren := []int{seedB}
	aBound := t.at(seedA).bound
	bBound := t.at(seedB).bound

	for len(remaining) > 0 && len(remaining)+len(aChildren) > t.minChildren && len(remaining)+len(bChildren) > t.minChildren {
		next, intoA := t.pickNext(remaining, aBound, bBound)
		remaining = removeInt(remaining, next)
		if intoA {
			aChildren = append(aChildren, next)
			aBound.Stretch(t.at(next).bound)
		} else {
			bChildren = append(bChildren, next)
			bBound.Stretch(t.at(next).bound)
		}
	}
	if len(remaining) > 0 {
		if len(aChildren) < t.minChildren {
			aChildren = append(aChildren, remaining...)
		} else {
			bChildren = append(bChildren, remaining...)
		}
	}
	if len(aChildren) < t.minChildren || len(bChildren) < t.minChildren {
		panic(fmt.Sprintf("rtree: split produced a page below min_children: %d/%d children, min %d", len(aChildren), len(bChildren), t.minChildren))
	}

	aIdx := t.alloc(node[T, V]{isLeaf: false, children: aChildren, bound: unionOfChildren(t, aChildren)})
	bIdx := t.alloc(node[T, V]{isLeaf: false, children: bChildren, bound: unionOfChildren(t, bChildren)})
	for _, c := range aChildren {
		t.at(c).parent = aIdx
	}
	for _, c := range bChildren {
		t.at(c).parent = bIdx
	}
	return aIdx, bIdx
}

func (t *Tree[T, V]) pickSeeds(children []int) (int, int) {
	if t.split == Quadratic {
		return t.pickSeedsQuadratic(children)
	}
	return t.pickSeedsLinear(children)
}

func (t *Tree[T, V]) pickSeedsLinear(children []int) (int, int) {
	parentBound := unionOfChildren(t, children)
	var best1, best2 int
	maxScaled := lowest[T]()
	for dim := 0; dim < 3; dim++ {
		var minMaxChild, maxMinChild int
		minMaxVal := maxVal[T]()
		maxMinVal := lowest[T]()
		for _, c := range children {
			cb := t.at(c).bound
			if cb.Min[dim] > maxMinVal {
				maxMinVal, maxMinChild = cb.Min[dim], c
			}
			if cb.Max[dim] < minMaxVal {
				minMaxVal, minMaxChild = cb.Max[dim], c
			}
		}
		length := parentBound.Length(dim)
		if length == 0 {
			continue
		}
		scaled := absT(minMaxVal-maxMinVal) / length
		if scaled > maxScaled {
			maxScaled = scaled
			best1, best2 = minMaxChild, maxMinChild
		}
	}
	if best1 == best2 {
		if best1 == children[0] {
			best2 = children[len(children)-1]
		} else {
			best2 = children[0]
		}
	}
	return best1, best2
}

func (t *Tree[T, V]) pickSeedsQuadratic(children []int) (int, int) {
	var best1, best2 int
	maxWasted := lowest[T]()
	for i := 0; i < len(children); i++ {
		iArea := t.at(children[i]).bound.Area()
		for j := i + 1; j < len(children); j++ {
			jArea := t.at(children[j]).bound.Area()
			cArea := bound.Union(t.at(children[i]).bound, t.at(children[j]).bound).Area()
			wasted := cArea - iArea - jArea
			if wasted > maxWasted {
				maxWasted = wasted
				best1, best2 = children[i], children[j]
			}
		}
	}
	return best1, best2
}

func (t *Tree[T, V]) pickNext(remaining []int, aBound, bBound bound.Box3[T]) (int, bool) {
	if t.split == Quadratic {
		return t.pickNextQuadratic(remaining, aBound, bBound)
	}
	next := remaining[0]
	aInc := bound.IncreaseToHold(aBound, t.at(next).bound)
	bInc := bound.IncreaseToHold(bBound, t.at(next).bound)
	return next, aInc < bInc
}

func (t *Tree[T, V]) pickNextQuadratic(remaining []int, aBound, bBound bound.Box3[T]) (int, bool) {
	var next int
	var intoA bool
	maxDiff := lowest[T]()
	for _, c := range remaining {
		aInc := bound.IncreaseToHold(aBound, t.at(c).bound)
		bInc := bound.IncreaseToHold(bBound, t.at(c).bound)
		diff := absT(aInc - bInc)
		if diff > maxDiff {
			maxDiff = diff
			next = c
			intoA = aInc < bInc
		}
	}
	return next, intoA
}

func absT[T bound.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func maxVal[T bound.Float]() T {
	var z T
	switch any(z).(type) {
	case float32:
		return T(3.4e38)
	default:
		v := float64(1.7e308)
		return T(v)
	}
}

func lowest[T bound.Float]() T { return -maxVal[T]() }

// Remove picks the page that findBestFitPage selects for value's bound (as
// Insert does), deletes every leaf in that page whose bound (via extractor)
// and value equal the given value, then condenses the tree upward. Leaves
// held by any other page are not searched.
func (t *Tree[T, V]) Remove(value V, equal func(a, b V) bool) int {
	if t.root == -1 {
		return 0
	}
	b := t.extractor(value)
	pageIdx := t.findBestFitPage(t.root, b)
	page := t.at(pageIdx)

	removed := 0
	kept := page.children[:0]
	for _, c := range page.children {
		leaf := t.at(c)
		if leaf.isLeaf && leaf.bound.Equal(b) && equal(leaf.value, value) {
			t.release(c)
			removed++
		} else {
			kept = append(kept, c)
		}
	}
	page.children = kept
	if len(page.children) > 0 {
		page.bound = unionOfChildren(t, page.children)
	}

	t.condense(pageIdx)
	t.size -= removed
	return removed
}

// condense dissolves every page below min_children on the path from idx to
// the root, reinserting survivors from the root, and collapses a
// single-child non-leaf root.
func (t *Tree[T, V]) condense(idx int) {
	var orphans []int
	cur := idx
	for t.at(cur).parent != noParent {
		parentIdx := t.at(cur).parent
		if len(t.at(cur).children) < t.minChildren && len(t.at(cur).children) > 0 {
			orphans = append(orphans, t.at(cur).children...)
			parent := t.at(parentIdx)
			parent.children = removeInt(parent.children, cur)
			t.release(cur)
		} else if len(t.at(cur).children) == 0 && !t.at(cur).isLeaf {
			parent := t.at(parentIdx)
			parent.children = removeInt(parent.children, cur)
			t.release(cur)
		}
		cur = parentIdx
		if len(t.at(cur).children) > 0 {
			t.at(cur).bound = unionOfChildren(t, t.at(cur).children)
		}
	}
	t.root = cur

	for _, orphan := range orphans {
		t.reinsertSubtree(orphan)
	}

	if len(t.at(t.root).children) == 1 && !t.at(t.at(t.root).children[0]).isLeaf {
		only := t.at(t.root).children[0]
		t.release(t.root)
		t.at(only).parent = noParent
		t.root = only
	}
}

func (t *Tree[T, V]) reinsertSubtree(idx int) {
	n := t.at(idx)
	if n.isLeaf {
		t.Insert(n.value)
		t.release(idx)
		t.size--
		return
	}
	children := append([]int(nil), n.children...)
	t.release(idx)
	for _, c := range children {
		t.reinsertSubtree(c)
	}
}

// Query performs a breadth-first spatial traversal, returning every leaf
// value for which pred.Test is true.
func (t *Tree[T, V]) Query(pred predicate.Spatial[T]) []V {
	var out []V
	if t.root == -1 {
		return out
	}
	queue := []int{t.root}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		n := t.at(idx)
		if !pred.Test(n.bound, n.isLeaf) {
			continue
		}
		if n.isLeaf {
			out = append(out, n.value)
		} else {
			queue = append(queue, n.children...)
		}
	}
	return out
}

type candidate[T bound.Float] struct {
	idx int
}

// Nearest performs a best-first k-NN traversal using a TruncatedMultiSet of
// capacity pred.Count, returning up to Count leaf values ordered by
// ascending distance.
func (t *Tree[T, V]) Nearest(pred predicate.Distance[T]) []V {
	if t.root == -1 {
		return nil
	}
	nodes := tmultiset.New[T, candidate[T]](0)
	nodes.Insert(pred.Eval(t.at(t.root).bound, false), candidate[T]{idx: t.root})
	leaves := tmultiset.New[T, V](pred.Count)

	for nodes.Len() > 0 {
		entries := nodes.Entries()
		top := entries[0]
		nodes2 := tmultiset.New[T, candidate[T]](0)
		for _, e := range entries[1:] {
			nodes2.Insert(e.Key, e.Value)
		}
		*nodes = *nodes2

		tau, full := leaves.Max()
		if full && leaves.Full() && top.Key > tau {
			continue
		}

		n := t.at(top.Value.idx)
		if n.isLeaf {
			leaves.Insert(top.Key, n.value)
		} else {
			for _, c := range n.children {
				cn := t.at(c)
				d := pred.Eval(cn.bound, cn.isLeaf)
				nodes.Insert(d, candidate[T]{idx: c})
			}
		}
	}

	var out []V
	for _, e := range leaves.Entries() {
		out = append(out, e.Value)
	}
	return out
}
