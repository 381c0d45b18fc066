// Package bound implements the axis-aligned bounding box primitive shared by
// the R-tree, the predicate factories, and the RCB partitioner.
package bound

import (
	"fmt"
	"math"
)

// Float is the set of coordinate kinds a Box may be built over.
type Float interface {
	~float32 | ~float64
}

// Box3 is the axis-aligned bounding box used throughout HOPI: a pair of
// 3-dimensional coordinate arrays, Min and Max. Go generics cannot
// parameterize array length on a type parameter, so the dimension (matching
// the core's NDim=3) is fixed rather than carried as a second type
// parameter, following spec §3's "core uses N=3" note. A zero-value Box3 is
// NOT the empty box; call Reset to get one that absorbs the first Stretch
// exactly.
type Box3[T Float] struct {
	Min [3]T
	Max [3]T
}

// New3 builds a box directly from its corners.
func New3[T Float](min, max [3]T) Box3[T] {
	return Box3[T]{Min: min, Max: max}
}

// Empty returns a box in the "reset" state: any Stretch against it absorbs
// the argument exactly, matching box.hpp's reset().
func Empty[T Float]() Box3[T] {
	var b Box3[T]
	for i := range b.Min {
		b.Min[i] = maxVal[T]()
		b.Max[i] = lowestVal[T]()
	}
	return b
}

func maxVal[T Float]() T {
	var z T
	switch any(z).(type) {
	case float32:
		return T(math.MaxFloat32)
	default:
		v := float64(math.MaxFloat64)
		return T(v)
	}
}

func lowestVal[T Float]() T {
	var z T
	switch any(z).(type) {
	case float32:
		return T(-math.MaxFloat32)
	default:
		v := float64(-math.MaxFloat64)
		return T(v)
	}
}

// Reset puts b back into the empty state described by Empty.
func (b *Box3[T]) Reset() {
	*b = Empty[T]()
}

func (b Box3[T]) Center(dim int) T { return T(0.5) * (b.Max[dim] + b.Min[dim]) }
func (b Box3[T]) Length(dim int) T { return b.Max[dim] - b.Min[dim] }

// Area is the product of side lengths.
func (b Box3[T]) Area() T {
	s := b.Length(0)
	for i := 1; i < len(b.Min); i++ {
		s *= b.Length(i)
	}
	return s
}

// LongestDimension returns the index of the maximum side length, ties broken
// toward the lower index.
func (b Box3[T]) LongestDimension() int {
	ans := 0
	curMax := b.Length(0)
	for i := 1; i < len(b.Min); i++ {
		if b.Length(i) > curMax {
			curMax = b.Length(i)
			ans = i
		}
	}
	return ans
}

// Stretch enlarges b in place to the union of b and other.
func (b *Box3[T]) Stretch(other Box3[T]) {
	for i := range b.Min {
		if other.Min[i] < b.Min[i] {
			b.Min[i] = other.Min[i]
		}
		if other.Max[i] > b.Max[i] {
			b.Max[i] = other.Max[i]
		}
	}
}

// Union returns a box large enough to hold both a and b.
func Union[T Float](a, b Box3[T]) Box3[T] {
	ans := a
	ans.Stretch(b)
	return ans
}

// IncreaseToHold returns area(Union(a,b)) - area(a): the area a would have to
// gain to hold b.
func IncreaseToHold[T Float](a, b Box3[T]) T {
	return Union(a, b).Area() - a.Area()
}

// NextLarger nudges every face outward by one representable step. Used as
// the domain seal before RCB so no input point coincides with the global
// maximum face.
func (b *Box3[T]) NextLarger() {
	for i := range b.Min {
		b.Min[i] = nextDown(b.Min[i])
		b.Max[i] = nextUp(b.Max[i])
	}
}

// NextSmaller is the inward counterpart of NextLarger.
func (b *Box3[T]) NextSmaller() {
	for i := range b.Min {
		b.Min[i] = nextUp(b.Min[i])
		b.Max[i] = nextDown(b.Max[i])
	}
}

func nextUp[T Float](v T) T {
	switch x := any(v).(type) {
	case float32:
		return T(math.Float32frombits(bump32(x, true)))
	default:
		f := float64(v)
		return T(math.Nextafter(f, math.Inf(1)))
	}
}

func nextDown[T Float](v T) T {
	switch x := any(v).(type) {
	case float32:
		return T(math.Float32frombits(bump32(x, false)))
	default:
		f := float64(v)
		return T(math.Nextafter(f, math.Inf(-1)))
	}
}

// bump32 nudges a float32 toward +/-Inf by one ULP using integer bit
// manipulation, since math.Nextafter only operates on float64.
func bump32(f float32, up bool) uint32 {
	bits := math.Float32bits(f)
	if f == 0 {
		if up {
			return 1
		}
		return 0x80000001
	}
	sign := bits&0x80000000 != 0
	towardPositive := up != sign
	if towardPositive {
		bits++
	} else {
		bits--
	}
	return bits
}

// Scale expands the box uniformly about its center by factor f: the new
// half-extent along every dimension is f times the old half-extent. Center
// is preserved. This is the operation the original HOPI source invoked as
// bound.scale(f) without ever defining; see DESIGN.md.
func (b Box3[T]) Scale(f T) Box3[T] {
	out := b
	for i := range b.Min {
		c := b.Center(i)
		halfExtent := T(0.5) * b.Length(i) * f
		out.Min[i] = c - halfExtent
		out.Max[i] = c + halfExtent
	}
	return out
}

// Equal reports whether a and b have identical corners.
func (a Box3[T]) Equal(b Box3[T]) bool {
	return a.Min == b.Min && a.Max == b.Max
}

// Equals is the function-value form of Equal, for use where a
// func(Box3[T], Box3[T]) bool is required.
func Equals[T Float](a, b Box3[T]) bool {
	return a.Equal(b)
}

func (b Box3[T]) String() string {
	return fmt.Sprintf("min(%v %v %v) max(%v %v %v)",
		b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}

// Less implements the non-total-order comparator used to order the final set
// of RCB boxes: true the moment a dimension has a.Min[i] < b.Min[i].
func Less[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] < b.Min[i] {
			return true
		}
	}
	return false
}

// Disjoint reports whether a and b share no point in any dimension.
func Disjoint[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Max[i] < b.Min[i] || b.Max[i] < a.Min[i] {
			return true
		}
	}
	return false
}

// Intersects reports closed-interval overlap in every dimension.
func Intersects[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] > b.Max[i] || a.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Overlaps reports strict overlap in every dimension.
func Overlaps[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] >= b.Max[i] || a.Max[i] <= b.Min[i] {
			return false
		}
	}
	return true
}

// Contains reports whether a's extents are >= b's in max and <= b's in min,
// inclusive.
func Contains[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] > b.Min[i] || a.Max[i] < b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsNonInclusive is Contains but strict on the max side — the
// predicate used to assign points to RCB partitions so a point on a
// partition's maximum face belongs to exactly one neighbor.
func ContainsNonInclusive[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] > b.Min[i] || a.Max[i] <= b.Max[i] {
			return false
		}
	}
	return true
}

// Covers is Contains but strict in both directions.
func Covers[T Float](a, b Box3[T]) bool {
	for i := range a.Min {
		if a.Min[i] >= b.Min[i] || a.Max[i] <= b.Max[i] {
			return false
		}
	}
	return true
}

// Nearest returns the squared Euclidean distance between the closest points
// of a and b; zero if they touch or overlap.
func Nearest[T Float](a, b Box3[T]) T {
	var distSq T
	for i := range a.Min {
		bigger := maxT(0, b.Min[i]-a.Max[i])
		smaller := maxT(0, a.Min[i]-b.Max[i])
		d := maxT(bigger, smaller)
		distSq += d * d
	}
	return distSq
}

// Centroid returns the squared Euclidean distance between box centers.
func Centroid[T Float](a, b Box3[T]) T {
	var distSq T
	for i := range a.Min {
		d := T(0.5) * (a.Max[i] + a.Min[i] - b.Max[i] - b.Min[i])
		distSq += d * d
	}
	return distSq
}

// Furthest returns the squared Euclidean distance between the farthest
// points along axes where neither box fully contains the other; axes where
// one box contains the other contribute zero.
func Furthest[T Float](a, b Box3[T]) T {
	var distSq T
	for i := range a.Min {
		if (a.Max[i] < b.Max[i]) != (b.Min[i] < a.Min[i]) {
			bigger := (b.Max[i] - a.Min[i]) * (b.Max[i] - a.Min[i])
			smaller := (b.Min[i] - a.Max[i]) * (b.Min[i] - a.Max[i])
			distSq += maxT(bigger, smaller)
		}
	}
	return distSq
}

func maxT[T Float](a, b T) T {
	if a > b {
		return a
	}
	return b
}
