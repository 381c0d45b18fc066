// Package tmultiset implements an ordered multiset capped to its K
// smallest keys, truncating after every insertion.
package tmultiset

import "sort"

// Entry pairs an ordering key with its carried value.
type Entry[K Ordered, V any] struct {
	Key   K
	Value V
}

// Ordered is the set of key kinds usable as a TruncatedMultiSet key.
type Ordered interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64 | ~uint | ~uint32 | ~uint64
}

// TruncatedMultiSet holds, at all times, no more than Count entries: the
// ones with the smallest keys seen so far. It is the ordered structure
// behind the R-tree's best-first k-NN traversal (spec §4.3).
type TruncatedMultiSet[K Ordered, V any] struct {
	count   int
	entries []Entry[K, V]
}

// New returns a TruncatedMultiSet capped at count entries. A non-positive
// count means unbounded, matching the source's default of
// numeric_limits<difference_type>::max().
func New[K Ordered, V any](count int) *TruncatedMultiSet[K, V] {
	return &TruncatedMultiSet[K, V]{count: count}
}

func (s *TruncatedMultiSet[K, V]) Len() int    { return len(s.entries) }
func (s *TruncatedMultiSet[K, V]) Empty() bool { return len(s.entries) == 0 }

// Clear empties the set. The source declares this `const noexcept` while
// mutating _data_set — a defect (spec Design Notes #3); here it is a
// correctly mutating method.
func (s *TruncatedMultiSet[K, V]) Clear() {
	s.entries = s.entries[:0]
}

// Insert adds an entry in sorted-key order, then truncates past Count.
func (s *TruncatedMultiSet[K, V]) Insert(key K, value V) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Key >= key })
	s.entries = append(s.entries, Entry[K, V]{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = Entry[K, V]{Key: key, Value: value}
	s.truncate()
}

func (s *TruncatedMultiSet[K, V]) truncate() {
	if s.count > 0 && len(s.entries) > s.count {
		s.entries = s.entries[:s.count]
	}
}

// Entries returns the current sorted contents. The slice is owned by the
// set; callers must not mutate it.
func (s *TruncatedMultiSet[K, V]) Entries() []Entry[K, V] {
	return s.entries
}

// Max returns the largest key currently held and whether the set is
// non-empty. Used to tighten the k-NN search radius once the set is full.
func (s *TruncatedMultiSet[K, V]) Max() (K, bool) {
	if len(s.entries) == 0 {
		var zero K
		return zero, false
	}
	return s.entries[len(s.entries)-1].Key, true
}

// Full reports whether the set has reached its capacity.
func (s *TruncatedMultiSet[K, V]) Full() bool {
	return s.count > 0 && len(s.entries) >= s.count
}
