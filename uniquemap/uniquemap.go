// Package uniquemap deduplicates an input sequence of comparable values
// while remembering how to expand a reduced, per-unique-value result back
// out to the original duplicated layout. Promoted here to a first-class
// package per spec §4.6; the only known implementation in the original
// source lived inline in the end-to-end system test.
package uniquemap

// dup records that the value at OrigIdx is a repeat of the value first seen
// at FirstSeenIdx.
type dup struct {
	OrigIdx      int
	FirstSeenIdx int
}

// Map holds the dedup bookkeeping for one Setup call.
type Map[V comparable] struct {
	uniqueIdx    []int
	nonUniqueMap []dup
}

// Setup scans values in order, recording the first-occurrence position of
// each distinct value. Positions of later duplicates are remembered instead
// of being kept a second time.
func Setup[V comparable](values []V) *Map[V] {
	m := &Map[V]{}
	firstSeen := make(map[V]int, len(values))
	for i, v := range values {
		if j, ok := firstSeen[v]; ok {
			m.nonUniqueMap = append(m.nonUniqueMap, dup{OrigIdx: i, FirstSeenIdx: j})
		} else {
			firstSeen[v] = i
			m.uniqueIdx = append(m.uniqueIdx, i)
		}
	}
	return m
}

// NumTotal returns the number of values passed to Setup.
func (m *Map[V]) NumTotal() int { return len(m.uniqueIdx) + len(m.nonUniqueMap) }

// NumUnique returns the number of distinct values.
func (m *Map[V]) NumUnique() int { return len(m.uniqueIdx) }

// ReduceToUnique gathers, from vin (indexed like the original input), the
// positions listed in uniqueIdx, producing one entry per distinct value in
// first-occurrence order.
func ReduceToUnique[T any, V comparable](m *Map[V], vin []T) []T {
	out := make([]T, len(m.uniqueIdx))
	for i, orig := range m.uniqueIdx {
		out[i] = vin[orig]
	}
	return out
}

// ExpandToNonUnique is the inverse of ReduceToUnique: given one entry per
// distinct value (in the same order ReduceToUnique produced), reconstructs
// the full original-length sequence, copying from each duplicate's
// first-seen representative.
func ExpandToNonUnique[T any, V comparable](m *Map[V], vin []T) []T {
	out := make([]T, m.NumTotal())
	for i, orig := range m.uniqueIdx {
		out[orig] = vin[i]
	}
	for _, d := range m.nonUniqueMap {
		out[d.OrigIdx] = out[d.FirstSeenIdx]
	}
	return out
}
