// Package partition implements the recursive coordinate bisection (RCB)
// partitioner: per-rank weighted bisection of a point cloud against an
// MPI-style communicator, yielding one bounding box per rank (spec §4.4).
package partition

import (
	"encoding/binary"
	"log"
	"math"
	"sort"

	"github.com/geopart/hopi/bound"
	"github.com/geopart/hopi/comm"
	"github.com/geopart/hopi/predicate"
	"github.com/geopart/hopi/rtree"
)

const rcbTag = 100

// Point is one local input to RCB: a 3-D position and its weight. A zero
// Weight is treated as 1.
type Point struct {
	Pos    [3]float64
	Weight float64
}

type indexed struct {
	pos    [3]float64
	weight float64
	idx    int
}

func extractIndexed(v indexed) bound.Box3[float64] {
	return bound.New3[float64](v.pos, v.pos)
}

// RCB holds one rank's view of the partitioner: the communicator and, after
// Init, the final per-rank bounds vector.
type RCB struct {
	world  comm.World
	bounds []bound.Box3[float64]
}

// New builds an RCB bound to world. Unlike the source (which reads an
// undeclared local_count), localCount is an explicit argument wherever it is
// needed — see spec Design Notes #2.
func New(world comm.World) *RCB {
	return &RCB{world: world}
}

// Bounds returns the final per-rank bounds vector computed by Init, ordered
// by the box-less comparator and of length world.Size().
func (r *RCB) Bounds() []bound.Box3[float64] { return r.bounds }

type boxRankCount struct {
	box   bound.Box3[float64]
	ranks int
}

// Init runs the bisection loop: build a local R-tree over points, all-gather
// rank bounds into the sealed global domain, then iteratively bisect the
// work list of (box, rank-count) pairs until every box owns exactly one
// rank. localCount gives the number of points this rank holds — taken as an
// explicit parameter rather than inferred, per spec Design Notes #2.
func (r *RCB) Init(points []Point, localCount int) {
	weight := make([]float64, localCount)
	for i := 0; i < localCount; i++ {
		if i < len(points) {
			weight[i] = points[i].Weight
			if weight[i] == 0 {
				weight[i] = 1
			}
		} else {
			weight[i] = 1
		}
	}

	tree := rtree.New[float64, indexed](rtree.Quadratic, 10, 4, extractIndexed)
	for i := 0; i < localCount; i++ {
		tree.Insert(indexed{pos: points[i].Pos, weight: weight[i], idx: i})
	}

	myBound := localBound(points, localCount)
	gathered := r.world.AllGather(encodeBox(myBound))

	globalBox := decodeBox(gathered[0])
	for _, g := range gathered[1:] {
		globalBox.Stretch(decodeBox(g))
	}
	globalBox.NextLarger()

	totalPartitions := r.world.Size()
	var finalBoxes []bound.Box3[float64]
	var workList []boxRankCount
	if totalPartitions == 1 {
		finalBoxes = append(finalBoxes, globalBox)
	} else {
		workList = append(workList, boxRankCount{box: globalBox, ranks: totalPartitions})
	}

	for len(workList) > 0 {
		localSplit := make([][2]float64, len(workList)) // [splitValue*totalWeight, totalWeight]
		for i, item := range workList {
			localSplit[i] = r.localWeightedSplit(tree, weight, item)
		}

		globalSplit := r.allReduceSplitSum(localSplit)

		var next []boxRankCount
		for i, item := range workList {
			longDim := item.box.LongestDimension()
			weightedSplit := globalSplit[i][0] / globalSplit[i][1]

			lowBound := item.box
			lowBound.Max[longDim] = weightedSplit
			highBound := item.box
			highBound.Min[longDim] = weightedSplit

			smallPartition := item.ranks / 2
			largePartition := item.ranks - smallPartition

			if smallPartition == 1 {
				finalBoxes = append(finalBoxes, lowBound)
			} else {
				next = append(next, boxRankCount{box: lowBound, ranks: smallPartition})
			}
			if largePartition == 1 {
				finalBoxes = append(finalBoxes, highBound)
			} else {
				next = append(next, boxRankCount{box: highBound, ranks: largePartition})
			}
		}
		workList = next
	}

	sort.Slice(finalBoxes, func(i, j int) bool { return bound.Less(finalBoxes[i], finalBoxes[j]) })
	r.bounds = finalBoxes
}

// localWeightedSplit finds this rank's weighted-median split candidate for
// one pending box, packed as (splitValue*totalWeight, totalWeight) so the
// subsequent all-reduce sum yields a weight-weighted mean split.
func (r *RCB) localWeightedSplit(tree *rtree.Tree[float64, indexed], weight []float64, item boxRankCount) [2]float64 {
	longDim := item.box.LongestDimension()
	smallPartition := item.ranks / 2
	ratio := float64(smallPartition) / float64(item.ranks)

	contained := tree.Query(predicate.ContainedByNonInclusive(item.box))
	sort.Slice(contained, func(i, j int) bool {
		return contained[i].pos[longDim] < contained[j].pos[longDim]
	})

	if len(contained) == 0 {
		return [2]float64{0, 0}
	}

	prefix := make([]float64, len(contained))
	running := 0.0
	for i, c := range contained {
		running += c.weight
		prefix[i] = running
	}
	total := prefix[len(prefix)-1]
	threshold := ratio * total
	medianIdx := sort.Search(len(prefix), func(i int) bool { return prefix[i] > threshold })
	if medianIdx >= len(contained) {
		medianIdx = len(contained) - 1
	}
	medianValue := contained[medianIdx].pos[longDim]
	return [2]float64{medianValue * total, total}
}

// allReduceSplitSum performs the corrected RCB all-reduce: component-wise
// summation of both packed fields. The source's combiner overwrites rather
// than sums — spec §4.4/Design Notes #1 calls this out as a likely bug and
// mandates summation, which is what the surrounding weighted-mean math
// requires.
func (r *RCB) allReduceSplitSum(local [][2]float64) [][2]float64 {
	flat := make([]float64, len(local)*2)
	for i, l := range local {
		flat[2*i] = l[0]
		flat[2*i+1] = l[1]
	}
	summed := r.world.AllReduce(flat, func(acc, incoming []float64) {
		for i := range acc {
			acc[i] += incoming[i]
		}
	})
	out := make([][2]float64, len(local))
	for i := range out {
		out[i] = [2]float64{summed[2*i], summed[2*i+1]}
	}
	return out
}

// Report rebuilds a local R-tree, sums per-partition weight, all-reduces by
// summation, and on rank 0 logs partition count, min/max weight, imbalance
// ratio and factor, matching rcb.hpp::report.
func (r *RCB) Report(points []Point, localCount int) {
	weight := make([]float64, localCount)
	for i := 0; i < localCount; i++ {
		weight[i] = 1
		if i < len(points) && points[i].Weight != 0 {
			weight[i] = points[i].Weight
		}
	}
	tree := rtree.New[float64, indexed](rtree.Quadratic, 10, 4, extractIndexed)
	for i := 0; i < localCount; i++ {
		tree.Insert(indexed{pos: points[i].Pos, weight: weight[i], idx: i})
	}

	localTotal := make([]float64, len(r.bounds))
	for i, b := range r.bounds {
		contained := tree.Query(predicate.ContainedByNonInclusive(b))
		for _, c := range contained {
			localTotal[i] += c.weight
		}
	}

	globalTotal := r.world.AllReduce(localTotal, func(acc, incoming []float64) {
		for i := range acc {
			acc[i] += incoming[i]
		}
	})

	minW, maxW, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, w := range globalTotal {
		if w < minW {
			minW = w
		}
		if w > maxW {
			maxW = w
		}
		sum += w
	}
	ratio := (maxW - minW) / sum
	imbalance := maxW / minW

	if r.world.Rank() == 0 {
		log.Printf("P:%d", r.world.Rank())
		log.Printf("    Total Bounds     = %d", len(r.bounds))
		log.Printf("    Minimum Weight   = %v", minW)
		log.Printf("    Maximum Weight   = %v", maxW)
		log.Printf("    Weight Ratio     = %v", ratio)
		log.Printf("    Weight Imbalance = %v", imbalance)
	}
	r.world.Barrier()
}

func localBound(points []Point, localCount int) bound.Box3[float64] {
	b := bound.Empty[float64]()
	for i := 0; i < localCount; i++ {
		p := bound.New3[float64](points[i].Pos, points[i].Pos)
		b.Stretch(p)
	}
	return b
}

func encodeBox(b bound.Box3[float64]) []byte {
	buf := make([]byte, 48)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(b.Min[i]))
	}
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint64(buf[24+i*8:], math.Float64bits(b.Max[i]))
	}
	return buf
}

func decodeBox(data []byte) bound.Box3[float64] {
	var b bound.Box3[float64]
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	for i := 0; i < 3; i++ {
		b.Max[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[24+i*8:]))
	}
	return b
}
