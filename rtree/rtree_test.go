package rtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/geopart/hopi/bound"
	"github.com/geopart/hopi/predicate"
	"github.com/stretchr/testify/require"
)

type point struct {
	id int
	x  float64
	y  float64
	z  float64
}

func extractPoint(p point) bound.Box3[float64] {
	c := [3]float64{p.x, p.y, p.z}
	return bound.New3[float64](c, c)
}

func newTestTree(split Split) *Tree[float64, point] {
	return New[float64, point](split, 10, 4, extractPoint)
}

func TestEmptyTreeQueriesReturnNothing(t *testing.T) {
	tree := newTestTree(Quadratic)
	q := bound.New3[float64]([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	require.Empty(t, tree.Query(predicate.Intersects(q)))
	require.Empty(t, tree.Nearest(predicate.Nearest(q, 5)))
}

func TestInsertAndSpatialQuery(t *testing.T) {
	tree := newTestTree(Quadratic)
	for i := 0; i < 200; i++ {
		tree.Insert(point{id: i, x: float64(i), y: 0, z: 0})
	}
	require.Equal(t, 200, tree.Len())

	q := bound.New3[float64]([3]float64{10, -1, -1}, [3]float64{20, 1, 1})
	results := tree.Query(predicate.Intersects(q))
	ids := map[int]bool{}
	for _, r := range results {
		ids[r.id] = true
	}
	for i := 10; i <= 20; i++ {
		require.True(t, ids[i], "expected id %d in results", i)
	}
}

func TestInsertRemoveParity(t *testing.T) {
	tree := newTestTree(Quadratic)
	rng := rand.New(rand.NewSource(1))
	pts := make([]point, 50)
	for i := range pts {
		pts[i] = point{id: i, x: rng.Float64() * 100, y: rng.Float64() * 100, z: rng.Float64() * 100}
		tree.Insert(pts[i])
	}

	removeIdx := rng.Perm(50)[:20]
	removeSet := map[int]bool{}
	for _, i := range removeIdx {
		removeSet[i] = true
	}
	for _, i := range removeIdx {
		n := tree.Remove(pts[i], func(a, b point) bool { return a.id == b.id })
		require.Equal(t, 1, n)
	}
	require.Equal(t, 30, tree.Len())

	whole := bound.New3[float64]([3]float64{-1, -1, -1}, [3]float64{101, 101, 101})
	results := tree.Query(predicate.Intersects(whole))
	require.Len(t, results, 30)

	seen := map[int]int{}
	for _, r := range results {
		seen[r.id]++
		require.False(t, removeSet[r.id])
	}
	for id, count := range seen {
		require.Equal(t, 1, count, "id %d seen more than once", id)
	}
}

func TestNearestMatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := New[float64, point](Quadratic, 10, 4, extractPoint)
	pts := make([]point, 200)
	for i := range pts {
		pts[i] = point{id: i, x: rng.Float64(), y: rng.Float64(), z: rng.Float64()}
		tree.Insert(pts[i])
	}

	for q := 0; q < 50; q++ {
		target := bound.New3[float64]([3]float64{rng.Float64(), rng.Float64(), rng.Float64()}, [3]float64{0, 0, 0})
		target.Max = target.Min
		k := 7

		got := tree.Nearest(predicate.Nearest(target, k))
		require.Len(t, got, k)

		type scored struct {
			id   int
			dist float64
		}
		all := make([]scored, len(pts))
		for i, p := range pts {
			b := extractPoint(p)
			all[i] = scored{id: p.id, dist: bound.Nearest(b, target)}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

		gotIDs := map[int]bool{}
		for _, g := range got {
			gotIDs[g.id] = true
		}
		wantIDs := map[int]bool{}
		for _, a := range all[:k] {
			wantIDs[a.id] = true
		}
		require.Equal(t, wantIDs, gotIDs)
	}
}

func TestLinearSplitAlsoMaintainsInvariants(t *testing.T) {
	tree := New[float64, point](Linear, 10, 4, extractPoint)
	for i := 0; i < 300; i++ {
		tree.Insert(point{id: i, x: float64(i % 17), y: float64(i % 5), z: float64(i % 3)})
	}
	whole := bound.New3[float64]([3]float64{-1, -1, -1}, [3]float64{100, 100, 100})
	results := tree.Query(predicate.Intersects(whole))
	require.Len(t, results, 300)
}
