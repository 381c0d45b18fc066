package predicate

import (
	"testing"

	"github.com/geopart/hopi/bound"
	"github.com/stretchr/testify/require"
)

func b(minx, miny, minz, maxx, maxy, maxz float64) bound.Box3[float64] {
	return bound.New3[float64]([3]float64{minx, miny, minz}, [3]float64{maxx, maxy, maxz})
}

func TestContainedByNonInclusiveSplitsSharedFace(t *testing.T) {
	left := b(0, 0, 0, 1, 1, 1)
	right := b(1, 0, 0, 2, 1, 1)

	leftPred := ContainedByNonInclusive(left)
	rightPred := ContainedByNonInclusive(right)

	pointOnSharedFace := b(1, 0.5, 0.5, 1, 0.5, 0.5)

	require.False(t, leftPred.Test(pointOnSharedFace, true))
	require.True(t, rightPred.Test(pointOnSharedFace, true))
}

func TestContainedBySwapsArguments(t *testing.T) {
	outer := b(0, 0, 0, 10, 10, 10)
	pred := ContainedBy(outer)
	inner := b(1, 1, 1, 2, 2, 2)
	require.True(t, pred.Test(inner, true))

	notContained := b(-1, 0, 0, 1, 1, 1)
	require.False(t, pred.Test(notContained, true))
}

func TestDisjointNodeTestAlwaysDescends(t *testing.T) {
	pred := Disjoint(b(0, 0, 0, 1, 1, 1))
	far := b(100, 100, 100, 101, 101, 101)
	require.True(t, pred.Test(far, false))
	require.True(t, pred.Test(far, true))
	require.False(t, pred.Test(b(0.5, 0.5, 0.5, 0.5, 0.5, 0.5), true))
}

func TestNearestDistance(t *testing.T) {
	pred := Nearest(b(0, 0, 0, 0, 0, 0), 3)
	require.Equal(t, 3, pred.Count)
	d := pred.Eval(b(1, 0, 0, 1, 0, 0), true)
	require.InDelta(t, 1.0, d, 1e-9)
}
