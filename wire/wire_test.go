package wire

import (
	"testing"

	"github.com/geopart/hopi/bound"
	"github.com/stretchr/testify/require"
)

func b(x float64) bound.Box3[float64] {
	c := [3]float64{x, x + 1, x + 2}
	return bound.New3[float64](c, [3]float64{x + 3, x + 4, x + 5})
}

func TestPlanRoundTrip(t *testing.T) {
	in := []PlanRecord{
		{Bound: b(1), ID: 42},
		{Bound: b(100), ID: 7},
	}
	out, err := DecodePlan(EncodePlan(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSourcesRoundTrip(t *testing.T) {
	in := []SourceRecord{
		{Bound: b(1), Rank: 3, ID: 42},
		{Bound: b(-5), Rank: 0, ID: 9999999999},
	}
	out, err := DecodeSources(EncodeSources(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEmptyRoundTrip(t *testing.T) {
	out, err := DecodePlan(EncodePlan(nil))
	require.NoError(t, err)
	require.Empty(t, out)
}
