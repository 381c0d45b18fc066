package uniquemap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	values := []int{10, 20, 10, 30, 20, 10}
	m := Setup(values)
	require.Equal(t, 6, m.NumTotal())
	require.Equal(t, 3, m.NumUnique())

	unique := ReduceToUnique[int](m, values)
	expanded := ExpandToNonUnique[int](m, unique)
	require.Equal(t, values, expanded)
}

func TestAllUnique(t *testing.T) {
	values := []string{"a", "b", "c"}
	m := Setup(values)
	require.Equal(t, 3, m.NumUnique())
	require.Empty(t, m.nonUniqueMap)
}

func TestAllDuplicate(t *testing.T) {
	values := []int{7, 7, 7, 7}
	m := Setup(values)
	require.Equal(t, 1, m.NumUnique())
	unique := ReduceToUnique[int](m, values)
	require.Equal(t, []int{7}, unique)
	expanded := ExpandToNonUnique[int](m, unique)
	require.Equal(t, values, expanded)
}
