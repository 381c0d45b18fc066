package rendezvous

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/geopart/hopi/bound"
	"github.com/geopart/hopi/comm"
	"github.com/stretchr/testify/require"
)

// TestFourRankExchangeCrossesBoundaries partitions [0,1]^3 into four
// axis-aligned slabs (one per rank), fills each slab with scattered filler
// points plus one deliberately-placed point just across each internal
// boundary, and checks that a target query near a boundary picks up the
// neighboring rank's boundary point after the exchange.
func TestFourRankExchangeCrossesBoundaries(t *testing.T) {
	const numRanks = 4
	const filler = 60
	slabWidth := 1.0 / float64(numRanks)

	worlds := comm.NewLocalWorld(numRanks)

	targetBounds := make([]bound.Box3[float64], numRanks)
	localSources := make([][]Source, numRanks)
	const boundaryID = uint64(9999)

	for rank := 0; rank < numRanks; rank++ {
		lo := float64(rank) * slabWidth
		hi := lo + slabWidth
		targetBounds[rank] = bound.New3[float64](
			[3]float64{lo, 0, 0},
			[3]float64{hi, 1, 1},
		)

		rng := rand.New(rand.NewSource(int64(100 + rank)))
		pts := make([]Source, 0, filler+1)
		for i := 0; i < filler; i++ {
			pts = append(pts, Source{
				Pos: [3]float64{lo + rng.Float64()*slabWidth, rng.Float64(), rng.Float64()},
				ID:  uint64(i),
			})
		}
		// A point just inside this slab, near its lower boundary, that the
		// previous rank's expanded target bound should pick up.
		if rank > 0 {
			pts = append(pts, Source{Pos: [3]float64{lo + 0.01*slabWidth, 0.5, 0.5}, ID: boundaryID})
		}
		localSources[rank] = pts
	}

	unique := make([][]RemoteSource, numRanks)
	var wg sync.WaitGroup
	for rank := 0; rank < numRanks; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			ex := New(worlds[rank], targetBounds[rank], DefaultScale)
			hi := targetBounds[rank].Max[0]
			targets := [][3]float64{{hi - 0.001*slabWidth, 0.5, 0.5}}
			_, u := ex.Run(localSources[rank], targets, 10)
			unique[rank] = u
		}(rank)
	}
	wg.Wait()

	for rank := 0; rank < numRanks-1; rank++ {
		found := false
		for _, r := range unique[rank] {
			if r.Rank == rank+1 && r.ID == boundaryID {
				found = true
			}
		}
		require.True(t, found, "rank %d did not receive neighboring rank's boundary point", rank)
	}
}

func TestDedupTargetsRoundTrips(t *testing.T) {
	targets := [][3]float64{
		{1, 2, 3},
		{4, 5, 6},
		{1, 2, 3},
		{7, 8, 9},
	}
	unique, m := DedupTargets(targets)
	require.Len(t, unique, 3)
	require.Equal(t, 4, m.NumTotal())
	require.Equal(t, 3, m.NumUnique())
}
