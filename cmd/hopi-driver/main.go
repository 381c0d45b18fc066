// Command hopi-driver is the reference end-to-end HOPI run: build a local
// communicator, scatter random target and source points across ranks, run
// RCB to partition the targets, report the resulting load balance, and
// rendezvous-exchange sources against the partition. No flags; sizes are
// compile-time constants, matching apps/main.cpp's "Bogus Data (Testing
// Only)" harness.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"

	"github.com/geopart/hopi/comm"
	"github.com/geopart/hopi/partition"
	"github.com/geopart/hopi/rendezvous"
)

const (
	numRanks     = 4    // simulated ranks (num_ranks in the original, set by mpixx::communicator::size)
	numSources   = 1000 // Ns
	cloudSize    = 50   // Nc, points requested per rendezvous target
	coordMin     = -100.0
	coordMax     = 100.0
)

func main() {
	worlds := comm.NewLocalWorld(numRanks)
	numTargets := 10000 / numRanks

	var wg sync.WaitGroup
	failed := make([]bool, numRanks)
	for rank := 0; rank < numRanks; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			if !runRank(worlds[rank], rank, numTargets) {
				failed[rank] = true
			}
		}(rank)
	}
	wg.Wait()

	for _, f := range failed {
		if f {
			os.Exit(1)
		}
	}
}

func runRank(world comm.World, rank, numTargets int) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("P:%d -- ABORTED: %v", rank, r)
		}
	}()

	rng := rand.New(rand.NewSource(int64(rank + 1)))

	targets := make([]partition.Point, numTargets)
	for i := range targets {
		targets[i] = partition.Point{
			Pos:    randPos(rng),
			Weight: 1,
		}
	}

	sources := make([]rendezvous.Source, numSources)
	for i := range sources {
		sources[i] = rendezvous.Source{Pos: randPos(rng), ID: uint64(i)}
	}

	rcb := partition.New(world)
	rcb.Init(targets, len(targets))
	rcb.Report(targets, len(targets))

	myTarget := rcb.Bounds()[rank]
	exchange := rendezvous.New(world, myTarget, rendezvous.DefaultScale)

	targetPositions := make([][3]float64, len(targets))
	for i, t := range targets {
		targetPositions[i] = t.Pos
	}
	_, unique := exchange.Run(sources, targetPositions, cloudSize)

	fmt.Printf("P:%d -- DONE -- (%d unique remote sources)\n", rank, len(unique))
	return true
}

func randPos(rng *rand.Rand) [3]float64 {
	return [3]float64{
		coordMin + rng.Float64()*(coordMax-coordMin),
		coordMin + rng.Float64()*(coordMax-coordMin),
		coordMin + rng.Float64()*(coordMax-coordMin),
	}
}
