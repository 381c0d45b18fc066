package comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBarrierReleasesAllRanks(t *testing.T) {
	worlds := NewLocalWorld(4)
	var wg sync.WaitGroup
	order := make([]int, 4)
	for i, w := range worlds {
		wg.Add(1)
		go func(i int, w World) {
			defer wg.Done()
			w.Barrier()
			order[i] = i
		}(i, w)
	}
	wg.Wait()
	require.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestAllGatherCollectsEveryRank(t *testing.T) {
	worlds := NewLocalWorld(3)
	results := make([][][]byte, 3)
	var wg sync.WaitGroup
	for i, w := range worlds {
		wg.Add(1)
		go func(i int, w World) {
			defer wg.Done()
			results[i] = w.AllGather([]byte{byte(i)})
		}(i, w)
	}
	wg.Wait()
	for _, r := range results {
		require.Len(t, r, 3)
		for i, b := range r {
			require.Equal(t, byte(i), b[0])
		}
	}
}

func TestAllGatherRepeatable(t *testing.T) {
	worlds := NewLocalWorld(2)
	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		results := make([][][]byte, 2)
		for i, w := range worlds {
			wg.Add(1)
			go func(i int, w World) {
				defer wg.Done()
				results[i] = w.AllGather([]byte{byte(round), byte(i)})
			}(i, w)
		}
		wg.Wait()
		require.Equal(t, results[0], results[1])
	}
}

func TestAllReduceSums(t *testing.T) {
	worlds := NewLocalWorld(4)
	results := make([][]float64, 4)
	var wg sync.WaitGroup
	sum := func(acc, incoming []float64) {
		for i := range acc {
			acc[i] += incoming[i]
		}
	}
	for i, w := range worlds {
		wg.Add(1)
		go func(i int, w World) {
			defer wg.Done()
			results[i] = w.AllReduce([]float64{1, float64(i)}, sum)
		}(i, w)
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, []float64{4, 6}, r)
	}
}

func TestBroadcastFromRoot(t *testing.T) {
	worlds := NewLocalWorld(3)
	results := make([][]byte, 3)
	var wg sync.WaitGroup
	for i, w := range worlds {
		wg.Add(1)
		go func(i int, w World) {
			defer wg.Done()
			var payload []byte
			if i == 1 {
				payload = []byte("hello")
			}
			results[i] = w.Broadcast(1, payload)
		}(i, w)
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, []byte("hello"), r)
	}
}

func TestSendReceivePreservesOrder(t *testing.T) {
	worlds := NewLocalWorld(2)
	sender := worlds[0]
	receiver := worlds[1]

	r1 := receiver.IRecv(0, 5)
	r2 := receiver.IRecv(0, 5)
	sender.ISend(1, 5, []byte("first"))
	sender.ISend(1, 5, []byte("second"))

	require.Equal(t, []byte("first"), r1.Wait())
	require.Equal(t, []byte("second"), r2.Wait())
}
