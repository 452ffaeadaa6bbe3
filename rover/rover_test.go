package rover

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchAdd(t *testing.T) {
	var r Rover
	prior := r.FetchAdd(10)
	assert.Equal(t, uint64(0), prior)
	assert.Equal(t, uint64(10), r.Load())

	prior = r.FetchAdd(5)
	assert.Equal(t, uint64(10), prior)
	assert.Equal(t, uint64(15), r.Load())
}

func TestFetchAddConcurrent(t *testing.T) {
	var r Rover
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.FetchAdd(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), r.Load())
}

func TestCompareAndSwap(t *testing.T) {
	var r Rover
	r.Store(5)

	assert.False(t, r.CompareAndSwap(0, 10), "stale expected value must not swap")
	assert.Equal(t, uint64(5), r.Load())

	assert.True(t, r.CompareAndSwap(5, 10))
	assert.Equal(t, uint64(10), r.Load())
}

func TestWrappingDifference(t *testing.T) {
	assert.Equal(t, uint64(5), WrappingDifference(10, 5))
	assert.Equal(t, uint64(0), WrappingDifference(5, 10), "b ahead of a saturates at zero")
	assert.Equal(t, uint64(0), WrappingDifference(5, 5))
}

func TestWrappingDifferenceWraparound(t *testing.T) {
	const max = ^uint64(0)
	// a has wrapped just past zero; b sits near the top of the space. The
	// unsigned difference would be huge, but interpreted as signed the gap
	// is small and positive.
	a := uint64(2)
	b := max - 1
	assert.Equal(t, uint64(4), WrappingDifference(a, b))
}
