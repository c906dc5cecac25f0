package exr

import (
	"runtime"
	"sync"
)

// ParallelConfig configures how row and chunk work is spread across
// goroutines. It is passed explicitly to every operation that fans out;
// there is no package-level configuration.
type ParallelConfig struct {
	// NumWorkers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum work items per worker before parallelization.
	// If total work items <= GrainSize * NumWorkers, runs sequentially.
	GrainSize int
}

// DefaultParallelConfig returns a configuration using every available CPU,
// resolved at the time of the call.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		NumWorkers: runtime.GOMAXPROCS(0),
		GrainSize:  1,
	}
}

// SequentialConfig returns a configuration that never spawns goroutines.
func SequentialConfig() ParallelConfig {
	return ParallelConfig{NumWorkers: 1, GrainSize: 1}
}

// Workers returns the number of workers the configuration will use.
func (c ParallelConfig) Workers() int {
	if c.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.NumWorkers
}

func (c ParallelConfig) sequential(n int) bool {
	w := c.Workers()
	grain := c.GrainSize
	if grain < 1 {
		grain = 1
	}
	return w == 1 || n <= grain*w
}

// For runs fn(i) for i in [0, n) and returns once every call has finished.
// Each index is visited by exactly one goroutine.
func (c ParallelConfig) For(n int, fn func(i int)) {
	c.ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}

// ForRange splits [0, n) into one contiguous range per worker and runs fn
// on each range. It returns after all ranges are done.
func (c ParallelConfig) ForRange(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if c.sequential(n) {
		fn(0, n)
		return
	}

	numWorkers := c.Workers()
	chunkSize := (n + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForWithError runs fn(i) for i in [0, n) in parallel and returns the first
// error encountered (order not guaranteed). A worker stops at its first
// failure; other workers finish their ranges.
func (c ParallelConfig) ForWithError(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if c.sequential(n) {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var errOnce sync.Once
	var firstErr error
	c.ForRange(n, func(s, e int) {
		for i := s; i < e; i++ {
			if err := fn(i); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
				return
			}
		}
	})
	return firstErr
}

// ChunkProcess runs processor for every chunk index in parallel and
// collects the results in index order.
func (c ParallelConfig) ChunkProcess(numChunks int, processor func(chunkIdx int) ([]byte, error)) ([][]byte, error) {
	results := make([][]byte, numChunks)

	err := c.ForWithError(numChunks, func(i int) error {
		data, err := processor(i)
		if err != nil {
			return err
		}
		results[i] = data
		return nil
	})

	if err != nil {
		return nil, err
	}
	return results, nil
}
