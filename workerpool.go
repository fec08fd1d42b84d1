package registry

import "sync"

// MapPool applies fn to every element of input using a bounded number of
// goroutines, returning results in the same order as input regardless of
// completion order, grounded on original_source's ThreadPool.map (an
// index-tagged input queue and an index-tagged result queue) and the
// teacher's fastest-tcp.go channel-fan-in idiom. A panicking fn leaves that
// slot's result at its zero value instead of crashing the pool or the
// caller, matching ThreadPool.map's behavior of storing None on error.
func MapPool[T, R any](workers int, input []T, fn func(T) R) []R {
	if workers < 1 {
		workers = 1
	}
	type job struct {
		idx int
		val T
	}
	jobs := make(chan job)
	results := make([]R, len(input))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = safeCall(fn, j.val)
			}
		}()
	}

	for i, v := range input {
		jobs <- job{idx: i, val: v}
	}
	close(jobs)
	wg.Wait()

	return results
}

// safeCall invokes fn and recovers a panic into the zero value of R, so one
// bad worker invocation never takes down the whole pool.
func safeCall[T, R any](fn func(T) R, val T) (result R) {
	defer func() {
		if r := recover(); r != nil {
			Log.Error("worker pool task panicked", "panic", r)
		}
	}()
	return fn(val)
}
