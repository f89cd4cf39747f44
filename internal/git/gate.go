package git

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of git subprocesses that may run
// concurrently, preventing mmap thrash on shared files (pack index,
// commit-graph) when many facade calls are issued in parallel by the
// enrichment pipeline.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate builds a gate with n permits. If n <= 0, the default of
// min(max(runtime.NumCPU(), 2), 16) is used.
func NewGate(n int) *Gate {
	if n <= 0 {
		n = runtime.NumCPU()
		if n < 2 {
			n = 2
		}
		if n > 16 {
			n = 16
		}
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n))}
}

// Release is returned by [Gate.Acquire] and must be called exactly
// once, regardless of the exit path (including panics recovered
// upstream), to give the permit back to the pool.
type Release func()

// Acquire blocks until a permit is available or ctx is done. The
// returned Release must be deferred immediately:
//
//	release, err := gate.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer release()
func (g *Gate) Acquire(ctx context.Context) (Release, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.sem.Release(1)
	}, nil
}
