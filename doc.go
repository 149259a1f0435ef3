// Package deppool provides a dependency-aware task pool for Go.
//
// A Pool runs task bodies subject to two constraints: a dynamically
// adjustable concurrency limit, and an arbitrary dependency DAG among the
// submitted tasks. A task becomes eligible to run only once every task it
// depends on has completed; results are retained until the caller polls or
// waits for them.
//
// # Quick Start
//
//	p := deppool.NewPool[int](4) // 4 concurrent slots
//	ctx, cancel := context.WithCancel(context.Background())
//	go p.Run(ctx)
//	defer cancel()
//
//	fetch := p.SubmitTask(func(ctx context.Context) (int, error) {
//		return 42, nil
//	})
//	double := p.SubmitDependentTask(fetch, func(ctx context.Context) (int, error) {
//		v, err := p.WaitTask(ctx, fetch)
//		if err != nil {
//			return 0, err
//		}
//		return v * 2, nil
//	})
//	result, err := p.WaitTask(ctx, double)
//
// # Key Concepts
//
// Handle identifies a submitted task. SubmitTask starts a task with no
// dependencies; SubmitDependentTask starts one that depends on another;
// SequenceTasks adds a dependency edge between two already-submitted tasks.
// The Detached variants are fire-and-forget: their result is discarded and
// their bookkeeping entry is cleaned up automatically.
//
// CancelTask removes a task and everything transitively depending on it.
// SetSlots changes the concurrency limit at any time.
//
// # Thread Safety
//
// Every exported method on Pool is safe to call concurrently from multiple
// goroutines, including from inside a running task body.
//
// For more details, see the core package's Pool type.
package deppool
