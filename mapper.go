package deppool

import "context"

// MapTasks submits one dependency-free task per input, waits for all of
// them, and returns their results in input order. It is a convenience
// layer over Pool for the common case of independent fan-out work; it adds
// nothing pool.go's SubmitTask/WaitTask don't already do individually.
//
// The first error encountered — from any task, or from ctx itself expiring
// while a later task is still awaited — is returned alongside whatever
// results had already been collected. A ctx cancellation aborts the
// remaining waits immediately rather than draining them; tasks still
// running in the pool are unaffected and their results, once settled, are
// simply never consumed.
func MapTasks[In, Out any](ctx context.Context, pool *Pool[Out], inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	handles := make([]Handle, len(inputs))
	for i, in := range inputs {
		in := in
		handles[i] = pool.SubmitTask(func(ctx context.Context) (Out, error) {
			return fn(ctx, in)
		})
	}

	results := make([]Out, len(inputs))
	var firstErr error
	for i, h := range handles {
		v, err := pool.WaitTask(ctx, h)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	return results, firstErr
}
