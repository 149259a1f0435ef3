package deppool

import (
	"context"

	"github.com/Swind/go-deppool/core"
)

// NewPool creates a Pool with slots of initial concurrency, no-op logging
// and metrics, and DefaultPanicHandler (which prints panics to stdout).
func NewPool[T any](slots int) *Pool[T] {
	return core.NewPool[T](slots)
}

// NewPoolWithConfig creates a Pool with the given initial concurrency and
// configuration.
func NewPoolWithConfig[T any](slots int, cfg PoolConfig[T]) *Pool[T] {
	return core.NewPoolWithConfig[T](slots, cfg)
}

// DefaultPoolConfig returns a PoolConfig with no-op Logger and Metrics,
// DefaultPanicHandler, and no name.
func DefaultPoolConfig[T any]() PoolConfig[T] {
	return core.DefaultPoolConfig[T]()
}

// StartPool creates a Pool and immediately starts its driver loop on a new
// goroutine bound to ctx. The returned stop function cancels the driver
// loop; callers that already manage their own context can instead call
// pool.Run(ctx) directly.
func StartPool[T any](ctx context.Context, slots int) (pool *Pool[T], stop context.CancelFunc) {
	return StartPoolWithConfig[T](ctx, slots, DefaultPoolConfig[T]())
}

// StartPoolWithConfig is StartPool with an explicit PoolConfig.
func StartPoolWithConfig[T any](ctx context.Context, slots int, cfg PoolConfig[T]) (pool *Pool[T], stop context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	p := NewPoolWithConfig[T](slots, cfg)
	go p.Run(runCtx)
	return p, cancel
}
