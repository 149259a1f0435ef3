package core

import (
	"context"
	"fmt"
	"time"
)

// PanicHandler is invoked when a task body panics. Pool always recovers the
// panic itself; this hook exists purely for observability.
type PanicHandler interface {
	HandlePanic(ctx context.Context, poolName string, handle Handle, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic details to stdout.
type DefaultPanicHandler struct{}

func (DefaultPanicHandler) HandlePanic(ctx context.Context, poolName string, handle Handle, panicInfo any, stackTrace []byte) {
	fmt.Printf("[pool %s] task %d panicked: %v\n%s", poolName, handle, panicInfo, stackTrace)
}

// Metrics collects observability signals from a Pool. Every method must be
// cheap and non-blocking since it is called from the driver loop and task
// epilogues while the pool lock may still be held.
type Metrics interface {
	// RecordTaskDuration records how long a task body ran for.
	RecordTaskDuration(poolName string, duration time.Duration)
	// RecordTaskPanic records a recovered panic.
	RecordTaskPanic(poolName string, panicInfo any)
	// RecordTaskCancelled records one CancelTask call that removed at least
	// one task (reason "cancel_task") or one CancelAll call (reason
	// "cancel_all"). It is called once per call, not once per removed task.
	RecordTaskCancelled(poolName string, reason string)
	// RecordSlotUtilization records slots currently occupied out of total.
	RecordSlotUtilization(poolName string, inUse, total int)
	// RecordGraphSize records the number of live nodes in the dependency graph.
	RecordGraphSize(poolName string, size int)
}

// NilMetrics discards everything. It is the pool's default.
type NilMetrics struct{}

func (NilMetrics) RecordTaskDuration(poolName string, duration time.Duration) {}
func (NilMetrics) RecordTaskPanic(poolName string, panicInfo any)             {}
func (NilMetrics) RecordTaskCancelled(poolName string, reason string)         {}
func (NilMetrics) RecordSlotUtilization(poolName string, inUse, total int)    {}
func (NilMetrics) RecordGraphSize(poolName string, size int)                  {}

// PoolConfig configures a Pool. All fields are optional; NewPoolWithConfig
// fills in defaults (no-op Logger and Metrics, DefaultPanicHandler) for
// anything left nil.
type PoolConfig[T any] struct {
	// Name identifies this pool in logs and metrics.
	Name string

	Logger       Logger
	Metrics      Metrics
	PanicHandler PanicHandler
}

// DefaultPoolConfig returns a config with no-op Logger and Metrics,
// DefaultPanicHandler, and no name.
func DefaultPoolConfig[T any]() PoolConfig[T] {
	return PoolConfig[T]{
		Logger:       NoOpLogger{},
		Metrics:      NilMetrics{},
		PanicHandler: DefaultPanicHandler{},
	}
}

func (c PoolConfig[T]) withDefaults() PoolConfig[T] {
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NilMetrics{}
	}
	if c.PanicHandler == nil {
		c.PanicHandler = DefaultPanicHandler{}
	}
	return c
}
