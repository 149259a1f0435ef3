package deppool

import "github.com/Swind/go-deppool/core"

// Re-export the core package's types so most callers only need to import
// the deppool package.

// Handle identifies a submitted task.
type Handle = core.Handle

// TaskBody is the unit of work a caller submits.
type TaskBody[T any] = core.TaskBody[T]

// Outcome is the tagged result of a settled task.
type Outcome[T any] = core.Outcome[T]

// OutcomeKind classifies how a task settled.
type OutcomeKind = core.OutcomeKind

const (
	OutcomeOK  = core.OutcomeOK
	OutcomeErr = core.OutcomeErr
)

// Pool is the dependency-aware task pool itself.
type Pool[T any] = core.Pool[T]

// PoolConfig configures a Pool's logging, metrics, and panic handling.
type PoolConfig[T any] = core.PoolConfig[T]

// PoolStats is a runtime snapshot of a Pool.
type PoolStats = core.PoolStats

// Logger, Field, and the default implementations, re-exported for callers
// wiring up PoolConfig without importing core directly.
type Logger = core.Logger
type Field = core.Field
type DefaultLogger = core.DefaultLogger
type NoOpLogger = core.NoOpLogger

var F = core.F

// Metrics and PanicHandler, likewise re-exported.
type Metrics = core.Metrics
type PanicHandler = core.PanicHandler

// RetryPolicy controls WithRetry's backoff.
type RetryPolicy = core.RetryPolicy

var (
	DefaultRetryPolicy = core.DefaultRetryPolicy
	NoRetry            = core.NoRetry
)

// WithRetry wraps body so the pool sees a single task that internally
// re-attempts on failure. See core.WithRetry for details.
func WithRetry[T any](body TaskBody[T], policy RetryPolicy, logger Logger) TaskBody[T] {
	return core.WithRetry(body, policy, logger)
}

// Sentinel errors.
var (
	ErrUnknownTask = core.ErrUnknownTask
)
