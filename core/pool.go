package core

import (
	"context"
	"runtime/debug"
	"sync"
	"time"
)

// Pool runs task bodies of type T subject to a dependency DAG and a dynamic
// concurrency limit. Every exported method is safe for concurrent use.
//
// Internally Pool is a single coarse mutex (mu) guarding the graph, the
// process table, and the slot counters, paired with a sync.Cond (cond) that
// lets a blocking caller retry its precondition instead of busy-waiting.
// This gives every mutation the same all-or-nothing visibility a
// transactional store would, without needing one: a single-process pool
// never has more than one mutator active at a time anyway.
type Pool[T any] struct {
	cfg PoolConfig[T]

	mu   sync.Mutex
	cond *sync.Cond

	slots int
	avail int
	// tokens mints strictly increasing Handles; never reset or reused.
	tokens Handle

	g     *graph[T]
	procs map[Handle]*future[T]

	// reserved holds handles reserveReady has selected and debited a slot
	// for, but dispatch has not yet spawned/registered. A handle lives here
	// only for that narrow span; dispatch always deletes its entry, in
	// every branch, before returning.
	reserved map[Handle]struct{}

	// cancelled records handles from reserved that were cancelled while
	// orphaned between dispatch's spawn step and its second, lock-held
	// registration step, so dispatch can discover and cancel them on
	// insert instead of registering them into procs.
	cancelled map[Handle]struct{}

	// delayed lazily backs SubmitTaskAfter/SubmitDependentTaskAfter.
	delayed *delayQueue
}

// NewPool creates a Pool with slots of initial concurrency, no-op logging
// and metrics, and DefaultPanicHandler (which prints panics to stdout).
func NewPool[T any](slots int) *Pool[T] {
	return NewPoolWithConfig[T](slots, DefaultPoolConfig[T]())
}

// NewPoolWithConfig creates a Pool with the given initial concurrency and
// configuration. Any nil field in cfg gets its default (no-op Logger and
// Metrics, DefaultPanicHandler).
func NewPoolWithConfig[T any](slots int, cfg PoolConfig[T]) *Pool[T] {
	if slots < 0 {
		slots = 0
	}
	p := &Pool[T]{
		cfg:       cfg.withDefaults(),
		slots:     slots,
		avail:     slots,
		g:         newGraph[T](),
		procs:     make(map[Handle]*future[T]),
		reserved:  make(map[Handle]struct{}),
		cancelled: make(map[Handle]struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pool[T]) mintToken() Handle {
	p.tokens++
	return p.tokens
}

// Run drives dispatch until ctx is cancelled, then returns ctx.Err().
// Exactly one goroutine should call Run for a given Pool.
func (p *Pool[T]) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	for {
		ready, err := p.reserveReady(ctx)
		if err != nil {
			return err
		}
		for _, h := range ready {
			p.dispatch(ctx, h)
		}
	}
}

// reserveReady blocks until at least one node is ready and at least one
// slot is available, then atomically reserves slots for as many ready
// nodes as it finds (up to avail) and returns their handles.
func (p *Pool[T]) reserveReady(ctx context.Context) ([]Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.avail > 0 {
			ready := p.g.readyHandles(p.avail, p.procs)
			if len(ready) > 0 {
				p.avail -= len(ready)
				for _, h := range ready {
					p.reserved[h] = struct{}{}
				}
				return ready, nil
			}
		}
		p.cond.Wait()
	}
}

// dispatch spawns h's body outside the lock, then registers the resulting
// future under the lock — unless h was cancelled in the meantime, in which
// case the future is cancelled immediately but still handed to
// watchCompletion so its slot is restored the same way any other
// completion's is. Every branch clears h from reserved before returning.
func (p *Pool[T]) dispatch(ctx context.Context, h Handle) {
	p.mu.Lock()
	body, ok := p.g.bodyOf(h)
	p.mu.Unlock()
	if !ok {
		// Cancelled between selection and dispatch; the slot reserved for
		// it was never consumed by a running body, so give it back.
		p.mu.Lock()
		delete(p.reserved, h)
		delete(p.cancelled, h)
		p.avail = min(p.slots, p.avail+1)
		p.cond.Broadcast()
		p.mu.Unlock()
		return
	}

	f := spawn(ctx, h, p.instrument(h, body))

	p.mu.Lock()
	delete(p.reserved, h)
	if _, wasCancelled := p.cancelled[h]; wasCancelled {
		delete(p.cancelled, h)
		p.mu.Unlock()
		f.cancelAndDiscard()
		go p.watchCompletion(h, f)
		return
	}
	p.procs[h] = f
	p.mu.Unlock()

	go p.watchCompletion(h, f)
}

// instrument wraps body with duration and panic observability. A panic is
// re-raised so future.spawn's own recover still produces the settled
// Outcome; this hook exists only to notify Metrics/PanicHandler before that
// happens.
func (p *Pool[T]) instrument(h Handle, body TaskBody[T]) TaskBody[T] {
	return func(ctx context.Context) (v T, err error) {
		start := time.Now()
		defer func() {
			p.cfg.Metrics.RecordTaskDuration(p.cfg.Name, time.Since(start))
			if r := recover(); r != nil {
				p.cfg.Metrics.RecordTaskPanic(p.cfg.Name, r)
				p.cfg.PanicHandler.HandlePanic(ctx, p.cfg.Name, h, r, debug.Stack())
				panic(r)
			}
		}()
		return body(ctx)
	}
}

// watchCompletion waits for h's future to settle, then runs the epilogue —
// slot restore, graph mutation, and detached cleanup — atomically under the
// pool lock.
func (p *Pool[T]) watchCompletion(h Handle, f *future[T]) {
	<-f.done

	p.mu.Lock()
	detached := p.g.isDetached(h) // must read before complete() may prune h
	p.g.complete(h)
	p.avail = min(p.slots, p.avail+1)
	if detached {
		delete(p.procs, h)
	}
	inUse, total := p.slots-p.avail, p.slots
	graphSize := p.g.size()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.cfg.Metrics.RecordSlotUtilization(p.cfg.Name, inUse, total)
	p.cfg.Metrics.RecordGraphSize(p.cfg.Name, graphSize)
}

// submit is the shared insertion path for every SubmitXxx variant: mint a
// handle, insert the node, optionally add a dependency edge, all in one
// critical section so the driver loop can never observe a half-built node.
func (p *Pool[T]) submit(body TaskBody[T], detached bool, parent *Handle) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.mintToken()
	p.g.addNode(h, body, detached)
	if parent != nil {
		p.g.addEdge(*parent, h)
	}
	p.cfg.Metrics.RecordGraphSize(p.cfg.Name, p.g.size())
	p.cond.Broadcast()
	return h
}

// SubmitTask adds body as a new, dependency-free task and returns its
// Handle. The task is immediately eligible to run.
func (p *Pool[T]) SubmitTask(body TaskBody[T]) Handle {
	return p.submit(body, false, nil)
}

// SubmitTaskDetached is SubmitTask for fire-and-forget work: its result is
// discarded and its process-table entry is cleaned up automatically once it
// settles, so PollTask/WaitTask must not be called with the returned Handle.
func (p *Pool[T]) SubmitTaskDetached(body TaskBody[T]) Handle {
	return p.submit(body, true, nil)
}

// SequenceTasks adds a dependency edge so that child does not become ready
// until parent completes. If parent has already left the graph (finished
// and pruned, or cancelled), this is a documented no-op.
func (p *Pool[T]) SequenceTasks(parent, child Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.g.addEdge(parent, child)
	p.cond.Broadcast()
}

// SubmitDependentTask submits body as a new task that depends on parent,
// atomically with respect to any concurrent SubmitTask/CancelTask call.
func (p *Pool[T]) SubmitDependentTask(parent Handle, body TaskBody[T]) Handle {
	return p.submit(body, false, &parent)
}

// SubmitDependentTaskDetached combines SubmitDependentTask and
// SubmitTaskDetached.
func (p *Pool[T]) SubmitDependentTaskDetached(parent Handle, body TaskBody[T]) Handle {
	return p.submit(body, true, &parent)
}

// CancelTask removes h and every task transitively depending on it from the
// graph, and cancels any of them already running.
func (p *Pool[T]) CancelTask(h Handle) {
	p.mu.Lock()
	closure := p.g.downwardClosure(h)
	if len(closure) == 0 {
		p.mu.Unlock()
		return
	}
	toCancel := p.collectAndRemove(closure)
	p.mu.Unlock()

	for _, f := range toCancel {
		f.cancelAndDiscard()
	}
	p.cfg.Metrics.RecordTaskCancelled(p.cfg.Name, "cancel_task")
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// CancelAll removes every task from the graph and cancels every running
// body.
func (p *Pool[T]) CancelAll() {
	p.mu.Lock()
	closure := p.g.allHandles()
	toCancel := p.collectAndRemove(closure)
	p.g.reset()
	p.mu.Unlock()

	for _, f := range toCancel {
		f.cancelAndDiscard()
	}
	p.cfg.Metrics.RecordTaskCancelled(p.cfg.Name, "cancel_all")
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// collectAndRemove removes the given handles from the graph and, for each,
// either collects its running future for cancellation outside the lock, or
// — if it's in the narrow window between reserveReady selecting it and
// dispatch registering it in procs — records it in the cancelled set so
// dispatch discovers and cancels it on insert. A handle that is neither
// running nor reserved is simply pending in the graph and will never be
// dispatched now that removeSet has dropped it, so it needs no bookkeeping
// beyond that removal. Caller must hold p.mu.
func (p *Pool[T]) collectAndRemove(handles []Handle) []*future[T] {
	toCancel := make([]*future[T], 0, len(handles))
	for _, h := range handles {
		if f, ok := p.procs[h]; ok {
			delete(p.procs, h)
			toCancel = append(toCancel, f)
		} else if _, isReserved := p.reserved[h]; isReserved {
			p.cancelled[h] = struct{}{}
		}
	}
	p.g.removeSet(handles)
	return toCancel
}

// SetSlots changes the concurrency limit, taking effect immediately: a
// reduction only prevents new dispatches, it never interrupts work already
// running.
func (p *Pool[T]) SetSlots(n int) {
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	diff := n - p.slots
	p.slots = n
	if p.avail+diff < 0 {
		p.avail = 0
	} else {
		p.avail += diff
	}
	p.cfg.Logger.Info("pool slots resized", F("slots", n))
	p.cond.Broadcast()
	p.mu.Unlock()
}

// PollTaskEither returns h's Outcome without blocking. The second return
// value is false if h has not settled yet (still pending or running) — the
// caller should retry later. A settled Outcome is consumed: a later call for
// the same Handle reports it as unknown once the task has left the graph;
// while its node is still retained for dependents that have not finished,
// a later call reports it as not settled.
func (p *Pool[T]) PollTaskEither(h Handle) (Outcome[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollLocked(h)
}

func (p *Pool[T]) pollLocked(h Handle) (Outcome[T], bool) {
	if f, ok := p.procs[h]; ok {
		if out, settled := f.pollSettled(); settled {
			delete(p.procs, h)
			return out, true
		}
		return Outcome[T]{}, false
	}
	if p.g.has(h) {
		return Outcome[T]{}, false // still waiting on dependencies
	}
	return errOutcome[T](ErrUnknownTask), true
}

// WaitTaskEither blocks until h settles, is cancelled, or ctx is done. A ctx
// error is returned directly rather than as an Outcome, since it reflects
// the caller giving up, not how the task itself resolved.
func (p *Pool[T]) WaitTaskEither(ctx context.Context, h Handle) (Outcome[T], error) {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if out, ok := p.pollLocked(h); ok {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return Outcome[T]{}, err
		}
		p.cond.Wait()
	}
}

// PollTask unwraps PollTaskEither: ok is false while the task is still
// pending, err carries a failure/panic/unknown-handle/cancellation.
func (p *Pool[T]) PollTask(h Handle) (T, bool, error) {
	out, ok := p.PollTaskEither(h)
	if !ok {
		var zero T
		return zero, false, nil
	}
	return unwrap(out)
}

// WaitTask unwraps WaitTaskEither.
func (p *Pool[T]) WaitTask(ctx context.Context, h Handle) (T, error) {
	out, err := p.WaitTaskEither(ctx, h)
	if err != nil {
		var zero T
		return zero, err
	}
	v, _, taskErr := unwrap(out)
	return v, taskErr
}

func unwrap[T any](out Outcome[T]) (T, bool, error) {
	switch out.Kind {
	case OutcomeOK:
		return out.Value, true, nil
	default:
		var zero T
		return zero, true, out.Err
	}
}

// Stats returns a point-in-time snapshot of the pool's state.
func (p *Pool[T]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	unconsumed := p.countSettledLocked()
	return PoolStats{
		Name:       p.cfg.Name,
		Slots:      p.slots,
		Available:  p.avail,
		Running:    len(p.procs) - unconsumed,
		GraphSize:  p.g.size(),
		Ready:      len(p.g.readyHandles(p.g.size()+1, p.procs)),
		Unconsumed: unconsumed,
	}
}

func (p *Pool[T]) countSettledLocked() int {
	n := 0
	for _, f := range p.procs {
		if _, settled := f.pollSettled(); settled {
			n++
		}
	}
	return n
}
