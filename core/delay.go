package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// delayedSubmission is one entry in a delayQueue: a submission (not a task
// body) waiting to run at RunAt.
type delayedSubmission struct {
	runAt time.Time
	fire  func()
	index int
}

type delayHeap []*delayedSubmission

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].runAt.Before(h[j].runAt) }

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	item := x.(*delayedSubmission)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
func (h delayHeap) peek() *delayedSubmission {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// delayQueue schedules callbacks to fire at a future time on their own
// background goroutine, waking early whenever a new soonest entry arrives.
type delayQueue struct {
	mu     sync.Mutex
	pq     delayHeap
	wakeup chan struct{}
	cancel context.CancelFunc
}

func newDelayQueue() *delayQueue {
	ctx, cancel := context.WithCancel(context.Background())
	dq := &delayQueue{
		pq:     make(delayHeap, 0),
		wakeup: make(chan struct{}, 1),
		cancel: cancel,
	}
	go dq.loop(ctx)
	return dq
}

func (dq *delayQueue) add(delay time.Duration, fire func()) {
	dq.mu.Lock()
	item := &delayedSubmission{runAt: time.Now().Add(delay), fire: fire}
	heap.Push(&dq.pq, item)
	soonest := item.index == 0
	dq.mu.Unlock()

	if soonest {
		select {
		case dq.wakeup <- struct{}{}:
		default:
		}
	}
}

func (dq *delayQueue) loop(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		wait := dq.nextWait()
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			dq.fireExpired()
		case <-dq.wakeup:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

func (dq *delayQueue) nextWait() time.Duration {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	item := dq.pq.peek()
	if item == nil {
		return 1000 * time.Hour
	}
	if d := time.Until(item.runAt); d > 0 {
		return d
	}
	return 0
}

func (dq *delayQueue) fireExpired() {
	dq.mu.Lock()
	now := time.Now()
	var expired []*delayedSubmission
	for dq.pq.Len() > 0 {
		item := dq.pq.peek()
		if item.runAt.After(now) {
			break
		}
		expired = append(expired, heap.Pop(&dq.pq).(*delayedSubmission))
	}
	dq.mu.Unlock()

	for _, item := range expired {
		item.fire()
	}
}

func (dq *delayQueue) stop() {
	dq.cancel()
}

// delayQueueFor lazily creates the per-pool delay queue on first use, so a
// pool that never delays a submission never spawns the background
// goroutine.
func (p *Pool[T]) delayQueueFor() *delayQueue {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delayed == nil {
		p.delayed = newDelayQueue()
	}
	return p.delayed
}

// SubmitTaskAfter schedules body to be submitted (not executed) after
// delay, becoming a normal dependency-free task from that point on. The
// returned Handle is valid immediately; it simply has no incoming edges and
// no body until the delay elapses, so it is never observed as ready before
// then. CancelTask on a Handle that hasn't materialized into the graph yet
// is a no-op; the task still appears once its delay elapses.
func (p *Pool[T]) SubmitTaskAfter(delay time.Duration, body TaskBody[T]) Handle {
	h := p.reserveDelayedHandle()
	p.delayQueueFor().add(delay, func() { p.materializeDelayed(h, body, nil) })
	return h
}

// SubmitDependentTaskAfter combines SubmitTaskAfter and SubmitDependentTask:
// the node (and its dependency edge on parent) is inserted only once delay
// elapses.
func (p *Pool[T]) SubmitDependentTaskAfter(delay time.Duration, parent Handle, body TaskBody[T]) Handle {
	h := p.reserveDelayedHandle()
	p.delayQueueFor().add(delay, func() { p.materializeDelayed(h, body, &parent) })
	return h
}

// reserveDelayedHandle mints a Handle without inserting a graph node yet;
// the caller must not treat the handle as present in the graph until
// materializeDelayed runs.
func (p *Pool[T]) reserveDelayedHandle() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mintToken()
}

func (p *Pool[T]) materializeDelayed(h Handle, body TaskBody[T], parent *Handle) {
	p.mu.Lock()
	p.g.addNode(h, body, false)
	if parent != nil {
		p.g.addEdge(*parent, h)
	}
	size := p.g.size()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.cfg.Metrics.RecordGraphSize(p.cfg.Name, size)
}
