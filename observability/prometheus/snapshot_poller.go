package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-deppool/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports Pool.Stats() snapshots into
// Prometheus gauges, for pools that don't route every mutation through
// core.Metrics (or for gauges that only make sense as a periodic sample,
// like graph size and ready count).
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	slots     *prom.GaugeVec
	available *prom.GaugeVec
	running   *prom.GaugeVec
	graphSize *prom.GaugeVec
	ready     *prom.GaugeVec

	stateMu sync.Mutex
	polling bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	slots := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "deppool",
		Name:      "pool_slots",
		Help:      "Configured concurrency limit per pool.",
	}, []string{"pool"})
	available := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "deppool",
		Name:      "pool_slots_available",
		Help:      "Unoccupied slots per pool.",
	}, []string{"pool"})
	running := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "deppool",
		Name:      "pool_running",
		Help:      "Tasks currently executing per pool.",
	}, []string{"pool"})
	graphSize := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "deppool",
		Name:      "pool_graph_size",
		Help:      "Live dependency-graph nodes per pool.",
	}, []string{"pool"})
	ready := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "deppool",
		Name:      "pool_ready",
		Help:      "Graph nodes currently eligible to run per pool.",
	}, []string{"pool"})

	var err error
	if slots, err = registerCollector(reg, slots); err != nil {
		return nil, err
	}
	if available, err = registerCollector(reg, available); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}
	if graphSize, err = registerCollector(reg, graphSize); err != nil {
		return nil, err
	}
	if ready, err = registerCollector(reg, ready); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:  interval,
		pools:     make(map[string]PoolSnapshotProvider),
		slots:     slots,
		available: available,
		running:   running,
		graphSize: graphSize,
		ready:     ready,
	}, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.polling {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.polling = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.polling {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.polling = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.slots.WithLabelValues(name).Set(float64(stats.Slots))
		p.available.WithLabelValues(name).Set(float64(stats.Available))
		p.running.WithLabelValues(name).Set(float64(stats.Running))
		p.graphSize.WithLabelValues(name).Set(float64(stats.GraphSize))
		p.ready.WithLabelValues(name).Set(float64(stats.Ready))
	}
}
