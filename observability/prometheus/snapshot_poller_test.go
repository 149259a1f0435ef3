package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-deppool/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

func TestSnapshotPoller_CollectsPoolStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddPool("pool-a", poolStub{stats: core.PoolStats{
		Slots:     4,
		Available: 2,
		Running:   2,
		GraphSize: 6,
		Ready:     1,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		running := testutil.ToFloat64(poller.running.WithLabelValues("pool-a"))
		graphSize := testutil.ToFloat64(poller.graphSize.WithLabelValues("pool-a"))
		return running == 2 && graphSize == 6
	})

	if got := testutil.ToFloat64(poller.slots.WithLabelValues("pool-a")); got != 4 {
		t.Fatalf("slots gauge = %v, want 4", got)
	}
	if got := testutil.ToFloat64(poller.available.WithLabelValues("pool-a")); got != 2 {
		t.Fatalf("available gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.ready.WithLabelValues("pool-a")); got != 1 {
		t.Fatalf("ready gauge = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
