package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-deppool/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskCancelledTotal  *prom.CounterVec
	slotsInUse          *prom.GaugeVec
	slotsTotal          *prom.GaugeVec
	graphSize           *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "deppool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"pool"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"pool"})
	cancelledVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_cancelled_total",
		Help:      "Total number of CancelTask/CancelAll calls.",
	}, []string{"pool", "reason"})
	slotsInUseVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "slots_in_use",
		Help:      "Slots currently occupied by a running task.",
	}, []string{"pool"})
	slotsTotalVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "slots_total",
		Help:      "Configured concurrency limit.",
	}, []string{"pool"})
	graphSizeVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_size",
		Help:      "Live nodes in the dependency graph.",
	}, []string{"pool"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if cancelledVec, err = registerCollector(reg, cancelledVec); err != nil {
		return nil, err
	}
	if slotsInUseVec, err = registerCollector(reg, slotsInUseVec); err != nil {
		return nil, err
	}
	if slotsTotalVec, err = registerCollector(reg, slotsTotalVec); err != nil {
		return nil, err
	}
	if graphSizeVec, err = registerCollector(reg, graphSizeVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskCancelledTotal:  cancelledVec,
		slotsInUse:          slotsInUseVec,
		slotsTotal:          slotsTotalVec,
		graphSize:           graphSizeVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(poolName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(poolName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(poolName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(poolName, "unknown")).Inc()
}

// RecordTaskCancelled records task cancellation events.
func (m *MetricsExporter) RecordTaskCancelled(poolName string, reason string) {
	if m == nil {
		return
	}
	m.taskCancelledTotal.WithLabelValues(normalizeLabel(poolName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordSlotUtilization records slots currently occupied out of total.
func (m *MetricsExporter) RecordSlotUtilization(poolName string, inUse, total int) {
	if m == nil {
		return
	}
	label := normalizeLabel(poolName, "unknown")
	m.slotsInUse.WithLabelValues(label).Set(float64(inUse))
	m.slotsTotal.WithLabelValues(label).Set(float64(total))
}

// RecordGraphSize records the number of live dependency-graph nodes.
func (m *MetricsExporter) RecordGraphSize(poolName string, size int) {
	if m == nil {
		return
	}
	m.graphSize.WithLabelValues(normalizeLabel(poolName, "unknown")).Set(float64(size))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
