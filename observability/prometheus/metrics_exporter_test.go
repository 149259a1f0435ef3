package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("deppool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("pool-a", 250*time.Millisecond)
	exporter.RecordTaskPanic("pool-a", "panic")
	exporter.RecordTaskCancelled("pool-a", "cancel_task")
	exporter.RecordSlotUtilization("pool-a", 3, 4)
	exporter.RecordGraphSize("pool-a", 7)

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("pool-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	cancelled := testutil.ToFloat64(exporter.taskCancelledTotal.WithLabelValues("pool-a", "cancel_task"))
	if cancelled != 1 {
		t.Fatalf("cancelled total = %v, want 1", cancelled)
	}

	inUse := testutil.ToFloat64(exporter.slotsInUse.WithLabelValues("pool-a"))
	if inUse != 3 {
		t.Fatalf("slots in use = %v, want 3", inUse)
	}
	total := testutil.ToFloat64(exporter.slotsTotal.WithLabelValues("pool-a"))
	if total != 4 {
		t.Fatalf("slots total = %v, want 4", total)
	}

	graphSize := testutil.ToFloat64(exporter.graphSize.WithLabelValues("pool-a"))
	if graphSize != 7 {
		t.Fatalf("graph size = %v, want 7", graphSize)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("pool-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("deppool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("deppool", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("pool-a", nil)
	second.RecordTaskPanic("pool-a", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("pool-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
