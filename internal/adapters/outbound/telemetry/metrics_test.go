package telemetry

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func TestMetrics_RecordStep(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStep(ctx, entity.StepDeposit, 2*time.Second, nil)
	m.RecordStep(ctx, entity.StepDeposit, time.Second, nil)
	m.RecordStep(ctx, entity.StepBorrow, time.Second, errors.New("reverted"))

	metrics := collect(t, reader)

	counter, ok := metrics["workflow_steps_total"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("workflow_steps_total has type %T", metrics["workflow_steps_total"].Data)
	}
	counts := map[string]int64{}
	for _, dp := range counter.DataPoints {
		step, _ := dp.Attributes.Value(attribute.Key("step"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		counts[step.AsString()+"/"+status.AsString()] = dp.Value
	}
	if counts["deposit/success"] != 2 || counts["borrow/error"] != 1 {
		t.Errorf("step counts = %v", counts)
	}

	hist, ok := metrics["workflow_step_duration_seconds"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("workflow_step_duration_seconds has type %T", metrics["workflow_step_duration_seconds"].Data)
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("histogram count = %d, want 3", total)
	}
}

func TestMetrics_RecordBorrowAmount(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordBorrowAmount(context.Background(), nil)
	m.RecordBorrowAmount(context.Background(), big.NewInt(9500))

	gauge, ok := collect(t, reader)["borrow_amount_units"].Data.(metricdata.Gauge[float64])
	if !ok {
		t.Fatal("borrow_amount_units not recorded as a float gauge")
	}
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 9500 {
		t.Errorf("gauge data points = %+v", gauge.DataPoints)
	}
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()

	shutdownTracer, err := InitTracer(ctx, TracerConfig{})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		t.Errorf("tracer shutdown: %v", err)
	}

	shutdownMetrics, err := InitMetrics(ctx, MetricConfig{})
	if err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	if err := shutdownMetrics(ctx); err != nil {
		t.Errorf("metrics shutdown: %v", err)
	}
}
