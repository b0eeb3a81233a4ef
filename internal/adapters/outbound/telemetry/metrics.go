package telemetry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.WorkflowMetrics = (*Metrics)(nil)

const meterName = "github.com/archon-research/aave-borrow/internal/services/borrow_workflow"

// Metrics implements WorkflowMetrics using OpenTelemetry.
type Metrics struct {
	stepDuration metric.Float64Histogram
	steps        metric.Int64Counter
	borrowAmount metric.Float64Gauge
}

// NewMetrics creates a recorder on mp, or on the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"workflow_step_duration_seconds",
		metric.WithDescription("Time taken by one borrow workflow step, including confirmation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow_step_duration_seconds histogram: %w", err)
	}

	steps, err := meter.Int64Counter(
		"workflow_steps_total",
		metric.WithDescription("Total number of borrow workflow steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow_steps_total counter: %w", err)
	}

	amount, err := meter.Float64Gauge(
		"borrow_amount_units",
		metric.WithDescription("Last sized borrow amount in the borrowed token's smallest unit"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create borrow_amount_units gauge: %w", err)
	}

	return &Metrics{stepDuration: duration, steps: steps, borrowAmount: amount}, nil
}

// RecordStep records the duration and outcome of one step.
func (m *Metrics) RecordStep(ctx context.Context, step entity.Step, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("step", string(step)),
		attribute.String("status", status),
	)
	m.stepDuration.Record(ctx, duration.Seconds(), attrs)
	m.steps.Add(ctx, 1, attrs)
}

// RecordBorrowAmount records the sized borrow. Values above 2^53 lose
// precision in the float gauge; the exact figure is in the logs.
func (m *Metrics) RecordBorrowAmount(ctx context.Context, units *big.Int) {
	if units == nil {
		return
	}
	v, _ := new(big.Float).SetInt(units).Float64()
	m.borrowAmount.Record(ctx, v)
}
