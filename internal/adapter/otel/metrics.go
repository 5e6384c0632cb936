package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "boardroom"

// Metrics holds all Boardroom metric instruments.
type Metrics struct {
	RunsStarted      metric.Int64Counter
	RunsCompleted    metric.Int64Counter
	RunsIncomplete   metric.Int64Counter
	ReviewerFailures metric.Int64Counter
	RoundDuration    metric.Float64Histogram
	DecisionQuality  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("boardroom.runs.started",
		metric.WithDescription("Number of deliberation runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("boardroom.runs.completed",
		metric.WithDescription("Number of deliberation runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsIncomplete, err = meter.Int64Counter("boardroom.runs.blocked_incomplete",
		metric.WithDescription("Number of runs ended by mandatory-panel degradation"))
	if err != nil {
		return nil, err
	}

	m.ReviewerFailures, err = meter.Int64Counter("boardroom.reviewer.failures",
		metric.WithDescription("Number of reviewer invocations that degraded"))
	if err != nil {
		return nil, err
	}

	m.RoundDuration, err = meter.Float64Histogram("boardroom.round.duration_seconds",
		metric.WithDescription("Collection/rebuttal phase duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.DecisionQuality, err = meter.Float64Histogram("boardroom.dqs",
		metric.WithDescription("Decision Quality Score distribution"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
