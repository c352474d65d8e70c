package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the workflow and the stores.
type Metrics struct {
	workflowRuns     metric.Int64Counter
	workflowFailures metric.Int64Counter
	fallbacks        metric.Int64Counter
	recipeLookups    metric.Int64Counter
	flushErrors      metric.Int64Counter
	sessionsExpired  metric.Int64Counter
	workflowDuration metric.Float64Histogram
}

func newMetrics(m metric.Meter) *Metrics {
	mt := &Metrics{}
	mt.workflowRuns, _ = m.Int64Counter("workflow_runs_total",
		metric.WithDescription("Total number of workflow runs started"))
	mt.workflowFailures, _ = m.Int64Counter("workflow_failures_total",
		metric.WithDescription("Workflow runs aborted because the session could not be resolved"))
	mt.fallbacks, _ = m.Int64Counter("workflow_fallbacks_total",
		metric.WithDescription("Worker calls that degraded to a fallback value"))
	mt.recipeLookups, _ = m.Int64Counter("recipe_lookups_total",
		metric.WithDescription("Per-meal recipe lookups by outcome"))
	mt.flushErrors, _ = m.Int64Counter("memorybank_flush_errors_total",
		metric.WithDescription("Snapshot saves that failed"))
	mt.sessionsExpired, _ = m.Int64Counter("sessions_expired_total",
		metric.WithDescription("Sessions evicted after idling past the timeout"))
	mt.workflowDuration, _ = m.Float64Histogram("workflow_duration_seconds",
		metric.WithDescription("Duration of workflow runs in seconds"))
	return mt
}

func (m *Metrics) WorkflowStarted(ctx context.Context) {
	m.workflowRuns.Add(ctx, 1)
}

func (m *Metrics) WorkflowFailed(ctx context.Context) {
	m.workflowFailures.Add(ctx, 1)
}

func (m *Metrics) WorkflowFinished(ctx context.Context, seconds float64) {
	m.workflowDuration.Record(ctx, seconds)
}

func (m *Metrics) Fallback(ctx context.Context, stage string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) RecipeLookup(ctx context.Context, status string) {
	m.recipeLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) FlushError(ctx context.Context) {
	m.flushErrors.Add(ctx, 1)
}

func (m *Metrics) SessionsExpired(ctx context.Context, n int) {
	if n > 0 {
		m.sessionsExpired.Add(ctx, int64(n))
	}
}
