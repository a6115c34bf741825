// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CoordinatorMetrics tracks hook pipeline and transition activity.
// A nil *CoordinatorMetrics is safe to call: every method is a no-op.
type CoordinatorMetrics struct {
	// hookInvocations counts skill invocations by hook point and outcome.
	hookInvocations metric.Int64Counter

	// hookSkips counts post-hook skills skipped for missing hook support.
	hookSkips metric.Int64Counter

	// transitionsPersisted counts state transitions written to the event store.
	transitionsPersisted metric.Int64Counter
}

// NewCoordinatorMetrics creates the coordinator metrics set with OTEL meters.
func NewCoordinatorMetrics() (*CoordinatorMetrics, error) {
	meter := otel.Meter("loom/coordinator")

	hookInvocations, err := meter.Int64Counter(
		"loom.hooks.invocations",
		metric.WithDescription("Skill invocations by hook point and outcome"),
	)
	if err != nil {
		return nil, err
	}

	hookSkips, err := meter.Int64Counter(
		"loom.hooks.skipped",
		metric.WithDescription("Post-hook skills skipped for missing hook support"),
	)
	if err != nil {
		return nil, err
	}

	transitionsPersisted, err := meter.Int64Counter(
		"loom.transitions.persisted",
		metric.WithDescription("State transitions persisted to the event store"),
	)
	if err != nil {
		return nil, err
	}

	return &CoordinatorMetrics{
		hookInvocations:      hookInvocations,
		hookSkips:            hookSkips,
		transitionsPersisted: transitionsPersisted,
	}, nil
}

// RecordHookInvocation counts one skill invocation.
func (m *CoordinatorMetrics) RecordHookInvocation(ctx context.Context, hook, skillID, outcome string) {
	if m == nil {
		return
	}
	m.hookInvocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hook", hook),
		attribute.String("skill_id", skillID),
		attribute.String("outcome", outcome),
	))
}

// RecordHookSkip counts one skipped post-hook skill.
func (m *CoordinatorMetrics) RecordHookSkip(ctx context.Context, skillID string) {
	if m == nil {
		return
	}
	m.hookSkips.Add(ctx, 1, metric.WithAttributes(
		attribute.String("skill_id", skillID),
	))
}

// RecordTransition counts one persisted state transition.
func (m *CoordinatorMetrics) RecordTransition(ctx context.Context, phase string) {
	if m == nil {
		return
	}
	m.transitionsPersisted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
	))
}
