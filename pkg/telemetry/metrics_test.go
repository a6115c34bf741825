// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"testing"
)

func TestNewCoordinatorMetrics(t *testing.T) {
	metrics, err := NewCoordinatorMetrics()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	ctx := context.Background()
	// Recording against the default (no-op) meter provider must not panic.
	metrics.RecordHookInvocation(ctx, "pre", "code-review", "ok")
	metrics.RecordHookSkip(ctx, "code-review")
	metrics.RecordTransition(ctx, "executing")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *CoordinatorMetrics
	ctx := context.Background()
	metrics.RecordHookInvocation(ctx, "post", "summarize", "error")
	metrics.RecordHookSkip(ctx, "summarize")
	metrics.RecordTransition(ctx, "completed")
}
