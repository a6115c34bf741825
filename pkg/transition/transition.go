// Package transition audits task lifecycle changes. A transition is logged
// only when the before/after state snapshots actually differ, persisted as a
// structured system event, and optionally fanned out to workspace
// subscribers.
package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhq/loom/pkg/core"
	loomerrors "github.com/loomhq/loom/pkg/errors"
	"github.com/loomhq/loom/pkg/telemetry"
)

// StateSnapshot is a task's point-in-time execution state. It is never
// persisted as its own entity; only the audit event derived from a changed
// pair is.
type StateSnapshot struct {
	Mode           core.ExecutionMode
	Phase          core.Phase
	PlanningStatus core.PlanningStatus
}

// Equal reports field-wise equality.
func (s StateSnapshot) Equal(other StateSnapshot) bool {
	return s.Mode == other.Mode &&
		s.Phase == other.Phase &&
		s.PlanningStatus == other.PlanningStatus
}

// EventKindPhaseChange is the event kind under which transitions persist.
const EventKindPhaseChange = "phase-change"

// Event is a persisted system event.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	WorkspaceID string            `json:"workspaceId"`
	TaskID      string            `json:"taskId"`
	Event       string            `json:"event"`
	Message     string            `json:"message"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// EventStore persists system events. Implementations own their durability;
// the logger propagates store errors unmodified and never retries.
type EventStore interface {
	CreateSystemEvent(ctx context.Context, workspaceID, taskID, event, message string, metadata map[string]string) (Event, error)
}

// BroadcastMessage wraps a persisted event for workspace subscribers.
type BroadcastMessage struct {
	Type  string `json:"type"`
	Entry Event  `json:"entry"`
}

// Broadcaster delivers a message to workspace subscribers. The transport is
// the surrounding system's concern.
type Broadcaster func(BroadcastMessage)

// Logger compares lifecycle snapshots and records the transitions between
// them.
type Logger struct {
	store   EventStore
	logger  *slog.Logger
	metrics *telemetry.CoordinatorMetrics
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithLogger sets the slog logger.
func WithLogger(logger *slog.Logger) LoggerOption {
	return func(l *Logger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the coordinator metrics sink.
func WithMetrics(metrics *telemetry.CoordinatorMetrics) LoggerOption {
	return func(l *Logger) {
		l.metrics = metrics
	}
}

// NewLogger creates a transition logger. A nil store disables persistence:
// transitions are then neither recorded nor broadcast.
func NewLogger(store EventStore, opts ...LoggerOption) *Logger {
	l := &Logger{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogTransition persists and broadcasts one state change.
//
// Identical from/to snapshots are a no-op: nothing is persisted, the
// broadcaster is not called, and the returned event is nil. This makes
// repeated identical calls idempotent. Otherwise a phase-change system event
// is persisted carrying the new state in tagged textual form, and the
// broadcaster, when given, is invoked exactly once with the persisted entry
// after persistence succeeds.
func (l *Logger) LogTransition(
	ctx context.Context,
	workspaceID, taskID string,
	from, to StateSnapshot,
	source, reason string,
	broadcast Broadcaster,
) (*Event, error) {
	if from.Equal(to) {
		return nil, nil
	}
	if l.store == nil {
		return nil, nil
	}

	message := fmt.Sprintf(
		"<state>%s</state> <mode>%s</mode> <planning_status>%s</planning_status>",
		to.Phase, to.Mode, to.PlanningStatus,
	)
	metadata := map[string]string{
		"kind":   "state-transition",
		"source": source,
		"reason": reason,
	}

	event, err := l.store.CreateSystemEvent(ctx, workspaceID, taskID, EventKindPhaseChange, message, metadata)
	if err != nil {
		return nil, loomerrors.New(loomerrors.CodePersistenceFailure, "persisting state transition", err).
			WithContext("task_id", taskID)
	}

	l.metrics.RecordTransition(ctx, string(to.Phase))
	l.logger.Info("state transition",
		slog.String("task_id", taskID),
		slog.String("workspace_id", workspaceID),
		slog.String("from_phase", string(from.Phase)),
		slog.String("to_phase", string(to.Phase)),
		slog.String("source", source),
	)

	if broadcast != nil {
		broadcast(BroadcastMessage{Type: "activity:entry", Entry: event})
	}
	return &event, nil
}
