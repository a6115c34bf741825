package session

import (
	"time"

	"github.com/loomhq/loom/pkg/core"
)

// ExecutionSnapshot is the client-safe projection of one session. It carries
// no identity of its own and is recomputed on every request, never cached.
type ExecutionSnapshot struct {
	TaskID      string    `json:"taskId"`
	WorkspaceID string    `json:"workspaceId"`
	Status      Status    `json:"status"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime,omitzero"`
	IsRunning   bool      `json:"isRunning"`
}

// AttentionSummary is the per-workspace count of tasks blocked on human
// input while in the executing phase.
type AttentionSummary struct {
	WorkspaceID        string `json:"workspaceId"`
	AwaitingInputCount int    `json:"awaitingInputCount"`
}

// BuildExecutionSnapshots maps sessions to snapshots, preserving input
// order. A non-empty workspaceID filters to that workspace first.
func BuildExecutionSnapshots(sessions []Session, workspaceID string) []ExecutionSnapshot {
	out := make([]ExecutionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		if workspaceID != "" && s.WorkspaceID != workspaceID {
			continue
		}
		out = append(out, ExecutionSnapshot{
			TaskID:      s.TaskID,
			WorkspaceID: s.WorkspaceID,
			Status:      s.Status,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			IsRunning:   s.IsRunning(),
		})
	}
	return out
}

// BuildWorkspaceAttentionSummary counts, per requested workspace, the
// sessions awaiting user input whose task is currently in the executing
// phase. Phase data comes in as workspace id -> task id -> phase, supplied
// fresh by the caller. Sessions with no phase entry, a phase other than
// executing, or a workspace outside the requested set contribute nothing.
// Output preserves the order of workspaceIDs.
func BuildWorkspaceAttentionSummary(
	workspaceIDs []string,
	taskPhaseByWorkspace map[string]map[string]core.Phase,
	sessions []Session,
) []AttentionSummary {
	counts := make(map[string]int, len(workspaceIDs))
	requested := make(map[string]bool, len(workspaceIDs))
	for _, id := range workspaceIDs {
		requested[id] = true
		counts[id] = 0
	}

	for _, s := range sessions {
		if !s.AwaitingUserInput || !requested[s.WorkspaceID] {
			continue
		}
		phases := taskPhaseByWorkspace[s.WorkspaceID]
		if phases == nil {
			continue
		}
		if phases[s.TaskID] != core.PhaseExecuting {
			continue
		}
		counts[s.WorkspaceID]++
	}

	out := make([]AttentionSummary, 0, len(workspaceIDs))
	for _, id := range workspaceIDs {
		out = append(out, AttentionSummary{
			WorkspaceID:        id,
			AwaitingInputCount: counts[id],
		})
	}
	return out
}
