// Package session tracks in-flight task executions. The registry is the
// single source of truth for "is this task currently executing"; everything
// observers see is projected from it.
package session

import (
	"sync"
	"time"

	loomerrors "github.com/loomhq/loom/pkg/errors"
)

// Status is the lifecycle state of an active session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status ends the session's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Session is the registry entry for a task's current or most recent
// execution. EndTime is the zero value unless the status is terminal.
type Session struct {
	TaskID            string
	WorkspaceID       string
	Status            Status
	StartTime         time.Time
	EndTime           time.Time
	AwaitingUserInput bool
}

// IsRunning reports whether the session is actively executing.
func (s Session) IsRunning() bool {
	return s.Status == StatusRunning
}

// Registry holds at most one session per task id, protected by a single
// mutex. Task counts are small, so a coarse lock beats per-key locking.
// Sessions are stored in a map for O(1) lookup plus a slice preserving
// insertion order for stable listing. All reads return copies, never
// aliases to registry-owned memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the task. It fails with
// REGISTRY_VIOLATION if the task already has one: callers must Remove a
// finished session before starting the next execution, never overwrite.
func (r *Registry) Create(taskID, workspaceID string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[taskID]; exists {
		return Session{}, loomerrors.New(
			loomerrors.CodeRegistryViolation,
			"task already has an active session", nil,
		).WithContext("task_id", taskID)
	}
	s := &Session{
		TaskID:      taskID,
		WorkspaceID: workspaceID,
		Status:      StatusIdle,
		StartTime:   time.Now().UTC(),
	}
	r.sessions[taskID] = s
	r.order = append(r.order, taskID)
	return *s, nil
}

// SetStatus moves the session to the given status. EndTime is stamped when
// entering a terminal status and cleared when leaving one, so it is set iff
// the status is terminal.
func (r *Registry) SetStatus(taskID string, status Status) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[taskID]
	if !ok {
		return Session{}, loomerrors.NotFound("session", taskID)
	}
	s.Status = status
	if status.Terminal() {
		s.EndTime = time.Now().UTC()
	} else {
		s.EndTime = time.Time{}
	}
	return *s, nil
}

// SetAwaitingInput flags whether the agent is blocked on human input.
func (r *Registry) SetAwaitingInput(taskID string, awaiting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[taskID]
	if !ok {
		return loomerrors.NotFound("session", taskID)
	}
	s.AwaitingUserInput = awaiting
	return nil
}

// Get returns a copy of the session for the task.
func (r *Registry) Get(taskID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[taskID]
	if !ok {
		return Session{}, loomerrors.NotFound("session", taskID)
	}
	return *s, nil
}

// IsRunning reports whether the task has a session in running status.
// A missing session means not running.
func (r *Registry) IsRunning(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[taskID]
	return ok && s.Status == StatusRunning
}

// List returns copies of all sessions in insertion order.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

// ListWorkspace returns copies of the workspace's sessions in insertion order.
func (r *Registry) ListWorkspace(workspaceID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, id := range r.order {
		if s := r.sessions[id]; s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
	}
	return out
}

// Remove deletes the task's session. Returns false if none existed.
func (r *Registry) Remove(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[taskID]; !ok {
		return false
	}
	delete(r.sessions, taskID)
	for i, id := range r.order {
		if id == taskID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}
