package transition

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventTypeSystem marks events emitted by the coordinator itself rather than
// by a user or agent.
const EventTypeSystem = "system"

// EventFilter limits event queries.
type EventFilter struct {
	WorkspaceID string
	TaskID      string
	Event       string
	Limit       int
}

// MemoryEventStore keeps events in memory. Used in tests and anywhere
// durability is not needed.
type MemoryEventStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryEventStore returns an in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

// CreateSystemEvent appends a new event with a generated id.
func (s *MemoryEventStore) CreateSystemEvent(_ context.Context, workspaceID, taskID, event, message string, metadata map[string]string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Event{
		ID:          uuid.NewString(),
		Type:        EventTypeSystem,
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		Event:       event,
		Message:     message,
		Metadata:    cloneMetadata(metadata),
		Timestamp:   time.Now().UTC(),
	}
	s.events = append(s.events, e)
	return e, nil
}

// List returns filtered events in insertion order.
func (s *MemoryEventStore) List(_ context.Context, filter EventFilter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.WorkspaceID != "" && e.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.TaskID != "" && e.TaskID != filter.TaskID {
			continue
		}
		if filter.Event != "" && e.Event != filter.Event {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
