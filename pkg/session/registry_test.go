package session

import (
	"errors"
	"sync"
	"testing"

	loomerrors "github.com/loomhq/loom/pkg/errors"
)

func TestCreateRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := r.Create("task-1", "ws-1")
	var le *loomerrors.LoomError
	if !errors.As(err, &le) || le.Code != loomerrors.CodeRegistryViolation {
		t.Fatalf("expected REGISTRY_VIOLATION, got %v", err)
	}

	// The original session must be untouched by the rejected create.
	s, err := r.Get("task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Status != StatusIdle {
		t.Fatalf("unexpected status: %s", s.Status)
	}
}

func TestSetStatusEndTime(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	s, err := r.SetStatus("task-1", StatusRunning)
	if err != nil {
		t.Fatalf("set running: %v", err)
	}
	if !s.EndTime.IsZero() {
		t.Fatalf("running session must not have an end time")
	}
	if !r.IsRunning("task-1") {
		t.Fatalf("expected running")
	}

	s, err = r.SetStatus("task-1", StatusCompleted)
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	if s.EndTime.IsZero() {
		t.Fatalf("terminal session must have an end time")
	}
	if r.IsRunning("task-1") {
		t.Fatalf("completed session is not running")
	}

	// Re-opening a terminal session clears the end time again.
	s, err = r.SetStatus("task-1", StatusRunning)
	if err != nil {
		t.Fatalf("set running again: %v", err)
	}
	if !s.EndTime.IsZero() {
		t.Fatalf("end time must be cleared on non-terminal status")
	}
}

func TestSetStatusIdempotentNoop(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.SetStatus("missing", StatusRunning); err == nil {
		t.Fatalf("expected not-found for unknown task")
	}
	if err := r.SetAwaitingInput("missing", true); err == nil {
		t.Fatalf("expected not-found for unknown task")
	}
}

func TestListOrderAndWorkspaceFilter(t *testing.T) {
	r := NewRegistry()
	for _, pair := range [][2]string{
		{"task-1", "ws-1"}, {"task-2", "ws-2"}, {"task-3", "ws-1"},
	} {
		if _, err := r.Create(pair[0], pair[1]); err != nil {
			t.Fatalf("create %s: %v", pair[0], err)
		}
	}

	all := r.List()
	if len(all) != 3 || all[0].TaskID != "task-1" || all[2].TaskID != "task-3" {
		t.Fatalf("expected insertion order, got %v", all)
	}

	ws1 := r.ListWorkspace("ws-1")
	if len(ws1) != 2 || ws1[0].TaskID != "task-1" || ws1[1].TaskID != "task-3" {
		t.Fatalf("unexpected workspace listing: %v", ws1)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	s, _ := r.Get("task-1")
	s.Status = StatusError

	fresh, _ := r.Get("task-1")
	if fresh.Status != StatusIdle {
		t.Fatalf("mutating a returned copy must not affect the registry")
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.Remove("task-1") {
		t.Fatalf("expected removal")
	}
	if r.Remove("task-1") {
		t.Fatalf("second removal must report false")
	}
	if len(r.List()) != 0 {
		t.Fatalf("expected empty registry")
	}
	// A new session for the same task is allowed after removal.
	if _, err := r.Create("task-1", "ws-1"); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}

func TestConcurrentCreates(t *testing.T) {
	r := NewRegistry()
	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create("task-1", "ws-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("exactly one create may win, got %d", created)
	}
}
