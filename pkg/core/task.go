package core

import (
	"time"

	"github.com/google/uuid"
)

// Phase describes where a task sits on the board.
type Phase string

const (
	PhaseBacklog   Phase = "backlog"
	PhasePlanning  Phase = "planning"
	PhaseExecuting Phase = "executing"
	PhaseReview    Phase = "review"
	PhaseCompleted Phase = "completed"
)

// ExecutionMode describes how a task's execution is driven.
type ExecutionMode string

const (
	ModeManual ExecutionMode = "manual"
	ModeAuto   ExecutionMode = "auto"
)

// PlanningStatus describes the planning sub-state of a task.
type PlanningStatus string

const (
	PlanningNone       PlanningStatus = "none"
	PlanningInProgress PlanningStatus = "in-progress"
	PlanningComplete   PlanningStatus = "complete"
)

// SkillOverrides maps a config field key (hyphenated external form, e.g.
// "max-iterations") to the raw override value for one skill.
type SkillOverrides map[string]string

// TaskSkillConfig is the skill-related slice of a task entity: which skills
// run at each hook point and any per-skill config overrides.
type TaskSkillConfig struct {
	PreExecutionSkills  []string                  `yaml:"pre-execution-skills" json:"preExecutionSkills"`
	PostExecutionSkills []string                  `yaml:"post-execution-skills" json:"postExecutionSkills"`
	ConfigOverrides     map[string]SkillOverrides `yaml:"skill-config-overrides,omitempty" json:"skillConfigOverrides,omitempty"`
}

// OverridesFor returns the override set for a skill id, or nil if none.
func (c TaskSkillConfig) OverridesFor(skillID string) SkillOverrides {
	if c.ConfigOverrides == nil {
		return nil
	}
	return c.ConfigOverrides[skillID]
}

// Task is the unit of work whose execution lifecycle Loom coordinates.
// Parsing tasks from their backing files is the persistence layer's job;
// this type carries only what the coordination core reads and writes.
type Task struct {
	ID             string
	WorkspaceID    string
	Title          string
	Phase          Phase
	Mode           ExecutionMode
	PlanningStatus PlanningStatus
	Skills         TaskSkillConfig
	CreatedAt      time.Time
	Metadata       map[string]string
}

// NewTask creates a task with a generated ID in the given workspace.
func NewTask(workspaceID, title string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Title:       title,
		Phase:       PhaseBacklog,
		Mode:        ModeManual,
		CreatedAt:   time.Now().UTC(),
	}
}
