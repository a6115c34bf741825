package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loomhq/loom/pkg/core"
	loomerrors "github.com/loomhq/loom/pkg/errors"
	"github.com/loomhq/loom/pkg/skills"
	"github.com/loomhq/loom/pkg/telemetry"
)

type recordingSession struct {
	prompts []string
	failOn  string
	err     error
}

func (s *recordingSession) Prompt(_ context.Context, content string) error {
	if s.failOn != "" && strings.Contains(content, s.failOn) {
		return s.err
	}
	s.prompts = append(s.prompts, content)
	return nil
}

func writeSkill(t *testing.T, root, dir, content string) {
	t.Helper()
	skillDir := filepath.Join(root, dir)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func testCatalog(t *testing.T) *skills.Catalog {
	t.Helper()
	root := t.TempDir()
	writeSkill(t, root, "lint", "---\nname: Lint\ndescription: a\nhooks: [pre]\n---\nRun the linter.\n")
	writeSkill(t, root, "plan-check", "---\nname: Plan Check\ndescription: a\nhooks: [pre]\nconfig:\n  - key: depth\n    default: shallow\n---\nCheck the plan at {{depth}} depth.\n")
	writeSkill(t, root, "summarize", "---\nname: Summarize\ndescription: a\nhooks: [post]\n---\nSummarize the run.\n")
	writeSkill(t, root, "pre-only", "---\nname: Pre Only\ndescription: a\nhooks: [pre]\n---\nPre only body.\n")
	catalog := skills.NewCatalog([]skills.Root{{Path: root, Source: skills.SourceBuiltin}})
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return catalog
}

func TestRunPreExecutionSkillsInOrder(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	cfg := core.TaskSkillConfig{
		ConfigOverrides: map[string]core.SkillOverrides{
			"plan-check": {"depth": "deep"},
		},
	}
	err := pipeline.RunPreExecutionSkills(context.Background(), session, []string{"lint", "plan-check"}, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(session.prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(session.prompts))
	}
	if session.prompts[0] != "Run the linter." {
		t.Fatalf("unexpected first prompt: %q", session.prompts[0])
	}
	if session.prompts[1] != "Check the plan at deep depth." {
		t.Fatalf("overrides must render into the prompt: %q", session.prompts[1])
	}
}

func TestRunPreExecutionSkillsUnsupportedHookFails(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	err := pipeline.RunPreExecutionSkills(context.Background(), session, []string{"summarize"}, core.TaskSkillConfig{})
	if err == nil {
		t.Fatalf("expected failure for skill without pre hook")
	}
	if !loomerrors.HasCode(err, loomerrors.CodeUnsupportedHook) {
		t.Fatalf("expected UNSUPPORTED_HOOK, got %v", err)
	}
	if !strings.Contains(err.Error(), "pre-execution hook") {
		t.Fatalf("error must name the pre-execution hook: %v", err)
	}
	if len(session.prompts) != 0 {
		t.Fatalf("prompt channel must never be invoked, got %v", session.prompts)
	}
}

func TestRunPreExecutionSkillsUnknownID(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	err := pipeline.RunPreExecutionSkills(context.Background(), session, []string{"missing"}, core.TaskSkillConfig{})
	if !loomerrors.HasCode(err, loomerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRunPreExecutionSkillsAbortsOnUnsupportedMidPipeline(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	err := pipeline.RunPreExecutionSkills(context.Background(), session,
		[]string{"lint", "summarize", "pre-only"}, core.TaskSkillConfig{})
	if !loomerrors.HasCode(err, loomerrors.CodeUnsupportedHook) {
		t.Fatalf("expected UNSUPPORTED_HOOK, got %v", err)
	}
	// lint ran before the failure; pre-only must not run after it.
	if len(session.prompts) != 1 || session.prompts[0] != "Run the linter." {
		t.Fatalf("unexpected prompts: %v", session.prompts)
	}
}

func TestRunPostExecutionSkillsSkipsUnsupported(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	err := pipeline.RunPostExecutionSkills(context.Background(), session,
		[]string{"lint", "summarize"}, core.TaskSkillConfig{})
	if err != nil {
		t.Fatalf("post pipeline must not fail on unsupported hook: %v", err)
	}
	// lint has no post hook: skipped. summarize runs.
	if len(session.prompts) != 1 || session.prompts[0] != "Summarize the run." {
		t.Fatalf("unexpected prompts: %v", session.prompts)
	}
}

func TestRunPostExecutionSkillsAllUnsupported(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	session := &recordingSession{}

	err := pipeline.RunPostExecutionSkills(context.Background(), session,
		[]string{"lint", "pre-only"}, core.TaskSkillConfig{})
	if err != nil {
		t.Fatalf("expected silent completion, got %v", err)
	}
	if len(session.prompts) != 0 {
		t.Fatalf("prompt channel must not be invoked, got %v", session.prompts)
	}
}

func TestPipelinePropagatesSessionFailure(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	cause := errors.New("agent call aborted")
	session := &recordingSession{failOn: "linter", err: cause}

	err := pipeline.RunPreExecutionSkills(context.Background(), session,
		[]string{"lint", "plan-check"}, core.TaskSkillConfig{})
	if !errors.Is(err, cause) {
		t.Fatalf("session failure must propagate as-is, got %v", err)
	}
	if len(session.prompts) != 0 {
		t.Fatalf("remaining skills must be aborted, got %v", session.prompts)
	}
}

func TestPipelineWithMetrics(t *testing.T) {
	metrics, err := telemetry.NewCoordinatorMetrics()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	pipeline := NewPipeline(testCatalog(t), WithMetrics(metrics))
	session := &recordingSession{}

	if err := pipeline.RunPostExecutionSkills(context.Background(), session,
		[]string{"lint", "summarize"}, core.TaskSkillConfig{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(session.prompts) != 1 {
		t.Fatalf("unexpected prompts: %v", session.prompts)
	}
}

func TestRunPostExecutionSkillsAbortsOnInvocationError(t *testing.T) {
	pipeline := NewPipeline(testCatalog(t))
	cause := errors.New("session closed")
	session := &recordingSession{failOn: "Summarize", err: cause}

	root := t.TempDir()
	writeSkill(t, root, "summarize", "---\nname: Summarize\ndescription: a\nhooks: [post]\n---\nSummarize the run.\n")
	writeSkill(t, root, "archive", "---\nname: Archive\ndescription: a\nhooks: [post]\n---\nArchive the transcript.\n")
	catalog := skills.NewCatalog([]skills.Root{{Path: root, Source: skills.SourceBuiltin}})
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	pipeline = NewPipeline(catalog)

	err := pipeline.RunPostExecutionSkills(context.Background(), session,
		[]string{"summarize", "archive"}, core.TaskSkillConfig{})
	if !errors.Is(err, cause) {
		t.Fatalf("invocation error must propagate, got %v", err)
	}
	if len(session.prompts) != 0 {
		t.Fatalf("archive must not run after the failure, got %v", session.prompts)
	}
}
