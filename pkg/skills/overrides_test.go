package skills

import (
	"strings"
	"testing"

	"github.com/loomhq/loom/pkg/core"
)

func templatedSkill() Skill {
	return Skill{
		ID:             "templated-skill",
		Name:           "Templated",
		Hooks:          []Hook{HookPre},
		Type:           TypeLoop,
		MaxIterations:  2,
		DoneSignal:     "HOOK_DONE",
		PromptTemplate: "Use {{style}} tone. Max {{max-iterations}} tries. End with {{done-signal}}.",
		ConfigSchema: []ConfigField{
			{Key: "style", Label: "Style", Type: "string", Default: "concise"},
		},
	}
}

func TestApplyOverrides(t *testing.T) {
	skill := templatedSkill()
	derived := ApplyOverrides(skill, core.SkillOverrides{
		"style":          "detailed",
		"max-iterations": "5",
		"done-signal":    "FINISHED",
	})

	want := "Use detailed tone. Max 5 tries. End with FINISHED."
	if derived.PromptTemplate != want {
		t.Fatalf("rendered template = %q, want %q", derived.PromptTemplate, want)
	}
	if derived.MaxIterations != 5 {
		t.Fatalf("max iterations = %d, want 5", derived.MaxIterations)
	}
	if derived.DoneSignal != "FINISHED" {
		t.Fatalf("done signal = %s, want FINISHED", derived.DoneSignal)
	}
}

func TestApplyOverridesNilUsesDefaults(t *testing.T) {
	skill := templatedSkill()
	derived := ApplyOverrides(skill, nil)

	want := "Use concise tone. Max 2 tries. End with HOOK_DONE."
	if derived.PromptTemplate != want {
		t.Fatalf("rendered template = %q, want %q", derived.PromptTemplate, want)
	}
	if strings.Contains(derived.PromptTemplate, "{{") {
		t.Fatalf("no tokens may survive rendering: %q", derived.PromptTemplate)
	}
	if derived.MaxIterations != 2 || derived.DoneSignal != "HOOK_DONE" {
		t.Fatalf("loop controls must keep originals, got %d/%s", derived.MaxIterations, derived.DoneSignal)
	}
}

func TestApplyOverridesNonNumericMaxIterations(t *testing.T) {
	skill := templatedSkill()
	derived := ApplyOverrides(skill, core.SkillOverrides{"max-iterations": "not-a-number"})

	if derived.MaxIterations != 2 {
		t.Fatalf("non-numeric override must keep original, got %d", derived.MaxIterations)
	}
	if !strings.Contains(derived.PromptTemplate, "Max not-a-number tries") {
		t.Fatalf("literal override text must still render: %q", derived.PromptTemplate)
	}
}

func TestApplyOverridesRejectsNonPositive(t *testing.T) {
	skill := templatedSkill()
	derived := ApplyOverrides(skill, core.SkillOverrides{"max-iterations": "0"})
	if derived.MaxIterations != 2 {
		t.Fatalf("zero is not a usable iteration count, got %d", derived.MaxIterations)
	}
	if !strings.Contains(derived.PromptTemplate, "Max 0 tries") {
		t.Fatalf("literal text must still render: %q", derived.PromptTemplate)
	}
}

func TestApplyOverridesDoesNotMutateInput(t *testing.T) {
	skill := templatedSkill()
	_ = ApplyOverrides(skill, core.SkillOverrides{"style": "detailed", "done-signal": "X"})

	if skill.PromptTemplate != templatedSkill().PromptTemplate {
		t.Fatalf("input skill mutated: %q", skill.PromptTemplate)
	}
	if skill.DoneSignal != "HOOK_DONE" {
		t.Fatalf("input skill mutated: %s", skill.DoneSignal)
	}
}

func TestApplyOverridesRepeatedTokens(t *testing.T) {
	skill := templatedSkill()
	skill.PromptTemplate = "{{style}} and {{style}} again"
	derived := ApplyOverrides(skill, nil)
	if derived.PromptTemplate != "concise and concise again" {
		t.Fatalf("all occurrences must be replaced: %q", derived.PromptTemplate)
	}
}

func TestApplyOverridesPassthroughFields(t *testing.T) {
	skill := templatedSkill()
	derived := ApplyOverrides(skill, core.SkillOverrides{"style": "detailed"})
	if len(derived.ConfigSchema) != 1 || derived.ConfigSchema[0].Default != "concise" {
		t.Fatalf("config schema must pass through unchanged: %v", derived.ConfigSchema)
	}
	if derived.ID != skill.ID || derived.Name != skill.Name {
		t.Fatalf("descriptive fields must pass through")
	}
}
