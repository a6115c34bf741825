package skills

import (
	"strconv"
	"strings"

	"github.com/loomhq/loom/pkg/core"
)

// Reserved loop-control keys handled outside the generic schema substitution.
const (
	KeyMaxIterations = "max-iterations"
	KeyDoneSignal    = "done-signal"
)

// ApplyOverrides merges per-task override values onto a skill and renders its
// prompt template. The input skill is never mutated; the result is a derived
// copy with PromptTemplate fully rendered and MaxIterations/DoneSignal
// resolved. A nil override set still renders the template from schema
// defaults and the skill's own loop-control values.
//
// For the reserved max-iterations key, a non-numeric override is ignored for
// the numeric field (the original MaxIterations stands) but the raw literal
// is still substituted into the template, so the rendered text reflects what
// the user typed.
func ApplyOverrides(skill Skill, overrides core.SkillOverrides) Skill {
	derived := skill
	rendered := skill.PromptTemplate

	for _, field := range skill.ConfigSchema {
		value, ok := overrides[field.Key]
		if !ok {
			value = field.Default
		}
		rendered = substitute(rendered, field.Key, value)
	}

	maxIterText := strconv.Itoa(skill.MaxIterations)
	if raw, ok := overrides[KeyMaxIterations]; ok {
		if parsed, err := strconv.ParseInt(raw, 10, 0); err == nil && parsed >= 1 {
			derived.MaxIterations = int(parsed)
		}
		maxIterText = raw
	}
	rendered = substitute(rendered, KeyMaxIterations, maxIterText)

	if raw, ok := overrides[KeyDoneSignal]; ok {
		derived.DoneSignal = raw
	}
	rendered = substitute(rendered, KeyDoneSignal, derived.DoneSignal)

	derived.PromptTemplate = rendered
	return derived
}

// substitute replaces every {{key}} token, exact match, case sensitive.
func substitute(template, key, value string) string {
	return strings.ReplaceAll(template, "{{"+key+"}}", value)
}
