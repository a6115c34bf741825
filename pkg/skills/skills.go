// Package skills defines the skill entity and its reloadable catalog.
// Skills are discovered from SKILL.md manifests (yaml frontmatter + markdown
// body) laid out one directory per skill under one or more configured roots.
package skills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Hook is an execution point relative to a task's main execution step.
type Hook string

const (
	HookPre  Hook = "pre"
	HookPost Hook = "post"
)

// Type distinguishes one-shot skills from iterative loop skills.
type Type string

const (
	TypeOneShot Type = "one-shot"
	TypeLoop    Type = "loop"
)

// Source records where a skill definition came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
)

// ConfigField is one declared overridable field in a skill's config schema.
type ConfigField struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Type        string `yaml:"type"`
	Default     string `yaml:"default"`
	Description string `yaml:"description"`
}

// Skill is a reusable, configurable unit of agent instruction invocable at a
// pre- and/or post-execution hook point. Immutable once loaded; overrides
// produce a derived copy via ApplyOverrides.
type Skill struct {
	ID             string
	Name           string
	Description    string
	Type           Type
	Hooks          []Hook
	MaxIterations  int
	DoneSignal     string
	PromptTemplate string
	ConfigSchema   []ConfigField
	Source         Source
	Path           string
	Metadata       map[string]string
}

// SupportsHook reports whether the skill declares support for the given hook.
func (s Skill) SupportsHook(hook Hook) bool {
	for _, h := range s.Hooks {
		if h == hook {
			return true
		}
	}
	return false
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024

	defaultMaxIterations = 1
	defaultDoneSignal    = "DONE"
)

var idPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// LoadDir scans a directory for skill subdirectories with SKILL.md.
func LoadDir(root string, source Source) ([]Skill, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		skill, err := LoadFile(skillPath, source)
		if err != nil {
			return nil, err
		}
		out = append(out, skill)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md file.
func LoadFile(path string, source Source) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, err
	}
	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return Skill{}, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return Skill{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	dir := filepath.Dir(path)
	id := strings.TrimSpace(parsed.ID)
	if id == "" {
		id = filepath.Base(dir)
	}
	hooks, err := normalizeHooks(parsed.Hooks)
	if err != nil {
		return Skill{}, err
	}
	skill := Skill{
		ID:             id,
		Name:           strings.TrimSpace(parsed.Name),
		Description:    strings.TrimSpace(parsed.Description),
		Type:           normalizeType(parsed.Type),
		Hooks:          hooks,
		MaxIterations:  parsed.MaxIterations,
		DoneSignal:     parsed.DoneSignal,
		PromptTemplate: strings.TrimSpace(body),
		ConfigSchema:   parsed.Config,
		Source:         source,
		Path:           path,
		Metadata:       parsed.Metadata,
	}
	if skill.MaxIterations == 0 {
		skill.MaxIterations = defaultMaxIterations
	}
	if skill.DoneSignal == "" {
		skill.DoneSignal = defaultDoneSignal
	}
	if err := validate(skill); err != nil {
		return Skill{}, err
	}
	return skill, nil
}

type frontmatter struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Type          string            `yaml:"type"`
	Hooks         []string          `yaml:"hooks"`
	MaxIterations int               `yaml:"max-iterations"`
	DoneSignal    string            `yaml:"done-signal"`
	Config        []ConfigField     `yaml:"config"`
	Metadata      map[string]string `yaml:"metadata"`
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", errors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func normalizeType(value string) Type {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "loop":
		return TypeLoop
	default:
		return TypeOneShot
	}
}

func normalizeHooks(values []string) ([]Hook, error) {
	seen := make(map[Hook]bool, len(values))
	out := make([]Hook, 0, len(values))
	for _, v := range values {
		hook := Hook(strings.ToLower(strings.TrimSpace(v)))
		switch hook {
		case HookPre, HookPost:
		default:
			return nil, fmt.Errorf("unknown hook %q", v)
		}
		if seen[hook] {
			continue
		}
		seen[hook] = true
		out = append(out, hook)
	}
	return out, nil
}

func validate(skill Skill) error {
	if skill.ID == "" {
		return errors.New("id is required")
	}
	if !idPattern.MatchString(skill.ID) {
		return fmt.Errorf("id must match %s", idPattern.String())
	}
	if skill.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(skill.Name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if utf8.RuneCountInString(skill.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	if len(skill.Hooks) == 0 {
		return errors.New("at least one hook is required")
	}
	if skill.MaxIterations < 1 {
		return errors.New("max-iterations must be >= 1")
	}
	for _, field := range skill.ConfigSchema {
		if strings.TrimSpace(field.Key) == "" {
			return errors.New("config field key is required")
		}
	}
	return nil
}
