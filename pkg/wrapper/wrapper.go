// Package wrapper defines named bundles of pre/post-execution skill ids and
// their reloadable catalog. A wrapper applied to a task replaces the task's
// skill lists wholesale.
package wrapper

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wrapper is a named, ordered bundle of pre/post skill ids.
type Wrapper struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	PreExecutionSkills  []string `yaml:"pre-execution-skills"`
	PostExecutionSkills []string `yaml:"post-execution-skills"`
	Path                string   `yaml:"-"`
}

// SkillIDs returns every skill id the wrapper references, pre list first.
func (w Wrapper) SkillIDs() []string {
	out := make([]string, 0, len(w.PreExecutionSkills)+len(w.PostExecutionSkills))
	out = append(out, w.PreExecutionSkills...)
	out = append(out, w.PostExecutionSkills...)
	return out
}

// LoadDir scans a directory for *.yaml wrapper manifests.
func LoadDir(root string) ([]Wrapper, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Wrapper
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		w, err := LoadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// LoadDirLenient scans like LoadDir but drops manifests that fail to parse
// or validate, logging a warning for each.
func LoadDirLenient(root string, logger *slog.Logger) ([]Wrapper, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Wrapper
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(root, entry.Name())
		w, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping invalid wrapper",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// LoadFile parses a single wrapper manifest.
func LoadFile(path string) (Wrapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Wrapper{}, err
	}
	var w Wrapper
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Wrapper{}, fmt.Errorf("parse wrapper: %w", err)
	}
	w.ID = strings.TrimSpace(w.ID)
	if w.ID == "" {
		base := filepath.Base(path)
		w.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	w.Path = path
	if err := validate(w); err != nil {
		return Wrapper{}, err
	}
	return w, nil
}

func validate(w Wrapper) error {
	if w.ID == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(w.Name) == "" {
		return errors.New("name is required")
	}
	if len(w.PreExecutionSkills)+len(w.PostExecutionSkills) == 0 {
		return errors.New("wrapper references no skills")
	}
	return nil
}
