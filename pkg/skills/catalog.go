package skills

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	loomerrors "github.com/loomhq/loom/pkg/errors"
)

// Root is one directory scanned for skill definitions, tagged with the
// provenance its skills inherit.
type Root struct {
	Path   string
	Source Source
}

// Catalog is the in-memory, reloadable skill index. Lookups read an immutable
// snapshot that Reload swaps in atomically, so a reload never exposes a
// half-loaded catalog and in-flight callers keep the Skill values they
// already captured.
type Catalog struct {
	mu     sync.RWMutex
	roots  []Root
	logger *slog.Logger
	byID   map[string]Skill
	list   []Skill
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the logger used for discovery warnings.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog creates an empty catalog over the given roots.
// Call Reload to populate it.
func NewCatalog(roots []Root, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		roots:  roots,
		logger: slog.Default(),
		byID:   make(map[string]Skill),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reload re-scans all roots and atomically replaces the index with the new
// snapshot. Entries that fail structural validation are dropped with a
// warning; a skill id appearing in a later root shadows earlier roots.
// Returns the full new list in discovery order.
func (c *Catalog) Reload() ([]Skill, error) {
	byID := make(map[string]Skill)
	var order []string
	for _, root := range c.roots {
		entries, err := scanRoot(root, c.logger)
		if err != nil {
			return nil, err
		}
		for _, skill := range entries {
			if _, exists := byID[skill.ID]; !exists {
				order = append(order, skill.ID)
			}
			byID[skill.ID] = skill
		}
	}
	list := make([]Skill, 0, len(order))
	for _, id := range order {
		list = append(list, byID[id])
	}

	c.mu.Lock()
	c.byID = byID
	c.list = list
	c.mu.Unlock()

	c.logger.Info("skill catalog reloaded", slog.Int("skills", len(list)))
	return list, nil
}

// scanRoot loads every skill under one root, dropping entries that fail to
// parse or validate. A missing root is not an error: it simply yields nothing.
func scanRoot(root Root, logger *slog.Logger) ([]Skill, error) {
	entries, err := os.ReadDir(root.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(root.Path, entry.Name(), "SKILL.md")
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		skill, err := LoadFile(skillPath, root.Source)
		if err != nil {
			logger.Warn("skipping invalid skill",
				slog.String("path", skillPath),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, skill)
	}
	return out, nil
}

// Get returns the skill by id from the current snapshot.
func (c *Catalog) Get(id string) (Skill, error) {
	c.mu.RLock()
	skill, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return Skill{}, loomerrors.NotFound("skill", id)
	}
	return skill, nil
}

// Has reports whether the catalog currently contains the skill id.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[id]
	return ok
}

// List returns the current snapshot in discovery order.
func (c *Catalog) List() []Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Skill, len(c.list))
	copy(out, c.list)
	return out
}
