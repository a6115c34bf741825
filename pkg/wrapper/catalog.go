package wrapper

import (
	"log/slog"
	"os"
	"sync"

	"github.com/loomhq/loom/pkg/core"
	loomerrors "github.com/loomhq/loom/pkg/errors"
	"github.com/loomhq/loom/pkg/skills"
)

// Catalog is the in-memory, reloadable wrapper index. Every wrapper admitted
// into the catalog references only skill ids that exist in the skill catalog;
// a wrapper with a dangling reference is dropped at reload time rather than
// failing at apply time.
type Catalog struct {
	mu     sync.RWMutex
	roots  []string
	skills *skills.Catalog
	logger *slog.Logger
	byID   map[string]Wrapper
	list   []Wrapper
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

// NewCatalog creates an empty wrapper catalog validating against the given
// skill catalog. Call Reload to populate it.
func NewCatalog(roots []string, skillCatalog *skills.Catalog, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		roots:  roots,
		skills: skillCatalog,
		logger: slog.Default(),
		byID:   make(map[string]Wrapper),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reload re-scans all roots, validates every wrapper's skill references
// against the current skill catalog, and atomically replaces the index.
// Wrappers with dangling references are dropped with a warning, not a
// reload failure. Returns the admitted list in discovery order.
func (c *Catalog) Reload() ([]Wrapper, error) {
	byID := make(map[string]Wrapper)
	var order []string
	for _, root := range c.roots {
		entries, err := c.scanRoot(root)
		if err != nil {
			return nil, err
		}
		for _, w := range entries {
			if dangling := c.danglingSkills(w); len(dangling) > 0 {
				c.logger.Warn("dropping wrapper with unknown skills",
					slog.String("wrapper", w.ID),
					slog.Any("skills", dangling),
				)
				continue
			}
			if _, exists := byID[w.ID]; !exists {
				order = append(order, w.ID)
			}
			byID[w.ID] = w
		}
	}
	list := make([]Wrapper, 0, len(order))
	for _, id := range order {
		list = append(list, byID[id])
	}

	c.mu.Lock()
	c.byID = byID
	c.list = list
	c.mu.Unlock()

	c.logger.Info("wrapper catalog reloaded", slog.Int("wrappers", len(list)))
	return list, nil
}

func (c *Catalog) scanRoot(root string) ([]Wrapper, error) {
	entries, err := LoadDirLenient(root, c.logger)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (c *Catalog) danglingSkills(w Wrapper) []string {
	var missing []string
	for _, id := range w.SkillIDs() {
		if !c.skills.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// Get returns the wrapper by id from the current snapshot. Wrappers dropped
// at reload are indistinguishable from wrappers that never existed.
func (c *Catalog) Get(id string) (Wrapper, error) {
	c.mu.RLock()
	w, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return Wrapper{}, loomerrors.NotFound("wrapper", id)
	}
	return w, nil
}

// List returns the current snapshot in discovery order.
func (c *Catalog) List() []Wrapper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Wrapper, len(c.list))
	copy(out, c.list)
	return out
}

// Apply replaces the task's pre/post skill lists wholesale with the
// wrapper's. It is a full override, not a merge: whatever skills the task had
// configured before are gone. Existing per-skill config overrides are kept,
// since they key off skill ids the wrapper may reuse. The input task is not
// mutated.
func (c *Catalog) Apply(task core.Task, wrapperID string) (core.Task, error) {
	w, err := c.Get(wrapperID)
	if err != nil {
		return core.Task{}, err
	}
	task.Skills.PreExecutionSkills = append([]string(nil), w.PreExecutionSkills...)
	task.Skills.PostExecutionSkills = append([]string(nil), w.PostExecutionSkills...)
	return task, nil
}
