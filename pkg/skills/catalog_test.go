package skills

import (
	"errors"
	"testing"

	loomerrors "github.com/loomhq/loom/pkg/errors"
)

func TestCatalogReload(t *testing.T) {
	builtin := t.TempDir()
	user := t.TempDir()
	writeSkill(t, builtin, "code-review", "---\nname: Code Review\ndescription: a\nhooks: [pre]\n---\nbuiltin body\n")
	writeSkill(t, builtin, "broken", "---\ndescription: no name\n---\nbody\n")
	writeSkill(t, user, "summarize", "---\nname: Summarize\ndescription: b\nhooks: [post]\n---\nbody\n")

	catalog := NewCatalog([]Root{
		{Path: builtin, Source: SourceBuiltin},
		{Path: user, Source: SourceUser},
	})
	list, err := catalog.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("invalid entry should be dropped, expected 2 skills, got %d", len(list))
	}

	skill, err := catalog.Get("code-review")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if skill.Source != SourceBuiltin {
		t.Fatalf("unexpected source: %s", skill.Source)
	}
	if !catalog.Has("summarize") {
		t.Fatalf("expected summarize in catalog")
	}
}

func TestCatalogUserShadowsBuiltin(t *testing.T) {
	builtin := t.TempDir()
	user := t.TempDir()
	writeSkill(t, builtin, "code-review", "---\nname: Builtin Review\ndescription: a\nhooks: [pre]\n---\nbuiltin\n")
	writeSkill(t, user, "code-review", "---\nname: User Review\ndescription: a\nhooks: [pre]\n---\nuser\n")

	catalog := NewCatalog([]Root{
		{Path: builtin, Source: SourceBuiltin},
		{Path: user, Source: SourceUser},
	})
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	skill, err := catalog.Get("code-review")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if skill.Name != "User Review" {
		t.Fatalf("later root should shadow earlier, got %s", skill.Name)
	}
	if len(catalog.List()) != 1 {
		t.Fatalf("shadowed skill should not be listed twice")
	}
}

func TestCatalogReloadReplaces(t *testing.T) {
	root := t.TempDir()
	path := writeSkill(t, root, "code-review", "---\nname: Code Review\ndescription: a\nhooks: [pre]\n---\nv1\n")

	catalog := NewCatalog([]Root{{Path: root, Source: SourceUser}})
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	captured, err := catalog.Get("code-review")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	writeSkill(t, root, "code-review", "---\nname: Code Review\ndescription: a\nhooks: [pre]\n---\nv2\n")
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	refreshed, err := catalog.Get("code-review")
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if refreshed.PromptTemplate != "v2" {
		t.Fatalf("expected replaced template, got %q", refreshed.PromptTemplate)
	}
	if captured.PromptTemplate != "v1" {
		t.Fatalf("captured reference must be unaffected by reload, got %q", captured.PromptTemplate)
	}
	if path == "" {
		t.Fatal("unreachable")
	}
}

func TestCatalogGetNotFound(t *testing.T) {
	catalog := NewCatalog(nil)
	if _, err := catalog.Reload(); err != nil {
		t.Fatalf("reload of empty roots: %v", err)
	}
	_, err := catalog.Get("missing")
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	var le *loomerrors.LoomError
	if !errors.As(err, &le) || le.Code != loomerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
