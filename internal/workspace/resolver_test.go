package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveExistingWorkspace(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "ws1"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewDirResolver(root)
	dir, env, err := r.Resolve("ws1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if dir != filepath.Join(root, "ws1") {
		t.Errorf("expected dir %s, got %s", filepath.Join(root, "ws1"), dir)
	}
	if len(env) == 0 || env[0] != "WORKTERM_WORKSPACE=ws1" {
		t.Errorf("expected workspace env var, got %v", env)
	}
}

func TestResolveMissingWorkspace(t *testing.T) {
	r := NewDirResolver(t.TempDir())
	if _, _, err := r.Resolve("nope"); err == nil {
		t.Fatal("expected error for missing workspace, got nil")
	}
}

func TestResolveRejectsPathTraversal(t *testing.T) {
	r := NewDirResolver(t.TempDir())

	for _, id := range []string{"", "..", "a/b", `a\b`, "."} {
		if _, _, err := r.Resolve(id); err == nil {
			t.Errorf("expected error for workspace id %q, got nil", id)
		}
	}
}
