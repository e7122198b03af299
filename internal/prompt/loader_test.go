package prompt

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "prompts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bio.md"), []byte("biography prompt"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := NewDirLoader(root)
	text, err := loader.Load("prompts/bio.md")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text != "biography prompt" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestLoadCachesAfterFirstRead(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "global.md")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := NewDirLoader(root)
	if _, err := loader.Load("global.md"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}
	text, err := loader.Load("global.md")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if text != "v1" {
		t.Fatalf("second load should hit the cache, got %q", text)
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	loader := NewDirLoader(t.TempDir())
	if _, err := loader.Load("../secrets.md"); err == nil {
		t.Fatalf("parent traversal must be rejected")
	}
	if _, err := loader.Load("/etc/passwd"); err == nil {
		t.Fatalf("absolute paths must be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewDirLoader(t.TempDir())
	if _, err := loader.Load("prompts/missing.md"); err == nil {
		t.Fatalf("missing file must error")
	}
}
