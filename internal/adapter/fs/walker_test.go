package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerFiltersByGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", "docs")
	writeFile(t, root, "notes.txt", "notes")
	writeFile(t, root, "binary.bin", "skip me")
	writeFile(t, root, "sub/deep.txt", "nested")
	writeFile(t, root, "node_modules/pkg/index.txt", "excluded")

	w := NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"**/node_modules/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	for _, f := range files {
		got[filepath.ToSlash(f.Path)] = true
		if f.Size <= 0 {
			t.Errorf("%s has size %d", f.Path, f.Size)
		}
	}

	for _, want := range []string{"readme.md", "notes.txt", "sub/deep.txt"} {
		if !got[want] {
			t.Errorf("expected %s in walk results %v", want, got)
		}
	}
	if got["binary.bin"] {
		t.Error("binary.bin should not match the include globs")
	}
	if got["node_modules/pkg/index.txt"] {
		t.Error("excluded path leaked into results")
	}
}

func TestWalkerDefaultsToEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "anything.xyz", "content")

	w := NewWalker(nil, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "anything.xyz" {
		t.Errorf("walk results = %+v", files)
	}
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "file body")

	text, err := ReadFile(filepath.Join(root, "doc.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if text != "file body" {
		t.Errorf("ReadFile = %q", text)
	}

	if _, err := ReadFile(filepath.Join(root, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
