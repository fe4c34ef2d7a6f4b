package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFSLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "O2A and Data Model"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "O2A and Data Model", "spec.md"), []byte("# O2A"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := NewFS(dir)

	got, err := fs.Load(context.Background(), "O2A and Data Model/spec.md")
	if err != nil || got != "# O2A" {
		t.Fatalf("ожидали содержимое файла, получили %q, %v", got, err)
	}
	if _, err := fs.Load(context.Background(), "missing.md"); err == nil {
		t.Fatalf("ожидали ошибку для отсутствующего файла")
	}
}

func TestFSRejectsEscape(t *testing.T) {
	fs := NewFS(t.TempDir())
	for _, name := range []string{"../secret.md", "a/../../b.md", "/etc/passwd"} {
		if _, err := fs.Load(context.Background(), name); !errors.Is(err, ErrOutsideBase) {
			t.Fatalf("%s: ожидали ErrOutsideBase, получили %v", name, err)
		}
	}
}

func TestFSWithoutBase(t *testing.T) {
	if _, err := NewFS("").Load(context.Background(), "01-master-narrative.md"); err == nil {
		t.Fatalf("ожидали ошибку без базовой папки")
	}
}
