package templates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBase возвращается для путей, выходящих за базовую папку.
var ErrOutsideBase = errors.New("path escapes base directory")

// FS читает документы стратегии из папки на диске.
type FS struct {
	base string
}

// NewFS создаёт хранилище с базовой папкой base.
func NewFS(base string) *FS {
	return &FS{base: base}
}

// Load реализует domain.TemplateStore. name задаётся относительно базовой папки.
func (f *FS) Load(_ context.Context, name string) (string, error) {
	path, err := f.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func (f *FS) resolve(name string) (string, error) {
	if f.base == "" {
		return "", fmt.Errorf("read %s: base directory is not configured", name)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%s: %w", name, ErrOutsideBase)
	}
	base := filepath.Clean(f.base)
	path := filepath.Join(base, name)
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrOutsideBase)
	}
	return path, nil
}
