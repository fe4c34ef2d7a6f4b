package sources

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

//go:embed sources.yaml
var defaultCatalogue []byte

// CatalogueEntry: один источник в YAML-каталоге.
type CatalogueEntry struct {
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	Type         string `yaml:"type"`
	Category     string `yaml:"category"`
	Description  string `yaml:"description"`
	WatchEnabled *bool  `yaml:"watch"`
}

// Catalogue: корень YAML-файла.
type Catalogue struct {
	Sources []CatalogueEntry `yaml:"sources"`
}

// DefaultCatalogue возвращает встроенный каталог.
func DefaultCatalogue() (Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// LoadCatalogue читает каталог из файла.
func LoadCatalogue(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("failed to read catalogue file: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue разбирает YAML и проверяет записи.
func ParseCatalogue(data []byte) (Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalogue{}, fmt.Errorf("failed to parse catalogue yaml: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, e := range c.Sources {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Path) == "" {
			return Catalogue{}, fmt.Errorf("catalogue entry %d: name and path are required", i+1)
		}
		if _, dup := seen[e.Path]; dup {
			return Catalogue{}, fmt.Errorf("catalogue entry %d: duplicate path %q", i+1, e.Path)
		}
		seen[e.Path] = struct{}{}
		switch domain.SourceType(e.Type) {
		case "", domain.SourceTypeFile, domain.SourceTypeFolder:
		default:
			return Catalogue{}, fmt.Errorf("catalogue entry %d: unknown type %q", i+1, e.Type)
		}
	}
	return c, nil
}

// Domain переводит каталог в сущности. По умолчанию тип file и отслеживание включено.
func (c Catalogue) Domain() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, e := range c.Sources {
		typ := domain.SourceType(e.Type)
		if typ == "" {
			typ = domain.SourceTypeFile
		}
		watch := true
		if e.WatchEnabled != nil {
			watch = *e.WatchEnabled
		}
		out = append(out, domain.Source{
			Name:         strings.TrimSpace(e.Name),
			Path:         strings.TrimSpace(e.Path),
			Type:         typ,
			Category:     e.Category,
			Description:  e.Description,
			WatchEnabled: watch,
		})
	}
	return out
}
