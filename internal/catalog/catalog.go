package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultKey names the width used for classes missing from the catalog.
const DefaultKey = "default"

//go:embed objects.yaml
var defaultCatalog []byte

var (
	ErrMissingDefault = errors.New("catalog: missing default width")
	ErrInvalidWidth   = errors.New("catalog: width must be a positive number")
	ErrChainedName    = errors.New("catalog: display name resolves to another mapped name")
)

type catalogFile struct {
	Widths       map[string]float64 `yaml:"widths"`
	DisplayNames map[string]string  `yaml:"display_names"`
}

// Catalog bundles the static lookup tables shared read-only by every
// session.
type Catalog struct {
	Objects ObjectCatalog
	Names   DisplayNames
}

type ObjectCatalog struct {
	widths   map[string]float64
	fallback float64
}

func NewObjectCatalog(widths map[string]float64) (ObjectCatalog, error) {
	fallback, ok := widths[DefaultKey]
	if !ok {
		return ObjectCatalog{}, ErrMissingDefault
	}

	copied := make(map[string]float64, len(widths))
	for class, w := range widths {
		if !(w > 0) || math.IsInf(w, 0) {
			return ObjectCatalog{}, fmt.Errorf("%w: %q=%v", ErrInvalidWidth, class, w)
		}
		copied[class] = w
	}

	return ObjectCatalog{widths: copied, fallback: fallback}, nil
}

// Width returns the real-world width of class in meters, falling back to
// the default entry.
func (c ObjectCatalog) Width(class string) float64 {
	if w, ok := c.widths[class]; ok {
		return w
	}
	return c.fallback
}

func (c ObjectCatalog) Lookup(class string) (float64, bool) {
	w, ok := c.widths[class]
	return w, ok
}

func (c ObjectCatalog) Len() int {
	return len(c.widths)
}

type DisplayNames struct {
	names map[string]string
}

// NewDisplayNames rejects chained entries so that Resolve is idempotent.
func NewDisplayNames(names map[string]string) (DisplayNames, error) {
	copied := make(map[string]string, len(names))
	for raw, label := range names {
		if next, ok := names[label]; ok && next != label {
			return DisplayNames{}, fmt.Errorf("%w: %q -> %q -> %q", ErrChainedName, raw, label, next)
		}
		copied[raw] = label
	}
	return DisplayNames{names: copied}, nil
}

func (d DisplayNames) Resolve(name string) string {
	if label, ok := d.names[name]; ok {
		return label
	}
	return name
}

func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	objects, err := NewObjectCatalog(f.Widths)
	if err != nil {
		return nil, err
	}

	names, err := NewDisplayNames(f.DisplayNames)
	if err != nil {
		return nil, err
	}

	return &Catalog{Objects: objects, Names: names}, nil
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}
