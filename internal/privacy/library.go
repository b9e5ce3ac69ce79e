package privacy

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultCatalog []byte

// PIIType describes one kind of personal data the detector knows about
type PIIType struct {
	ID            string `yaml:"id" json:"id" validate:"required"`
	Label         string `yaml:"label" json:"label" validate:"required"`
	CaseSensitive bool   `yaml:"case_sensitive" json:"case_sensitive"`
	Priority      int    `yaml:"priority" json:"-"`
	Expr          string `yaml:"expr" json:"-" validate:"required"`

	pattern *regexp.Regexp
}

// Pattern returns the compiled expression, with case folding already applied
func (t PIIType) Pattern() *regexp.Regexp {
	return t.pattern
}

type catalogFile struct {
	Version int       `yaml:"version"`
	Types   []PIIType `yaml:"types" validate:"required,min=1,dive"`
}

// Library is an immutable catalog of PII types
type Library struct {
	types      []PIIType
	byID       map[string]int
	claimOrder []int
}

// DefaultLibrary loads the catalog compiled into the binary
func DefaultLibrary() (*Library, error) {
	return LoadLibrary(defaultCatalog)
}

// LoadLibraryFile reads a catalog from disk. An empty path yields the default catalog.
func LoadLibraryFile(path string) (*Library, error) {
	if path == "" {
		return DefaultLibrary()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern catalog: %w", err)
	}
	return LoadLibrary(data)
}

// LoadLibrary parses and compiles a YAML catalog
func LoadLibrary(data []byte) (*Library, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern catalog: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid pattern catalog: %w", err)
	}

	lib := &Library{
		types: make([]PIIType, 0, len(file.Types)),
		byID:  make(map[string]int, len(file.Types)),
	}

	for _, t := range file.Types {
		if _, dup := lib.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate pii type %q", t.ID)
		}

		expr := t.Expr
		if !t.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pii type %q: %w", t.ID, err)
		}
		t.pattern = re

		lib.byID[t.ID] = len(lib.types)
		lib.types = append(lib.types, t)
	}

	lib.claimOrder = make([]int, len(lib.types))
	for i := range lib.claimOrder {
		lib.claimOrder[i] = i
	}
	sort.SliceStable(lib.claimOrder, func(a, b int) bool {
		return lib.types[lib.claimOrder[a]].Priority < lib.types[lib.claimOrder[b]].Priority
	})

	return lib, nil
}

// Lookup returns the PII type registered under id. Unknown ids report false.
func (l *Library) Lookup(id string) (PIIType, bool) {
	idx, ok := l.byID[id]
	if !ok {
		return PIIType{}, false
	}
	return l.types[idx], true
}

// IDs lists every identifier in declaration order
func (l *Library) IDs() []string {
	ids := make([]string, len(l.types))
	for i, t := range l.types {
		ids[i] = t.ID
	}
	return ids
}

// Types returns a copy of the catalog in declaration order
func (l *Library) Types() []PIIType {
	out := make([]PIIType, len(l.types))
	copy(out, l.types)
	return out
}

// Labels maps the given ids to their labels, skipping unknown ids
func (l *Library) Labels(ids []string) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := l.Lookup(id); ok {
			labels = append(labels, t.Label)
		}
	}
	return labels
}

// Len returns the number of registered types
func (l *Library) Len() int {
	return len(l.types)
}
