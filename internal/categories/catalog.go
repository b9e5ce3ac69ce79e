package categories

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

//go:embed default_categories.json
var defaultCatalog []byte

// UnknownID marks a manifestation that could not be categorized
const UnknownID = "unknown"

// UnknownName is the display name of the unknown marker
const UnknownName = "Não Identificado"

// Category is one administrative category a manifestation can be filed under
type Category struct {
	ID            string   `json:"id" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description"`
	Subcategories []string `json:"subcategories" validate:"required,min=1,dive,required"`
	Keywords      []string `json:"keywords,omitempty"`
}

// Unknown returns the marker used when no category applies
func Unknown() Category {
	return Category{
		ID:            UnknownID,
		Name:          UnknownName,
		Description:   "Não foi possível identificar a categoria automaticamente.",
		Subcategories: []string{UnknownName},
	}
}

type catalogFile struct {
	Categories []Category `json:"categories"`
}

// Catalog is a read-only, ordered set of categories
type Catalog struct {
	categories []Category
	byID       map[string]int
}

// Default returns the catalog compiled into the binary
func Default() *Catalog {
	c, err := Parse(defaultCatalog, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded category catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from disk, falling back to the built-in catalog
// when the file does not exist
func LoadFile(path string, log *logger.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if log != nil {
			log.Info("Category file not found, using built-in catalog", zap.String("path", path))
		}
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return Parse(data, log)
}

// Parse decodes a catalog document. Entries failing validation are dropped.
func Parse(data []byte, log *logger.Logger) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}

	validate := validator.New()
	c := &Catalog{byID: make(map[string]int, len(file.Categories))}

	for i, cat := range file.Categories {
		if err := validate.Struct(cat); err != nil {
			if log != nil {
				log.Warn("Skipping invalid category", zap.Int("index", i), zap.Error(err))
			}
			continue
		}
		if _, dup := c.byID[cat.ID]; dup {
			if log != nil {
				log.Warn("Skipping duplicate category", zap.String("id", cat.ID))
			}
			continue
		}
		c.byID[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	return c, nil
}

// Get looks a category up by id
func (c *Catalog) Get(id string) (Category, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Category{}, false
	}
	return c.categories[idx], true
}

// All returns the categories in declaration order
func (c *Catalog) All() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Len returns the number of categories
func (c *Catalog) Len() int {
	return len(c.categories)
}

// MatchKeywords scores every category by how many of its keywords occur in
// text and returns the best one. Ties go to the category declared first.
func (c *Catalog) MatchKeywords(text string) (Category, bool) {
	lower := strings.ToLower(text)

	best, bestScore := -1, 0
	for i, cat := range c.categories {
		score := lo.CountBy(cat.Keywords, func(k string) bool {
			return k != "" && strings.Contains(lower, strings.ToLower(k))
		})
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return Category{}, false
	}
	return c.categories[best], true
}

// ResolveSubcategory returns suggested when it names one of cat's
// subcategories and the first declared subcategory otherwise
func ResolveSubcategory(cat Category, suggested string) string {
	suggested = strings.TrimSpace(suggested)
	for _, sub := range cat.Subcategories {
		if sub == suggested {
			return sub
		}
	}
	for _, sub := range cat.Subcategories {
		if strings.EqualFold(sub, suggested) {
			return sub
		}
	}
	if len(cat.Subcategories) == 0 {
		return ""
	}
	return cat.Subcategories[0]
}
