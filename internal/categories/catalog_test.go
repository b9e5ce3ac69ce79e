package categories

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 6, c.Len())

	ids := make([]string, 0, c.Len())
	for _, cat := range c.All() {
		ids = append(ids, cat.ID)
		assert.NotEmpty(t, cat.Subcategories, cat.ID)
	}
	assert.Equal(t, []string{"denuncia", "reclamacao", "sugestao", "elogio", "solicitacao", "informacao"}, ids)

	_, ok := c.Get("reclamacao")
	assert.True(t, ok)
	_, ok = c.Get("inexistente")
	assert.False(t, ok)
}

func TestParseDropsInvalidEntries(t *testing.T) {
	doc := `{"categories":[
		{"id":"a","name":"A","subcategories":["A1"]},
		{"id":"","name":"Sem id","subcategories":["X"]},
		{"id":"b","name":"B","subcategories":[]},
		{"id":"a","name":"Dup","subcategories":["D"]}
	]}`

	c, err := Parse([]byte(doc), logger.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	a, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", a.Name)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"categories":`), nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		c, err := LoadFile(filepath.Join(t.TempDir(), "categories.json"), logger.NewNop())
		require.NoError(t, err)
		assert.Equal(t, Default().Len(), c.Len())
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "categories.json")
		doc := `{"categories":[{"id":"x","name":"X","subcategories":["X1","X2"]}]}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		c, err := LoadFile(path, logger.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})
}

func TestMatchKeywords(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"complaint", "A demora na fila foi enorme", "reclamacao"},
		{"request", "Tem um buraco no asfalto da minha rua", "solicitacao"},
		{"praise", "Parabéns pelo excelente atendimento", "elogio"},
		{"tie goes to first", "ilegal e ruim", "denuncia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, ok := c.MatchKeywords(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, cat.ID)
		})
	}

	_, ok := c.MatchKeywords("xyz")
	assert.False(t, ok)
}

func TestResolveSubcategory(t *testing.T) {
	cat := Category{ID: "c", Name: "C", Subcategories: []string{"Primeira", "Segunda"}}

	assert.Equal(t, "Segunda", ResolveSubcategory(cat, "Segunda"))
	assert.Equal(t, "Segunda", ResolveSubcategory(cat, " segunda "))
	assert.Equal(t, "Primeira", ResolveSubcategory(cat, "Inventada"))
	assert.Equal(t, "Primeira", ResolveSubcategory(cat, ""))
}

func TestUnknown(t *testing.T) {
	u := Unknown()
	assert.Equal(t, UnknownID, u.ID)
	assert.Equal(t, []string{UnknownName}, u.Subcategories)
}
