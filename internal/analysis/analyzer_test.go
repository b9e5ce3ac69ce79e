package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/llm"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu           sync.Mutex
	privacy      llm.PrivacyResult
	classify     llm.ClassifyResult
	enabledSeen  []string
	privacyCalls int
	panics       bool
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-1" }

func (f *fakeBackend) Classify(ctx context.Context, text string, cats []categories.Category) llm.ClassifyResult {
	return f.classify
}

func (f *fakeBackend) AnalyzePrivacy(ctx context.Context, text, enabledList string) llm.PrivacyResult {
	if f.panics {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabledSeen = append(f.enabledSeen, enabledList)
	f.privacyCalls++
	return f.privacy
}

type memCache struct {
	mu    sync.Mutex
	items map[string]privacy.Verdict
}

func (m *memCache) Get(_ context.Context, key string) (privacy.Verdict, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, v privacy.Verdict) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = v
}

func newAnalyzer(t *testing.T, b llm.Backend, opts ...Option) *Analyzer {
	t.Helper()
	lib, err := privacy.DefaultLibrary()
	require.NoError(t, err)

	factory := Offline()
	if b != nil {
		factory = func(config.SystemConfig) llm.Backend { return b }
	}
	return NewAnalyzer(privacy.NewDetector(lib, nil), categories.Default(), factory, opts...)
}

func okPrivacy(sensitive bool, labels ...string) llm.PrivacyResult {
	status := privacy.StatusPublico
	if sensitive {
		status = privacy.StatusSigiloso
	}
	return llm.PrivacyResult{Status: llm.StatusOK, Analysis: llm.PrivacyAnalysis{
		IsSensitive:   sensitive,
		PrivacyStatus: status,
		Reason:        "análise do modelo",
		DetectedPII:   labels,
	}}
}

func TestAnalyzePrivacyOffline(t *testing.T) {
	a := newAnalyzer(t, nil)
	snap := config.DefaultSystemConfig()

	t.Run("cpf without backend", func(t *testing.T) {
		v := a.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", nil, snap)
		assert.True(t, v.IsSensitive)
		assert.Equal(t, privacy.StatusSigiloso, v.PrivacyStatus)
		assert.Contains(t, v.DetectedPII, privacy.LabelCPF)
		assert.Equal(t, privacy.MacroPersonal, v.Category)
		assert.Equal(t, privacy.SourceRegex, v.Source)
	})

	t.Run("generic block is public", func(t *testing.T) {
		v := a.AnalyzePrivacy(context.Background(), "Bloco de anotações está cheio", nil, snap)
		assert.False(t, v.IsSensitive)
		assert.Equal(t, privacy.MacroPublic, v.Category)
		assert.Empty(t, v.DetectedPII)
	})

	t.Run("medical record with patient", func(t *testing.T) {
		v := a.AnalyzePrivacy(context.Background(), "Paciente João Silva, prontuário nº 123456, CPF 123.456.789-00", nil, snap)
		assert.True(t, v.IsSensitive)
		assert.Equal(t, privacy.MacroMedicalRecord, v.Category)
	})

	t.Run("snapshot enabled list applies when caller passes nil", func(t *testing.T) {
		s := snap
		s.EnabledPIITypes = []string{"email"}
		v := a.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", nil, s)
		assert.False(t, v.IsSensitive)
	})

	t.Run("explicit list overrides snapshot", func(t *testing.T) {
		s := snap
		s.EnabledPIITypes = []string{"email"}
		v := a.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", []string{"cpf"}, s)
		assert.True(t, v.IsSensitive)
	})
}

func TestAnalyzePrivacyWithBackend(t *testing.T) {
	snap := config.DefaultSystemConfig()

	t.Run("model verdict wins", func(t *testing.T) {
		b := &fakeBackend{privacy: okPrivacy(true, "Conta Bancária", "CPF")}
		a := newAnalyzer(t, b)

		v := a.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", nil, snap)
		assert.Equal(t, privacy.MacroBanking, v.Category)
		assert.Equal(t, privacy.SourceLLM, v.Source)
		assert.Equal(t, []string{"CPF"}, b.enabledSeen)
	})

	t.Run("no offline hits sends the unrestricted marker", func(t *testing.T) {
		b := &fakeBackend{privacy: okPrivacy(false)}
		a := newAnalyzer(t, b)

		v := a.AnalyzePrivacy(context.Background(), "Gostaria de elogiar o atendimento", nil, snap)
		assert.False(t, v.IsSensitive)
		assert.Equal(t, []string{llm.EnabledAll}, b.enabledSeen)
	})

	t.Run("failure falls back to offline", func(t *testing.T) {
		b := &fakeBackend{privacy: llm.PrivacyResult{Status: llm.StatusFailed, Err: errors.New("timeout")}}
		a := newAnalyzer(t, b)

		v := a.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", nil, snap)
		assert.True(t, v.IsSensitive)
		assert.Equal(t, privacy.SourceRegex, v.Source)
		assert.Equal(t, "Dados detectados via regex: CPF", v.Reason)
	})

	t.Run("failure with nothing offline is public", func(t *testing.T) {
		b := &fakeBackend{privacy: llm.PrivacyResult{Status: llm.StatusFailed}}
		a := newAnalyzer(t, b)

		v := a.AnalyzePrivacy(context.Background(), "Obrigado pelo serviço", nil, snap)
		assert.Equal(t, privacy.PublicVerdict(), v)
	})

	t.Run("disabled types are removed from model output", func(t *testing.T) {
		b := &fakeBackend{privacy: okPrivacy(true, "CPF", "Placa de Veículo (Mercosul)")}
		a := newAnalyzer(t, b)

		v := a.AnalyzePrivacy(context.Background(), "placa ABC1D23 e CPF 123.456.789-00", []string{"plate_mercosul"}, snap)
		assert.Equal(t, []string{privacy.LabelPlateMercosul}, v.DetectedPII)
		assert.Equal(t, privacy.MacroVehicle, v.Category)
	})

	t.Run("idempotent", func(t *testing.T) {
		b := &fakeBackend{privacy: okPrivacy(true, "Email")}
		a := newAnalyzer(t, b)

		first := a.AnalyzePrivacy(context.Background(), "ana@exemplo.com", nil, snap)
		second := a.AnalyzePrivacy(context.Background(), "ana@exemplo.com", nil, snap)
		assert.Equal(t, first, second)
	})
}

func TestAnalyzePrivacyCache(t *testing.T) {
	b := &fakeBackend{privacy: okPrivacy(true, "Email")}
	cache := &memCache{items: map[string]privacy.Verdict{}}
	a := newAnalyzer(t, b, WithCache(cache))
	snap := config.DefaultSystemConfig()

	first := a.AnalyzePrivacy(context.Background(), "ana@exemplo.com", nil, snap)
	second := a.AnalyzePrivacy(context.Background(), "ana@exemplo.com", nil, snap)

	assert.Equal(t, 1, b.privacyCalls)
	assert.Equal(t, privacy.SourceLLM, first.Source)
	assert.Equal(t, privacy.SourceCache, second.Source)
	assert.Equal(t, first.Category, second.Category)
}

func TestClassifyAndFilter(t *testing.T) {
	snap := config.DefaultSystemConfig()

	t.Run("model category with invalid subcategory", func(t *testing.T) {
		b := &fakeBackend{
			classify: llm.ClassifyResult{Status: llm.StatusOK, Classification: llm.Classification{CategoryID: "reclamacao", Subcategory: "Inventada"}},
			privacy:  okPrivacy(false),
		}
		r := newAnalyzer(t, b).ClassifyAndFilter(context.Background(), "texto qualquer", nil, snap)

		assert.Equal(t, "reclamacao", r.ID)
		assert.Equal(t, CategoryFromLLM, r.CategorySource)
		assert.Equal(t, r.Subcategories[0], r.SelectedSubcategory)
	})

	t.Run("unknown model category falls back to keywords", func(t *testing.T) {
		b := &fakeBackend{
			classify: llm.ClassifyResult{Status: llm.StatusOK, Classification: llm.Classification{CategoryID: "inexistente"}},
			privacy:  okPrivacy(false),
		}
		r := newAnalyzer(t, b).ClassifyAndFilter(context.Background(), "Tem um buraco no asfalto", nil, snap)

		assert.Equal(t, "solicitacao", r.ID)
		assert.Equal(t, CategoryFromKeyword, r.CategorySource)
	})

	t.Run("offline with privacy merged", func(t *testing.T) {
		r := newAnalyzer(t, nil).ClassifyAndFilter(context.Background(), "Demora na fila. Meu CPF é 123.456.789-00", nil, snap)

		assert.Equal(t, "reclamacao", r.ID)
		assert.True(t, r.IsSensitive)
		assert.Equal(t, privacy.MacroPersonal, r.Category)
	})

	t.Run("no signal is unidentified and public", func(t *testing.T) {
		r := newAnalyzer(t, nil).ClassifyAndFilter(context.Background(), "xyz", nil, snap)

		assert.Equal(t, categories.UnknownID, r.ID)
		assert.Equal(t, CategoryUnknown, r.CategorySource)
		assert.False(t, r.IsSensitive)
		assert.Equal(t, privacy.MacroPublic, r.Category)
	})

	t.Run("selected subcategory always belongs to the category", func(t *testing.T) {
		a := newAnalyzer(t, nil)
		for _, text := range []string{"xyz", "sugiro uma ideia", "parabéns", "propina e desvio"} {
			r := a.ClassifyAndFilter(context.Background(), text, nil, snap)
			assert.Contains(t, r.Subcategories, r.SelectedSubcategory, text)
		}
	})
}

func TestServiceNeverFails(t *testing.T) {
	b := &fakeBackend{panics: true}
	a := newAnalyzer(t, b)
	store := config.NewSystemStore(filepath.Join(t.TempDir(), "system_config.json"))
	svc := NewService(a, store, nil)

	v := svc.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", nil)
	assert.Equal(t, privacy.PublicVerdict(), v)

	r := svc.ClassifyAndFilter(context.Background(), "Meu CPF é 123.456.789-00", nil)
	assert.Equal(t, categories.UnknownID, r.ID)
}

func TestServiceReadsFreshSnapshot(t *testing.T) {
	store := config.NewSystemStore(filepath.Join(t.TempDir(), "system_config.json"))
	svc := NewService(newAnalyzer(t, nil), store, nil)
	text := "Meu CPF é 123.456.789-00"

	assert.True(t, svc.AnalyzePrivacy(context.Background(), text, nil).IsSensitive)

	cfg := config.DefaultSystemConfig()
	cfg.EnabledPIITypes = []string{"email"}
	require.NoError(t, store.Save(cfg))

	assert.False(t, svc.AnalyzePrivacy(context.Background(), text, nil).IsSensitive)
}

func TestVerdictKey(t *testing.T) {
	k1 := VerdictKey("gemini", "m", "CPF", "texto")
	assert.Equal(t, k1, VerdictKey("gemini", "m", "CPF", "texto"))
	assert.NotEqual(t, k1, VerdictKey("gemini", "m", "CPFtexto", ""))
	assert.Len(t, k1, 64)
}
