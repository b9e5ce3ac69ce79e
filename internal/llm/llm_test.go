package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const privacyJSON = `{"is_sensitive": true, "privacy_status": "Sigiloso", "reason": "CPF informado", "detected_pii": ["CPF"]}`

func testCategories() []categories.Category {
	return []categories.Category{
		{ID: "reclamacao", Name: "Reclamação", Subcategories: []string{"Atendimento", "Demora"}},
		{ID: "elogio", Name: "Elogio", Subcategories: []string{"Servidor"}},
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain", `{"id":"elogio","subcategory":"Servidor"}`},
		{"json fence", "```json\n{\"id\":\"elogio\",\"subcategory\":\"Servidor\"}\n```"},
		{"bare fence", "```\n{\"id\":\"elogio\",\"subcategory\":\"Servidor\"}\n```"},
		{"surrounding prose", `Claro! Aqui está: {"id":"elogio","subcategory":"Servidor"} Espero ter ajudado.`},
		{"think block", "<think>hmm {not this}</think>\n{\"id\":\"elogio\",\"subcategory\":\"Servidor\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Classification
			require.NoError(t, DecodeJSON(tt.raw, &c))
			assert.Equal(t, Classification{CategoryID: "elogio", Subcategory: "Servidor"}, c)
		})
	}

	var c Classification
	assert.Error(t, DecodeJSON("sem json aqui", &c))
	assert.Error(t, DecodeJSON("{quebrado", &c))
}

func TestPrompts(t *testing.T) {
	p := ClassificationPrompt("texto", testCategories())
	assert.Contains(t, p, "reclamacao (Atendimento, Demora)")
	assert.Contains(t, p, "elogio (Servidor)")

	pp := PrivacyPrompt("texto", "CPF, Email")
	assert.Contains(t, pp, "Only detect and report the following PII types: CPF, Email")

	assert.Contains(t, PrivacyPrompt("texto", ""), "following PII types: "+EnabledAll)
}

func TestGeminiBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "LGPD")

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + jsonEscape("```json\n"+privacyJSON+"\n```") + `"}]}}]}`))
	}))
	defer srv.Close()

	b := NewGemini("g-key", "", Options{BaseURL: srv.URL})
	assert.Equal(t, config.ProviderGemini, b.Name())
	assert.Equal(t, DefaultGeminiModel, b.Model())

	res := b.AnalyzePrivacy(context.Background(), "Meu CPF é 123.456.789-00", "CPF")
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.True(t, res.Analysis.IsSensitive)
	assert.Equal(t, []string{"CPF"}, res.Analysis.DetectedPII)
}

func TestOpenAIBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer o-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"id\":\"reclamacao\",\"subcategory\":\"Demora\"}"}}]}`))
	}))
	defer srv.Close()

	b := NewOpenAI("o-key", "gpt-4o-mini", Options{BaseURL: srv.URL})
	res := b.Classify(context.Background(), "a fila demorou", testCategories())
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.Equal(t, Classification{CategoryID: "reclamacao", Subcategory: "Demora"}, res.Classification)
}

func TestAnthropicBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "a-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Return ONLY JSON."))

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Resultado: ` + jsonEscape(privacyJSON) + `"}]}`))
	}))
	defer srv.Close()

	b := NewAnthropic("a-key", "", Options{BaseURL: srv.URL})
	res := b.AnalyzePrivacy(context.Background(), "texto", EnabledAll)
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.Equal(t, "Sigiloso", res.Analysis.PrivacyStatus)
}

func TestOllamaBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)
		assert.Equal(t, DefaultOllamaModel, req.Model)

		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: privacyJSON, Done: true})
	}))
	defer srv.Close()

	b := NewOllama(srv.URL+"/api/generate", "", Options{})
	res := b.AnalyzePrivacy(context.Background(), "texto", EnabledAll)
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.True(t, res.Analysis.IsSensitive)
}

func TestBackendFailuresAreResults(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		res := NewOpenAI("bad", "", Options{BaseURL: srv.URL}).AnalyzePrivacy(context.Background(), "x", EnabledAll)
		assert.Equal(t, StatusFailed, res.Status)
		var se *StatusError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.Code)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "não sei"})
		}))
		defer srv.Close()

		res := NewOllama(srv.URL, "", Options{}).Classify(context.Background(), "x", testCategories())
		assert.Equal(t, StatusFailed, res.Status)
		assert.Error(t, res.Err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		res := NewOllama(srv.URL, "", Options{Timeout: 50 * time.Millisecond}).AnalyzePrivacy(context.Background(), "x", EnabledAll)
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("unreachable", func(t *testing.T) {
		res := NewOllama("http://127.0.0.1:1", "", Options{Timeout: time.Second}).AnalyzePrivacy(context.Background(), "x", EnabledAll)
		assert.Equal(t, StatusFailed, res.Status)
	})
}

func TestSelect(t *testing.T) {
	tr := Transport{}

	tests := []struct {
		name      string
		cfg       config.SystemConfig
		creds     config.Credentials
		wantName  string
		wantModel string
	}{
		{
			name:     "no keys anywhere",
			cfg:      config.DefaultSystemConfig(),
			wantName: "",
		},
		{
			name:      "default provider uses env gemini key",
			cfg:       config.SystemConfig{},
			creds:     config.Credentials{GeminiAPIKey: "env"},
			wantName:  config.ProviderGemini,
			wantModel: DefaultGeminiModel,
		},
		{
			name:      "config key wins",
			cfg:       config.SystemConfig{LLMProvider: "openai", OpenAIAPIKey: "cfg", LLMModel: "gpt-4o-mini"},
			wantName:  config.ProviderOpenAI,
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "env key for chosen provider",
			cfg:       config.SystemConfig{LLMProvider: "anthropic"},
			creds:     config.Credentials{AnthropicAPIKey: "env"},
			wantName:  config.ProviderAnthropic,
			wantModel: DefaultAnthropicModel,
		},
		{
			name:      "missing key falls back to env gemini with default model",
			cfg:       config.SystemConfig{LLMProvider: "openai", LLMModel: "gpt-4o"},
			creds:     config.Credentials{GeminiAPIKey: "env"},
			wantName:  config.ProviderGemini,
			wantModel: DefaultGeminiModel,
		},
		{
			name:     "missing key and no gemini env",
			cfg:      config.SystemConfig{LLMProvider: "anthropic"},
			creds:    config.Credentials{OpenAIAPIKey: "env"},
			wantName: "",
		},
		{
			name:      "ollama needs no key",
			cfg:       config.SystemConfig{LLMProvider: "ollama"},
			wantName:  config.ProviderOllama,
			wantModel: DefaultOllamaModel,
		},
		{
			name:      "unknown provider uses last resort",
			cfg:       config.SystemConfig{LLMProvider: "deepseek"},
			creds:     config.Credentials{GeminiAPIKey: "env"},
			wantName:  config.ProviderGemini,
			wantModel: DefaultGeminiModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Select(tt.cfg, tt.creds, tr)
			if tt.wantName == "" {
				assert.Nil(t, b)
				return
			}
			require.NotNil(t, b)
			assert.Equal(t, tt.wantName, b.Name())
			assert.Equal(t, tt.wantModel, b.Model())
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unavailable", StatusUnavailable.String())
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
