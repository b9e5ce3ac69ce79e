package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"github.com/raaihank/lgpd-sentinel/internal/submissions"
	"github.com/raaihank/lgpd-sentinel/internal/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var validate = validator.New()

// RecentLogsLimit bounds the recent_logs list of the dashboard
const RecentLogsLimit = 50

type analyzeRequest struct {
	Text string `json:"text" validate:"required"`
	// nil uses the system configuration; an empty list enables every type
	EnabledPIITypes []string `json:"enabled_pii_types" validate:"omitempty,dive,required"`
}

type submitRequest struct {
	Text     string `json:"text" validate:"required"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Privacy  string `json:"privacy" validate:"omitempty,oneof=Sigiloso Público"`
	Reason   string `json:"reason"`
}

type submitResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Privacy   string    `json:"privacy"`
	Category  string    `json:"category"`
}

type piiTypeInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// decodeRequest reads a JSON body into v and validates it
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Requisição muito grande")
			return false
		}
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Requisição inválida: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Texto vazio")
		return
	}

	start := time.Now()
	result := s.deps.Service.ClassifyAndFilter(r.Context(), req.Text, req.EnabledPIITypes)

	s.requestLogger(r).Info("Manifestation classified",
		zap.String("category_id", result.ID),
		zap.String("category_source", result.CategorySource),
		zap.String("privacy_status", result.PrivacyStatus),
		zap.String("source", result.Source),
	)
	s.broadcastClassification(r.URL.Path, result.ID, result.Verdict, time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Texto vazio")
		return
	}

	start := time.Now()
	verdict := s.deps.Service.AnalyzePrivacy(r.Context(), req.Text, req.EnabledPIITypes)
	s.broadcastClassification(r.URL.Path, "", verdict, time.Since(start))

	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Texto vazio")
		return
	}

	// Submissions without a verdict are analysed here so the log never
	// records an unclassified row.
	if req.Privacy == "" {
		v := s.deps.Service.AnalyzePrivacy(r.Context(), req.Text, nil)
		req.Privacy = v.PrivacyStatus
		if req.Category == "" {
			req.Category = v.Category
		}
		if req.Reason == "" {
			req.Reason = v.Reason
		}
	}

	entry, err := s.deps.Submissions.Append(submissions.Record{
		Text:          req.Text,
		Type:          req.Type,
		Category:      req.Category,
		Privacy:       req.Privacy,
		PrivacyReason: req.Reason,
	})
	if err != nil {
		s.requestLogger(r).Error("Failed to log submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao registrar manifestação")
		return
	}

	s.wsHub.Publish(websocket.EventTypeSubmission, websocket.SubmissionEvent{
		ID:       entry.ID,
		Type:     entry.Type,
		Category: entry.Category,
		Privacy:  entry.Privacy,
	})

	writeJSON(w, http.StatusOK, submitResponse{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Privacy:   entry.Privacy,
		Category:  entry.Category,
	})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Submissions.List()
	if err != nil {
		s.requestLogger(r).Error("Failed to read submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao ler manifestações")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": entries})
}

func (s *Server) handlePIITypes(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Service.Snapshot()
	enabled := lo.SliceToMap(snap.EnabledPIITypes, func(id string) (string, bool) { return id, true })
	allEnabled := len(snap.EnabledPIITypes) == 0

	types := lo.Map(s.deps.Service.Library().Types(), func(t privacy.PIIType, _ int) piiTypeInfo {
		return piiTypeInfo{ID: t.ID, Label: t.Label, Enabled: allEnabled || enabled[t.ID]}
	})
	writeJSON(w, http.StatusOK, map[string]any{"pii_types": types})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.deps.Catalog.All()})
}

func (s *Server) handleDashboardData(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Submissions.Summary(RecentLogsLimit)
	if err != nil {
		s.requestLogger(r).Error("Failed to summarize submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao ler manifestações")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Service.Snapshot().Masked())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch config.SystemConfigPatch
	if !decodeRequest(w, r, &patch) {
		return
	}

	// Unknown ids are kept; detection ignores them and a later catalog may
	// define them
	if patch.EnabledPIITypes != nil {
		lib := s.deps.Service.Library()
		unknown := lo.Filter(*patch.EnabledPIITypes, func(id string, _ int) bool {
			_, ok := lib.Lookup(id)
			return !ok
		})
		if len(unknown) > 0 {
			s.requestLogger(r).Warn("System config names unknown PII types", zap.Strings("unknown", unknown))
		}
	}

	prev, _ := s.deps.Store.Load()
	cfg, err := s.deps.Store.Update(patch)
	if err != nil {
		s.requestLogger(r).Error("Failed to update system config", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao salvar configuração")
		return
	}

	// Cached verdicts came from the previous model
	if s.deps.Cache != nil && (prev.LLMProvider != cfg.LLMProvider || prev.LLMModel != cfg.LLMModel) {
		if err := s.deps.Cache.Clear(r.Context()); err != nil {
			s.requestLogger(r).Warn("Failed to clear verdict cache", zap.Error(err))
		}
	}

	s.requestLogger(r).Info("System config updated",
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Strings("enabled_pii_types", cfg.EnabledPIITypes),
	)
	s.broadcastConfig("api", cfg)

	writeJSON(w, http.StatusOK, cfg.Masked())
}

func (s *Server) handleClearSubmissions(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Submissions.Clear(); err != nil {
		s.requestLogger(r).Error("Failed to clear submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Falha ao limpar manifestações")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	rc, err := s.deps.Submissions.Reader()
	if err != nil {
		s.requestLogger(r).Error("Failed to open submissions log", zap.Error(err))
		writeError(w, http.StatusNotFound, "Arquivo não encontrado")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="classifications.csv"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.requestLogger(r).Warn("CSV download interrupted", zap.Error(err))
	}
}

func (s *Server) broadcastClassification(endpoint, categoryID string, v privacy.Verdict, took time.Duration) {
	s.wsHub.Publish(websocket.EventTypeClassification, websocket.ClassificationEvent{
		Endpoint:    endpoint,
		CategoryID:  categoryID,
		Privacy:     v.PrivacyStatus,
		Macro:       v.Category,
		DetectedPII: v.DetectedPII,
		Source:      v.Source,
		DurationMS:  float64(took.Microseconds()) / 1000,
	})
}
