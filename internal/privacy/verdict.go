package privacy

import (
	"strings"

	"github.com/samber/lo"
)

// Verdict sources
const (
	SourceRegex   = "regex"
	SourceLLM     = "llm"
	SourceCache   = "cache"
	SourceDefault = "default"
)

// DefaultPublicReason is reported when nothing sensitive was found
const DefaultPublicReason = "Nenhum dado sensível detectado"

// Verdict is the final privacy decision for one text
type Verdict struct {
	IsSensitive   bool     `json:"is_sensitive"`
	PrivacyStatus string   `json:"privacy_status"`
	Category      string   `json:"category"`
	Reason        string   `json:"reason"`
	DetectedPII   []string `json:"detected_pii"`
	Source        string   `json:"source,omitempty"`
}

// PublicVerdict is the non-sensitive default
func PublicVerdict() Verdict {
	return Verdict{
		IsSensitive:   false,
		PrivacyStatus: StatusPublico,
		Category:      MacroPublic,
		Reason:        DefaultPublicReason,
		DetectedPII:   []string{},
		Source:        SourceDefault,
	}
}

// OfflineVerdict builds a verdict from regex detections alone
func OfflineVerdict(labels []string) Verdict {
	if len(labels) == 0 {
		return PublicVerdict()
	}
	return Verdict{
		IsSensitive:   true,
		PrivacyStatus: StatusSigiloso,
		Category:      Resolve(labels),
		Reason:        "Dados detectados via regex: " + strings.Join(labels, ", "),
		DetectedPII:   append([]string(nil), labels...),
		Source:        SourceRegex,
	}
}

// NewVerdict reconciles a model's claim with the labels it reported. The text
// is sensitive if the model says so or if any label resolves to a non-public
// macro category. A sensitive verdict without a resolvable label is filed
// under personal data.
func NewVerdict(claimedSensitive bool, reason string, labels []string, source string) Verdict {
	labels = NormalizeLabels(labels)
	macro := Resolve(labels)

	sensitive := claimedSensitive || macro != MacroPublic
	if !sensitive {
		if reason == "" {
			reason = DefaultPublicReason
		}
		return Verdict{
			PrivacyStatus: StatusPublico,
			Category:      MacroPublic,
			Reason:        reason,
			DetectedPII:   labels,
			Source:        source,
		}
	}

	if macro == MacroPublic {
		macro = MacroPersonal
	}
	if reason == "" {
		reason = "Dados sensíveis identificados: " + strings.Join(labels, ", ")
	}
	return Verdict{
		IsSensitive:   true,
		PrivacyStatus: StatusSigiloso,
		Category:      macro,
		Reason:        reason,
		DetectedPII:   labels,
		Source:        source,
	}
}

// Restrict removes labels of known types that are not in allowedLabels.
// Labels outside the catalog are kept. The verdict is re-normalized.
func (v Verdict) Restrict(catalogLabels, allowedLabels []string) Verdict {
	known := lo.Uniq(catalogLabels)
	kept := lo.Filter(v.DetectedPII, func(l string, _ int) bool {
		return !lo.Contains(known, l) || lo.Contains(allowedLabels, l)
	})
	if len(kept) == len(v.DetectedPII) {
		return v
	}
	// the original reason may name the dropped labels
	return NewVerdict(v.IsSensitive && len(kept) > 0, "", kept, v.Source)
}
