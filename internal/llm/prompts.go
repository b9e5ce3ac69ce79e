package llm

import (
	"fmt"
	"strings"

	"github.com/raaihank/lgpd-sentinel/internal/categories"
)

// EnabledAll tells the model that every PII type is in scope
const EnabledAll = "todos"

// ClassificationPrompt lists every category id with its subcategories
func ClassificationPrompt(text string, cats []categories.Category) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.ID, strings.Join(c.Subcategories, ", ")))
	}

	return fmt.Sprintf(`Classify the following text into one of these categories: %s.
Return ONLY JSON in the format: {"id": "Category", "subcategory": "Subcategory"}.
Text: %q`, strings.Join(parts, ", "), text)
}

// PrivacyPrompt restricts detection to the PII types named in enabledList
func PrivacyPrompt(text, enabledList string) string {
	if strings.TrimSpace(enabledList) == "" {
		enabledList = EnabledAll
	}

	return fmt.Sprintf(`Analyze the following text for Personal Identifiable Information (PII) or sensitive personal contexts.
Strictly follow the Brazilian LGPD and Access to Information Law standards.

IMPORTANT: Only detect and report the following PII types: %s
Ignore any other types of PII that are not in this list.

Criteria for 'Sensitive' (Sigiloso):
- Identity Documents: CPF, RG, CNH, Passaporte, Título de Eleitor, Certidão de Nascimento.
- Contact Info: Email, Telefone, Endereço, CEP.
- Financial Data: Conta Bancária, Cartão de Crédito, PIX (UUID).
- Vehicles: Placa de Veículo (antiga), Placa de Veículo (Mercosul).
- Health & Specifics: Prontuário Médico, Dados de Paciente, Conflitos Familiares.

Return ONLY JSON:
{
  "is_sensitive": boolean,
  "privacy_status": "Sigiloso" | "Público",
  "reason": "Short explanation (PT-BR)",
  "detected_pii": ["List ONLY the enabled types detected"]
}
Text: %q`, enabledList, text)
}
