package privacy

import (
	"strings"

	"github.com/samber/lo"
)

// Privacy status values
const (
	StatusSigiloso = "Sigiloso"
	StatusPublico  = "Público"
)

// Macro categories, in cascade order
const (
	MacroMedicalRecord    = "Prontuário Médico"
	MacroDomesticViolence = "Dados Sensíveis (Violência Doméstica)"
	MacroHealth           = "Dados de Saúde"
	MacroBanking          = "Dados Bancários"
	MacroPersonal         = "Dados Pessoais"
	MacroVehicle          = "Dados Veiculares"
	MacroPublic           = "Público"
)

// Canonical PII labels
const (
	LabelCPF              = "CPF"
	LabelRG               = "RG"
	LabelCNH              = "CNH"
	LabelPassport         = "Passaporte"
	LabelVoterID          = "Título de Eleitor"
	LabelBirthCertificate = "Certidão de Nascimento"
	LabelEmail            = "Email"
	LabelPhone            = "Telefone"
	LabelAddress          = "Endereço"
	LabelCEP              = "CEP"
	LabelBankAccount      = "Conta Bancária"
	LabelCreditCard       = "Cartão de Crédito"
	LabelPIX              = "PIX (UUID)"
	LabelPlateOld         = "Placa de Veículo (antiga)"
	LabelPlateMercosul    = "Placa de Veículo (Mercosul)"
	LabelMedicalRecord    = "Prontuário Médico"
	LabelPatientData      = "Dados de Paciente"
	LabelFamilyConflict   = "Conflitos Familiares"
)

var (
	personalGroup = []string{
		LabelCPF, LabelRG, LabelEmail, LabelPhone, LabelAddress, LabelCEP,
		LabelCNH, LabelPassport, LabelVoterID, LabelBirthCertificate,
	}
	bankingGroup = []string{LabelBankAccount, LabelPIX, LabelCreditCard}
	healthGroup  = []string{LabelMedicalRecord, LabelPatientData}
	vehicleGroup = []string{LabelPlateOld, LabelPlateMercosul}
)

type cascadeRule struct {
	macro   string
	members []string
}

// First matching rule wins regardless of how many labels match later rules.
var cascade = []cascadeRule{
	{MacroMedicalRecord, []string{LabelMedicalRecord}},
	{MacroDomesticViolence, []string{LabelFamilyConflict}},
	{MacroHealth, healthGroup},
	{MacroBanking, bankingGroup},
	{MacroPersonal, personalGroup},
	{MacroVehicle, vehicleGroup},
}

// MacroCategories lists every value Resolve can return
func MacroCategories() []string {
	out := lo.Map(cascade, func(r cascadeRule, _ int) string { return r.macro })
	return append(out, MacroPublic)
}

// Resolve maps detected labels onto a single macro category
func Resolve(labels []string) string {
	if len(labels) == 0 {
		return MacroPublic
	}
	present := lo.SliceToMap(labels, func(l string) (string, struct{}) {
		return l, struct{}{}
	})
	for _, rule := range cascade {
		for _, member := range rule.members {
			if _, ok := present[member]; ok {
				return rule.macro
			}
		}
	}
	return MacroPublic
}

// aliases maps lower-cased label spellings seen in model output to canonical labels
var aliases = map[string]string{
	"cpf":                         LabelCPF,
	"rg":                          LabelRG,
	"identidade":                  LabelRG,
	"cnh":                         LabelCNH,
	"carteira de motorista":       LabelCNH,
	"passaporte":                  LabelPassport,
	"título de eleitor":           LabelVoterID,
	"titulo de eleitor":           LabelVoterID,
	"certidão de nascimento":      LabelBirthCertificate,
	"certidao de nascimento":      LabelBirthCertificate,
	"email":                       LabelEmail,
	"e-mail":                      LabelEmail,
	"telefone":                    LabelPhone,
	"celular":                     LabelPhone,
	"endereço":                    LabelAddress,
	"endereco":                    LabelAddress,
	"cep":                         LabelCEP,
	"conta bancária":              LabelBankAccount,
	"conta bancaria":              LabelBankAccount,
	"dados bancários":             LabelBankAccount,
	"cartão de crédito":           LabelCreditCard,
	"cartao de credito":           LabelCreditCard,
	"pix":                         LabelPIX,
	"chave pix":                   LabelPIX,
	"pix (uuid)":                  LabelPIX,
	"placa de veículo (antiga)":   LabelPlateOld,
	"placa de veículo (mercosul)": LabelPlateMercosul,
	"placa mercosul":              LabelPlateMercosul,
	"placa de veículo":            LabelPlateOld,
	"placa":                       LabelPlateOld,
	"prontuário médico":           LabelMedicalRecord,
	"prontuario medico":           LabelMedicalRecord,
	"prontuário":                  LabelMedicalRecord,
	"dados de paciente":           LabelPatientData,
	"paciente":                    LabelPatientData,
	"dados de saúde":              LabelPatientData,
	"conflitos familiares":        LabelFamilyConflict,
	"violência doméstica":         LabelFamilyConflict,
	"violencia domestica":         LabelFamilyConflict,
}

// NormalizeLabel maps a free-form label to its canonical spelling.
// Unrecognized labels come back trimmed but otherwise untouched.
func NormalizeLabel(label string) string {
	trimmed := strings.TrimSpace(label)
	if canonical, ok := aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// NormalizeLabels canonicalizes and de-duplicates labels, dropping blanks
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if n := NormalizeLabel(l); n != "" {
			out = append(out, n)
		}
	}
	return lo.Uniq(out)
}
