package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCascade(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"empty", nil, MacroPublic},
		{"unknown label", []string{"Nome"}, MacroPublic},
		{"medical beats cpf", []string{LabelCPF, LabelMedicalRecord}, MacroMedicalRecord},
		{"violence beats health", []string{LabelPatientData, LabelFamilyConflict}, MacroDomesticViolence},
		{"patient is health", []string{LabelPatientData, LabelEmail}, MacroHealth},
		{"banking beats personal", []string{LabelCPF, LabelPIX}, MacroBanking},
		{"personal beats vehicle", []string{LabelPlateOld, LabelPhone}, MacroPersonal},
		{"vehicle", []string{LabelPlateMercosul}, MacroVehicle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.labels))
		})
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	labels := []string{LabelPlateOld, LabelCPF, LabelCreditCard, LabelPatientData}
	want := Resolve(labels)
	assert.Equal(t, MacroHealth, want)

	permutations := [][]string{
		{LabelPatientData, LabelCreditCard, LabelCPF, LabelPlateOld},
		{LabelCPF, LabelPatientData, LabelPlateOld, LabelCreditCard},
		{LabelCreditCard, LabelPlateOld, LabelPatientData, LabelCPF},
	}
	for _, p := range permutations {
		assert.Equal(t, want, Resolve(p))
	}
}

func TestMacroCategories(t *testing.T) {
	assert.Equal(t, []string{
		MacroMedicalRecord,
		MacroDomesticViolence,
		MacroHealth,
		MacroBanking,
		MacroPersonal,
		MacroVehicle,
		MacroPublic,
	}, MacroCategories())
}

func TestNormalizeLabels(t *testing.T) {
	got := NormalizeLabels([]string{" cpf ", "Chave PIX", "CPF", "", "Violência Doméstica", "Nome Completo"})
	assert.Equal(t, []string{LabelCPF, LabelPIX, LabelFamilyConflict, "Nome Completo"}, got)
}
