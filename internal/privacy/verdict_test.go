package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertConsistent(t *testing.T, v Verdict) {
	t.Helper()
	assert.Equal(t, v.IsSensitive, v.PrivacyStatus == StatusSigiloso)
	assert.Equal(t, !v.IsSensitive, v.Category == MacroPublic)
	assert.Contains(t, MacroCategories(), v.Category)
	assert.NotNil(t, v.DetectedPII)
}

func TestPublicVerdict(t *testing.T) {
	v := PublicVerdict()
	assertConsistent(t, v)
	assert.False(t, v.IsSensitive)
	assert.Empty(t, v.DetectedPII)
	assert.Equal(t, SourceDefault, v.Source)
}

func TestOfflineVerdict(t *testing.T) {
	v := OfflineVerdict([]string{LabelCPF, LabelEmail})
	assertConsistent(t, v)
	assert.True(t, v.IsSensitive)
	assert.Equal(t, MacroPersonal, v.Category)
	assert.Equal(t, "Dados detectados via regex: CPF, Email", v.Reason)

	assertConsistent(t, OfflineVerdict(nil))
}

func TestNewVerdictNormalization(t *testing.T) {
	t.Run("labels imply sensitivity", func(t *testing.T) {
		v := NewVerdict(false, "", []string{"Conta Bancária"}, SourceLLM)
		assertConsistent(t, v)
		assert.Equal(t, MacroBanking, v.Category)
	})

	t.Run("claimed sensitive without known label", func(t *testing.T) {
		v := NewVerdict(true, "nome completo", []string{"Nome"}, SourceLLM)
		assertConsistent(t, v)
		assert.Equal(t, MacroPersonal, v.Category)
		assert.Equal(t, "nome completo", v.Reason)
	})

	t.Run("public", func(t *testing.T) {
		v := NewVerdict(false, "", nil, SourceLLM)
		assertConsistent(t, v)
		assert.Equal(t, DefaultPublicReason, v.Reason)
	})

	t.Run("aliases resolve", func(t *testing.T) {
		v := NewVerdict(true, "", []string{"prontuário", "cpf"}, SourceLLM)
		assertConsistent(t, v)
		assert.Equal(t, MacroMedicalRecord, v.Category)
		assert.Equal(t, []string{LabelMedicalRecord, LabelCPF}, v.DetectedPII)
	})
}

func TestVerdictRestrict(t *testing.T) {
	catalog := []string{LabelCPF, LabelEmail, LabelPlateOld}

	t.Run("drops disabled labels", func(t *testing.T) {
		v := NewVerdict(true, "", []string{LabelCPF, LabelPlateOld}, SourceLLM)
		r := v.Restrict(catalog, []string{LabelPlateOld})
		assertConsistent(t, r)
		assert.Equal(t, []string{LabelPlateOld}, r.DetectedPII)
		assert.Equal(t, MacroVehicle, r.Category)
	})

	t.Run("nothing left is public", func(t *testing.T) {
		v := NewVerdict(true, "CPF encontrado", []string{LabelCPF}, SourceLLM)
		r := v.Restrict(catalog, []string{LabelEmail})
		assertConsistent(t, r)
		assert.False(t, r.IsSensitive)
	})

	t.Run("untouched when all allowed", func(t *testing.T) {
		v := NewVerdict(true, "motivo", []string{LabelCPF}, SourceLLM)
		assert.Equal(t, v, v.Restrict(catalog, catalog))
	})
}
