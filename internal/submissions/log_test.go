package submissions

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "data", "classifications.csv"), nil)
	require.NoError(t, err)
	return l
}

func clock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}

func TestOpenWritesHeader(t *testing.T) {
	l := openTestLog(t)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data))

	// reopening keeps existing rows
	_, err = l.Append(Record{Text: "x"})
	require.NoError(t, err)
	l2, err := Open(l.Path(), nil)
	require.NoError(t, err)
	entries, err := l2.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendAndList(t *testing.T) {
	l := openTestLog(t)
	l.now = clock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)))

	first, err := l.Append(Record{
		Text:          "Meu CPF é 123.456.789-00,\nmoro no Guará",
		Type:          "Reclamação",
		Category:      "Dados Pessoais",
		Privacy:       "Sigiloso",
		PrivacyReason: "Dados detectados via regex: CPF",
	})
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, first.Timestamp.Location())
	assert.Equal(t, "Meu CPF é 123.456.789-00,\nmoro no Guará", first.TextSnippet)

	second, err := l.Append(Record{Text: "Parabéns pelo atendimento", Type: "Elogio", Category: "Público", Privacy: "Público"})
	require.NoError(t, err)

	entries, err := l.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, first, entries[1])
}

func TestSummary(t *testing.T) {
	l := openTestLog(t)
	l.now = clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, rec := range []Record{
		{Text: "a", Category: "Dados Pessoais", Privacy: "Sigiloso"},
		{Text: "b", Category: "Público", Privacy: "Público"},
		{Text: "c", Category: "Dados Pessoais", Privacy: "Sigiloso"},
		{Text: "d"},
	} {
		_, err := l.Append(rec)
		require.NoError(t, err)
	}

	s, err := l.Summary(2)
	require.NoError(t, err)
	assert.Equal(t, 4, s.TotalCount)
	assert.Equal(t, map[string]int{"Sigiloso": 2, "Público": 1, "N/A": 1}, s.PrivacyCounts)
	assert.Equal(t, map[string]int{"Dados Pessoais": 2, "Público": 1, "N/A": 1}, s.CategoryCounts)
	require.Len(t, s.RecentLogs, 2)
	assert.Equal(t, "d", s.RecentLogs[0].TextSnippet)
	assert.Equal(t, "c", s.RecentLogs[1].TextSnippet)
}

func TestClear(t *testing.T) {
	l := openTestLog(t)
	_, err := l.Append(Record{Text: "a"})
	require.NoError(t, err)

	require.NoError(t, l.Clear())
	entries, err := l.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	rc, err := l.Reader()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data))
}

func TestConcurrentAppends(t *testing.T) {
	l := openTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Append(Record{Text: "texto, com \"aspas\" e vírgula"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := l.List()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
	for _, e := range entries {
		assert.Equal(t, "texto, com \"aspas\" e vírgula", e.TextSnippet)
	}
}

func TestReadEntriesSkipsBadRows(t *testing.T) {
	in := "id,timestamp,type,category,privacy,privacy_reason,text_snippet\n" +
		"1,2025-01-01T00:00:00Z,Elogio,Público,Público,,ok\n" +
		"2,ontem,Elogio,Público,Público,,bad\n" +
		"3,2025-01-02T00:00:00Z\n"

	entries, err := ReadEntries(strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ok", entries[0].TextSnippet)
	assert.Equal(t, "3", entries[1].ID)
	assert.Empty(t, entries[1].Category)

	_, err = ReadEntries(strings.NewReader("foo,bar\n"), nil)
	assert.Error(t, err)

	entries, err = ReadEntries(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendKeepsFullText(t *testing.T) {
	l := openTestLog(t)
	l.now = clock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		text string
	}{
		{"long text with trailing cpf", strings.Repeat("Solicito informações sobre o processo. ", 13) + "CPF 123.456.789-00"},
		{"multi-line", "Prezados,\n\n\tmeu telefone é (61) 99999-8888\n"},
		{"csv delimiters", "a,b;\"c\"\nd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := l.Append(Record{Text: tt.text, Privacy: "Sigiloso"})
			require.NoError(t, err)
			assert.Equal(t, tt.text, e.TextSnippet)

			entries, err := l.List()
			require.NoError(t, err)
			require.NotEmpty(t, entries)
			assert.Equal(t, tt.text, entries[0].TextSnippet)
		})
	}
}
