package extractor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/extractor/pdftest"
)

var statementLines = []string{
	"C6 BANK - Extrato de conta corrente",
	"Periodo 01/05/2025 a 31/05/2025",
	"02/05 02/05 Pix enviado Padaria Central -R$ 23,50",
	"05/05 05/05 Pix recebido Fulano de Tal R$ 1.200,00",
}

func TestExtractPlainPDF(t *testing.T) {
	pages, err := Extract(pdftest.Build(statementLines, ""), "")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	lines := strings.Split(pages[0], "\n")
	assert.Equal(t, statementLines, lines)
}

func TestExtractKeepsPageOrder(t *testing.T) {
	data := pdftest.BuildPages([][]string{
		{"Pagina um do extrato bancario"},
		{"Pagina dois do extrato bancario"},
	}, "")

	pages, err := Extract(data, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pagina um do extrato bancario", "Pagina dois do extrato bancario"}, pages)
}

func TestExtractPasswordProtected(t *testing.T) {
	data := pdftest.Build(statementLines, "s3nha")

	t.Run("no password", func(t *testing.T) {
		pages, err := Extract(data, "")
		assert.ErrorIs(t, err, common.ErrPasswordRequired)
		assert.NotErrorIs(t, err, common.ErrExtractionFailure)
		assert.Empty(t, pages)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := Extract(data, "errada")
		assert.ErrorIs(t, err, common.ErrPasswordRequired)
		assert.Equal(t, "the PDF password is not correct", common.UserMessage(err))
	})

	t.Run("right password", func(t *testing.T) {
		pages, err := Extract(data, "s3nha")
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Contains(t, pages[0], "Pix recebido Fulano de Tal R$ 1.200,00")
	})
}

func TestExtractUnsupportedEncryption(t *testing.T) {
	locked := pdftest.Build(statementLines, "s3nha")
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"revision 6", "/V 1 /R 2", "/V 5 /R 6"},
		{"256-bit key", "/V 1 /R 2", "/V 2 /R 3 /Length 256"},
		{"v4 without an AESV2 crypt filter", "/V 1 /R 2", "/V 4 /R 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The security dictionary sits in the trailer, after every xref offset.
			data := bytes.Replace(locked, []byte(tt.from), []byte(tt.to), 1)
			require.NotEqual(t, locked, data)
			for _, password := range []string{"", "s3nha"} {
				_, err := Extract(data, password)
				assert.ErrorIs(t, err, common.ErrEncryption)
				assert.ErrorIs(t, err, common.ErrExtractionFailure)
				assert.NotErrorIs(t, err, common.ErrPasswordRequired)
				assert.Contains(t, common.UserMessage(err), "does not support")
			}
		})
	}
}

func TestExtractUnreadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("this is a plain text file pretending to be a statement")},
		{"truncated", pdftest.Build(statementLines, "")[:200]},
		{"no text layer", pdftest.Build(nil, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data, "")
			assert.ErrorIs(t, err, common.ErrExtractionFailure)
		})
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extrato.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build(statementLines, ""), 0o600))

	pages, err := ExtractFile(path, "")
	require.NoError(t, err)
	assert.Contains(t, pages[0], "C6 BANK")

	_, err = ExtractFile(filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.ErrorIs(t, err, common.ErrExtractionFailure)
}

func TestIsReadableText(t *testing.T) {
	assert.True(t, isReadableText([]string{"Extrato de conta corrente, período de maio"}))
	assert.False(t, isReadableText([]string{"curto"}))
	assert.False(t, isReadableText([]string{strings.Repeat("一二三", 20)}))
}
