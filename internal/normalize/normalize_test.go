package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.234,56", "1234.56"},
		{"R$ 5.000,00", "5000"},
		{"R$ 46,00", "46"},
		{"-R$ 50,00", "50"},
		{"46,00-", "46"},
		{"(1.234,56)", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"1,234,567.89", "1234567.89"},
		{"12,5", "12.5"},
		{"1,234", "1234"},
		{"1,234,56", "1234.56"},
		{"46.00", "46"},
		{"1.234", "1234"},
		{"1.234.567", "1234567"},
		{"1.234.56", "1234.56"},
		{"$ 99", "99"},
		{"R$ 1.500,10", "1500.1"},
		{",50", "0.5"},
		{"300", "300"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  error
	}{
		{"", common.ErrAmountInvalid},
		{"R$", common.ErrAmountInvalid},
		{"abc", common.ErrAmountInvalid},
		{"12a,00", common.ErrAmountInvalid},
		{"1.234,567", common.ErrAmountAmbiguous},
		{"1,2,3.4.5", common.ErrAmountAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseAmount(tt.input)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, NormalizeAmount(tt.input).IsZero())
		})
	}
}

func TestNormalizeAmountNeverNegative(t *testing.T) {
	for _, in := range []string{"-1,00", "-R$ 2.500,00", "- 7"} {
		assert.False(t, NormalizeAmount(in).IsNegative(), in)
	}
}

func TestParseDateISOIdentity(t *testing.T) {
	for _, in := range []string{"2025-05-30", "2024-02-29", "1999-12-31", "2000-01-01"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, d.String())
	}
}

func TestParseDateBrazilian(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"05/02/2025", "2025-02-05"},
		{"5/2/2025", "2025-02-05"},
		{"05/02/25", "2025-02-05"},
		{"31/12/49", "2049-12-31"},
		{"01/01/50", "1950-01-01"},
		{"15/08/99", "1999-08-15"},
		{" 29/02/2024 ", "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestParseDateRejectsImpossibleDates(t *testing.T) {
	for _, in := range []string{"31/02/2024", "29/02/2023", "2024-02-30", "2024-13-01", "00/01/2024", "hoje", "2024/01/01", ""} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, common.ErrDateUnparseable, in)
	}
}

func TestNormalizeDateFallsBackToToday(t *testing.T) {
	today := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

	d, ok := NormalizeDate("31/02/2024", today)
	assert.False(t, ok)
	assert.Equal(t, "2026-03-14", d.String())

	d, ok = NormalizeDate("2024-02-29", today)
	assert.True(t, ok)
	assert.Equal(t, "2024-02-29", d.String())
}

func TestExpandYear(t *testing.T) {
	assert.Equal(t, 2000, ExpandYear(0))
	assert.Equal(t, 2049, ExpandYear(49))
	assert.Equal(t, 1950, ExpandYear(50))
	assert.Equal(t, 2024, ExpandYear(2024))
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		input string
		want  models.TxType
		known bool
	}{
		{"Saída", models.TypeSaida, true},
		{"saida", models.TypeSaida, true},
		{"DESPESA", models.TypeSaida, true},
		{"débito", models.TypeSaida, true},
		{"gasto", models.TypeSaida, true},
		{"expense", models.TypeSaida, true},
		{"OUT", models.TypeSaida, true},
		{"entrada", models.TypeEntrada, true},
		{"Receita", models.TypeEntrada, true},
		{"crédito", models.TypeEntrada, true},
		{"income", models.TypeEntrada, true},
		{"in", models.TypeEntrada, true},
		{"Transferência", models.TypeTransferencia, true},
		{"transferencia", models.TypeTransferencia, true},
		{" transfer ", models.TypeTransferencia, true},
		{"pix", models.TypeEntrada, false},
		{"", models.TypeEntrada, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeType(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "salario mensal", Fold("Salário Mensal"))
	assert.Equal(t, "acao pao", Fold("AÇÃO PÃO"))
}
