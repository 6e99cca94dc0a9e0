package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/extractor/pdftest"
	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/storage"
)

var clock = func() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

// countingStore wraps a MemoryStore and counts collaborator calls.
type countingStore struct {
	*storage.MemoryStore
	finds, inserts int
	lastSince      models.CalendarDate
	findErr        error
	insertErr      error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *countingStore) FindCandidateRecords(ctx context.Context, userID string, since models.CalendarDate) ([]models.ExistingRecord, error) {
	s.finds++
	s.lastSince = since
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindCandidateRecords(ctx, userID, since)
}

func (s *countingStore) InsertRecords(ctx context.Context, userID string, txs []models.NormalizedTransaction) error {
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryStore.InsertRecords(ctx, userID, txs)
}

func newTestPipeline(store Store, opts ...Option) *Pipeline {
	return New(store, nil, append([]Option{WithClock(clock), WithWorkers(3)}, opts...)...)
}

func eventsOf(r *models.ImportResult, kind models.EventKind) []models.Event {
	var out []models.Event
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestImportPasteExample(t *testing.T) {
	store := newCountingStore()
	p := newTestPipeline(store)

	res, err := p.Import(context.Background(), Request{
		UserID: "u1",
		Text:   "05/02/2025\tSalário Mensal\tentrada\tPro-Labore\tCONTA SIMPLES\tR$ 5.000,00",
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourcePaste, res.Source)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Accepted, 1)
	tx := res.Accepted[0]
	assert.Equal(t, "2025-02-05", tx.Date.String())
	assert.Equal(t, models.TypeEntrada, tx.Type)
	assert.Equal(t, "5000.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "Salário Mensal", tx.Description)
	assert.Equal(t, "Pro-Labore", tx.Category)
	assert.Equal(t, "CONTA SIMPLES", tx.Bank)

	assert.Equal(t, models.Counts{Success: 1}, res.Counts)
	assert.Equal(t, 1, store.finds)
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.Len("u1"))

	// 2025-02-05 is older than the 90-day window ending 2025-06-15
	assert.Len(t, eventsOf(res, models.EventOutsideWindow), 1)
}

func TestImportIsIdempotentForRowsOlderThanLookback(t *testing.T) {
	store := newCountingStore()
	p := newTestPipeline(store)
	req := Request{
		UserID: "u1",
		Text:   "05/02/2025\tSalário Mensal\tentrada\tPro-Labore\tCONTA SIMPLES\tR$ 5.000,00",
	}

	first, err := p.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Counts.Success)

	second, err := p.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, second.Counts.Success)
	assert.Equal(t, 1, second.Counts.Duplicate)
	assert.Equal(t, 1, store.Len("u1"))

	// one lookup, reaching back to the row's own date
	assert.Equal(t, 2, store.finds)
	assert.Equal(t, "2025-02-05", store.lastSince.String())
}

func TestImportLookbackWindowWhenRowsAreRecent(t *testing.T) {
	store := newCountingStore()
	p := newTestPipeline(store, WithLookbackDays(30))

	_, err := p.Import(context.Background(), Request{
		UserID: "u1",
		Text:   "10/06/2025\tPadaria\tsaida\tComida\tC6 BANK\tR$ 12,00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-05-16", store.lastSince.String())
}

func TestImportCSVExample(t *testing.T) {
	p := newTestPipeline(newCountingStore())

	res, err := p.Import(context.Background(), Request{
		UserID:   "u1",
		Filename: "extrato.csv",
		Data:     []byte("2025-05-30;blackdog;R$ 46,00;Saída;C6 BANK;Comida\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourceCSV, res.Source)
	require.Len(t, res.Accepted, 1)
	tx := res.Accepted[0]
	assert.Equal(t, "2025-05-30", tx.Date.String())
	assert.True(t, decimal.RequireFromString("46").Equal(tx.Amount))
	assert.Equal(t, models.TypeSaida, tx.Type)
	assert.Equal(t, "blackdog", tx.Description)
	assert.Equal(t, "C6 BANK", tx.Bank)
	assert.Equal(t, "Comida", tx.Category)
}

func TestImportCSVSplitAmountIsNotTruncated(t *testing.T) {
	res, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{
		UserID:   "u1",
		Filename: "extrato.csv",
		Data:     []byte("2025-05-30,blackdog,saida,Comida,C6 BANK,46,50\n2025-05-31,Padaria,saida,Comida,C6 BANK,1,2,3\n"),
	})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "46.50", res.Accepted[0].Amount.StringFixed(2))
	assert.Len(t, eventsOf(res, models.EventAmountRejoined), 1)

	assert.Equal(t, 1, res.Counts.Skipped)
	assert.Equal(t, []string{"row 2: 8 fields, expected 6"}, res.Errors)
}

func TestImportIsIdempotent(t *testing.T) {
	store := newCountingStore()
	p := newTestPipeline(store)
	csv := []byte(strings.Join([]string{
		"data;descricao;valor;tipo;banco;categoria",
		"2025-05-30;blackdog;R$ 46,00;Saída;C6 BANK;Comida",
		"2025-06-01;Uber *Trip;R$ 23,90;saida;C6 BANK;Transporte",
		"2025-06-05;Salário;R$ 5.000,00;entrada;ITAU;Pro-Labore",
	}, "\n"))
	req := Request{UserID: "u1", Filename: "extrato.csv", Data: csv}

	first, err := p.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Counts.Success)
	assert.Zero(t, first.Counts.Duplicate)

	second, err := p.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, second.Counts.Success)
	assert.Equal(t, 3, second.Counts.Duplicate)
	assert.Empty(t, second.Accepted)
	for _, v := range second.Verdicts {
		assert.True(t, v.IsDuplicate)
		assert.Equal(t, 100, v.Similarity)
		assert.NotEmpty(t, v.MatchedRecordID)
	}

	assert.Equal(t, 3, store.Len("u1"))
	assert.Equal(t, 1, store.inserts, "nothing to insert on the second run")
}

func TestImportValidation(t *testing.T) {
	text := strings.Join([]string{
		"01/06/2025\tPadaria\tsaida\tComida\tC6 BANK\tR$ 0,00",
		"02/06/2025\t\tsaida\tComida\tC6 BANK\tR$ 10,00",
		"03/06/2025\tCarro\tsaida\tTransporte\tC6 BANK\tR$ 1.000.000,00",
		"04/06/2025\tAmbíguo\tsaida\tOutros\tC6 BANK\t1.234.567,8,9",
		"05/06/2025\tCafé\tsaida\tComida\tC6 BANK\tR$ 8,50",
	}, "\n")

	res, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{UserID: "u1", Text: text})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Counts.Success)
	assert.Equal(t, 4, res.Counts.Skipped)
	assert.Equal(t, "Café", res.Accepted[0].Description)

	assert.Len(t, eventsOf(res, models.EventZeroAmount), 2)
	assert.Len(t, eventsOf(res, models.EventMissingDesc), 1)
	assert.Len(t, eventsOf(res, models.EventOverLimit), 1)
	assert.Equal(t, 1, res.Anomalies.AmountAmbiguous)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, "row 1: amount is zero or unreadable", res.Errors[0])
	assert.Equal(t, "row 2: missing description", res.Errors[1])
}

func TestImportDefaultsAreCountedAnomalies(t *testing.T) {
	text := "31/02/2024\tPadaria\tqualquer\tComida\tC6 BANK\tR$ 12,00"

	res, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{UserID: "u1", Text: text})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "2025-06-15", res.Accepted[0].Date.String())
	assert.Equal(t, models.TypeEntrada, res.Accepted[0].Type)
	assert.Equal(t, models.Anomalies{DateDefaulted: 1, TypeDefaulted: 1}, res.Anomalies)
	assert.Len(t, eventsOf(res, models.EventDateDefaulted), 1)
	assert.Len(t, eventsOf(res, models.EventTypeDefaulted), 1)
}

func TestImportKeepsSourceOrder(t *testing.T) {
	var lines []string
	for i := 1; i <= 40; i++ {
		lines = append(lines, fmt.Sprintf("2025-06-01;Compra %02d;R$ %d,00;saida;C6 BANK;Outros", i, i))
	}

	res, err := newTestPipeline(newCountingStore(), WithWorkers(8)).Import(context.Background(), Request{
		UserID: "u1", Source: models.SourceCSV, Data: []byte(strings.Join(lines, "\n")),
	})
	require.NoError(t, err)

	require.Len(t, res.Accepted, 40)
	for i, tx := range res.Accepted {
		assert.Equal(t, i+1, tx.Row)
		assert.Equal(t, fmt.Sprintf("Compra %02d", i+1), tx.Description)
	}
}

func TestImportDryRun(t *testing.T) {
	store := newCountingStore()
	res, err := newTestPipeline(store).Import(context.Background(), Request{
		UserID: "u1",
		Text:   "05/06/2025\tCafé\tsaida\tComida\tC6 BANK\tR$ 8,50",
		DryRun: true,
	})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Counts.Success)
	assert.Zero(t, store.inserts)
	assert.Zero(t, store.Len("u1"))
}

func TestImportErrorCap(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, "05/06/2025\tCafé\tsaida\tComida\tC6 BANK\tR$ 0,00")
	}

	res, err := newTestPipeline(newCountingStore(), WithMaxErrors(2)).Import(context.Background(), Request{
		UserID: "u1", Text: strings.Join(lines, "\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Counts.Skipped)
	assert.Len(t, res.Errors, 2)
}

func TestImportPDF(t *testing.T) {
	lines := []string{
		"C6 BANK - Extrato de conta corrente",
		"Periodo 01/05/2025 a 31/05/2025",
		"02/05 02/05 Pix enviado Padaria Central -R$ 23,50",
		"05/05 05/05 Pix recebido Fulano de Tal R$ 1.200,00",
	}
	locked := pdftest.Build(lines, "s3nha")

	t.Run("needs password", func(t *testing.T) {
		store := newCountingStore()
		res, err := newTestPipeline(store).Import(context.Background(), Request{
			UserID: "u1", Filename: "extrato.pdf", Data: locked,
		})
		require.NoError(t, err)
		assert.True(t, res.NeedsPassword)
		assert.Empty(t, res.Accepted)
		assert.Equal(t, models.Counts{}, res.Counts)
		assert.Zero(t, store.finds)
		assert.Len(t, eventsOf(res, models.EventPasswordRequested), 1)
	})

	t.Run("with password", func(t *testing.T) {
		res, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{
			UserID: "u1", Filename: "EXTRATO.PDF", Data: locked, Password: "s3nha",
		})
		require.NoError(t, err)
		assert.False(t, res.NeedsPassword)
		assert.Equal(t, "C6 BANK", res.BankName)
		require.Len(t, res.Accepted, 2)

		assert.Equal(t, "2025-05-02", res.Accepted[0].Date.String())
		assert.Equal(t, models.TypeSaida, res.Accepted[0].Type)
		assert.Equal(t, "23.50", res.Accepted[0].Amount.StringFixed(2))
		assert.Equal(t, "Pix enviado", res.Accepted[0].TransactionType)
		assert.Equal(t, models.TypeEntrada, res.Accepted[1].Type)
		assert.Equal(t, "1200.00", res.Accepted[1].Amount.StringFixed(2))
	})

	t.Run("unrecognized layout", func(t *testing.T) {
		data := pdftest.Build([]string{"Relatorio trimestral de atividades da empresa"}, "")
		_, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{
			UserID: "u1", Filename: "relatorio.pdf", Data: data,
		})
		assert.ErrorIs(t, err, common.ErrFormatUnrecognized)
	})

	t.Run("empty statement", func(t *testing.T) {
		data := pdftest.Build([]string{"C6 BANK - Extrato de conta corrente", "Nao ha lancamentos no periodo"}, "")
		res, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{
			UserID: "u1", Filename: "vazio.pdf", Data: data,
		})
		require.NoError(t, err)
		assert.Empty(t, res.Accepted)
		assert.Len(t, eventsOf(res, models.EventStatementEmpty), 1)
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := newTestPipeline(newCountingStore()).Import(context.Background(), Request{
			UserID: "u1", Filename: "x.pdf", Data: []byte("not a pdf at all"),
		})
		assert.ErrorIs(t, err, common.ErrExtractionFailure)
	})
}

func TestImportStoreFailures(t *testing.T) {
	req := Request{UserID: "u1", Text: "05/06/2025\tCafé\tsaida\tComida\tC6 BANK\tR$ 8,50"}

	t.Run("lookup", func(t *testing.T) {
		store := newCountingStore()
		store.findErr = errors.New("connection refused")
		_, err := newTestPipeline(store).Import(context.Background(), req)
		assert.ErrorIs(t, err, common.ErrStore)
		assert.Zero(t, store.inserts)
	})

	t.Run("insert", func(t *testing.T) {
		store := newCountingStore()
		store.insertErr = errors.New("disk full")
		_, err := newTestPipeline(store).Import(context.Background(), req)
		assert.ErrorIs(t, err, common.ErrStore)
	})
}

func TestImportRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown extension", Request{Filename: "notes.docx", Data: []byte("x")}, common.ErrUnsupportedSource},
		{"nothing given", Request{}, common.ErrUnsupportedSource},
		{"unknown source", Request{Source: "ofx", Data: []byte("x")}, common.ErrUnsupportedSource},
		{"empty csv", Request{Filename: "a.csv"}, common.ErrExtractionFailure},
		{"csv without rows", Request{Filename: "a.csv", Data: []byte("a;b\n")}, common.ErrFormatUnrecognized},
	}

	p := newTestPipeline(newCountingStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Import(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
		})
	}
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(newCountingStore()).Import(ctx, Request{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectSource(t *testing.T) {
	tests := map[string]models.Source{
		"extrato.pdf":   models.SourcePDF,
		"Extrato.CSV":   models.SourceCSV,
		"planilha.xlsx": models.SourceXLSX,
		"antigo.xls":    models.SourceXLS,
		"colado.txt":    models.SourcePaste,
	}
	for name, want := range tests {
		got, err := DetectSource(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := DetectSource("foto.png")
	assert.ErrorIs(t, err, common.ErrUnsupportedSource)
	assert.Contains(t, common.UserMessage(err), ".png")
}
