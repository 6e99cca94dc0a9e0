package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
	"github.com/insightdelivered/statement-ingest/internal/normalize"
)

// rowOutcome is one candidate after normalization.
type rowOutcome struct {
	tx              models.NormalizedTransaction
	dateDefaulted   bool
	typeDefaulted   bool
	amountAmbiguous bool
	err             error
}

// normalizeRows fans candidates out to a bounded pool. Each worker writes only
// its own slot, so outcomes come back in source order.
func (p *Pipeline) normalizeRows(ctx context.Context, candidates []models.Candidate, today time.Time) ([]rowOutcome, error) {
	out := make([]rowOutcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range candidates {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = normalizeRow(candidates[i], today)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeRow never panics; a panic becomes a row failure.
func normalizeRow(c models.Candidate, today time.Time) (res rowOutcome) {
	defer func() {
		if r := recover(); r != nil {
			res = rowOutcome{
				tx:  models.NormalizedTransaction{Row: c.Row},
				err: common.NewRowError(c.Row, common.ErrRowProcessing, "processing failed: %v", r),
			}
		}
	}()

	date, ok := normalize.NormalizeDate(c.Date, today)
	res.dateDefaulted = !ok

	typ, ok := normalize.NormalizeType(c.TypeToken)
	res.typeDefaulted = !ok

	amount, err := normalize.ParseAmount(c.AmountToken)
	if errors.Is(err, common.ErrAmountAmbiguous) {
		res.amountAmbiguous = true
	}

	res.tx = models.NormalizedTransaction{
		Row:             c.Row,
		Date:            date,
		Type:            typ,
		Amount:          amount,
		Description:     strings.TrimSpace(c.Description),
		Category:        strings.TrimSpace(c.CategoryToken),
		Bank:            strings.TrimSpace(c.BankToken),
		TransactionType: c.TransactionType,
	}
	return res
}
