// Package pipeline runs an import end to end: extract, normalize, validate,
// deduplicate and store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/dedup"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

// Store is the persistence the pipeline depends on.
type Store interface {
	// FindCandidateRecords returns the user's records dated on or after since.
	FindCandidateRecords(ctx context.Context, userID string, since models.CalendarDate) ([]models.ExistingRecord, error)
	// InsertRecords stores accepted transactions.
	InsertRecords(ctx context.Context, userID string, txs []models.NormalizedTransaction) error
}

// Request is one import invocation. Source is detected from Filename when empty;
// pasted imports set Text instead of Data.
type Request struct {
	UserID   string
	Source   models.Source
	Filename string
	Data     []byte
	Text     string
	Password string
	DryRun   bool
}

// Pipeline turns a Request into an ImportResult.
type Pipeline struct {
	store  Store
	logger *log.Logger

	lookbackDays int
	threshold    int
	maxAmount    decimal.Decimal
	workers      int
	maxErrors    int
	now          func() time.Time
	dryRun       bool
}

// New returns a Pipeline over store. A nil logger discards output.
func New(store Store, logger *log.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = common.Discard()
	}
	p := &Pipeline{
		store:        store,
		logger:       logger,
		lookbackDays: DefaultLookbackDays,
		threshold:    DefaultThreshold,
		maxAmount:    DefaultMaxAmount,
		workers:      DefaultWorkers,
		maxErrors:    DefaultMaxErrors,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Import runs req. File-level failures are returned as errors; row-level
// failures are counted in the result. A PDF that needs a password is not an
// error: the result has NeedsPassword set and no transactions.
func (p *Pipeline) Import(ctx context.Context, req Request) (*models.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := req.source()
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{
		RunID:    uuid.NewString(),
		Source:   src,
		Accepted: []models.NormalizedTransaction{},
		Errors:   []string{},
		DryRun:   req.DryRun || p.dryRun,
	}
	logger := p.logger.With("run", result.RunID, "source", src)
	logger.Debug("import started", "file", req.Filename, "user", req.UserID, "dry_run", result.DryRun)

	ex, err := p.extract(src, req)
	if err != nil {
		logger.Warn("import aborted", "err", err)
		return nil, err
	}
	result.Events = append(result.Events, ex.events...)
	result.BankName = ex.bankName
	result.Counts.Skipped = ex.skipped
	for _, rerr := range ex.rejected {
		result.AddError(rerr.Error(), p.maxErrors)
	}

	if ex.needsPassword {
		result.NeedsPassword = true
		result.AddError(ex.passwordMsg, p.maxErrors)
		logger.Info("password required")
		return result, nil
	}
	if ex.empty {
		logger.Info("statement has no transactions", "bank", ex.bankName)
		return result, nil
	}

	now := p.now()
	outcomes, err := p.normalizeRows(ctx, ex.candidates, now)
	if err != nil {
		return nil, err
	}

	valid := p.validate(result, outcomes)

	today := models.DateOf(now)
	window := models.DateOf(today.AddDate(0, 0, -p.lookbackDays))
	since := dedupSince(valid, window)
	var existing []models.ExistingRecord
	if len(valid) > 0 {
		existing, err = p.store.FindCandidateRecords(ctx, req.UserID, since)
		if err != nil {
			logger.Error("lookup failed", "err", err)
			return nil, fmt.Errorf("%w: finding candidate records: %v", common.ErrStore, err)
		}
	}
	logger.Debug("dedup window", "since", since, "records", len(existing))

	detector := dedup.NewDetector(p.threshold)
	result.Verdicts = detector.Classify(valid, existing)
	for _, v := range result.Verdicts {
		tx := v.Candidate
		if tx.Date.Before(window) {
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: models.EventOutsideWindow, Stage: "dedup",
				Detail: fmt.Sprintf("dated %s, older than the %d-day lookback; window widened to %s", tx.Date, p.lookbackDays, since),
			})
		}
		if v.IsDuplicate {
			result.Counts.Duplicate++
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: models.EventDuplicate, Stage: "dedup",
				Detail: fmt.Sprintf("matches record %s (similarity %d)", v.MatchedRecordID, v.Similarity),
			})
			continue
		}
		result.Accepted = append(result.Accepted, tx)
		result.Events = append(result.Events, models.Event{
			Row: tx.Row, Kind: models.EventAccepted, Stage: "dedup", Text: tx.Description,
		})
	}
	result.Counts.Success = len(result.Accepted)

	if !result.DryRun && len(result.Accepted) > 0 {
		if err := p.store.InsertRecords(ctx, req.UserID, result.Accepted); err != nil {
			logger.Error("insert failed", "err", err)
			return nil, fmt.Errorf("%w: inserting records: %v", common.ErrStore, err)
		}
	}

	logger.Info("import finished",
		"success", result.Counts.Success,
		"skipped", result.Counts.Skipped,
		"duplicate", result.Counts.Duplicate,
		"error", result.Counts.Error,
	)
	return result, nil
}

// dedupSince widens the lookback window back to the oldest row of the batch,
// so re-importing an old statement still finds what the first import stored.
func dedupSince(txs []models.NormalizedTransaction, window models.CalendarDate) models.CalendarDate {
	since := window
	for _, tx := range txs {
		if tx.Date.Before(since) {
			since = tx.Date
		}
	}
	return since
}

// validate records anomalies and row fates, returning the rows that may be stored.
func (p *Pipeline) validate(result *models.ImportResult, outcomes []rowOutcome) []models.NormalizedTransaction {
	var valid []models.NormalizedTransaction

	for _, o := range outcomes {
		if o.err != nil {
			result.Counts.Error++
			result.AddError(o.err.Error(), p.maxErrors)
			result.Events = append(result.Events, models.Event{
				Row: o.tx.Row, Kind: models.EventRowFailure, Stage: "normalize", Detail: o.err.Error(),
			})
			continue
		}

		tx := o.tx
		if o.dateDefaulted {
			result.Anomalies.DateDefaulted++
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: models.EventDateDefaulted, Stage: "normalize",
				Detail: "unparseable date replaced with " + tx.Date.String(),
			})
		}
		if o.typeDefaulted {
			result.Anomalies.TypeDefaulted++
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: models.EventTypeDefaulted, Stage: "normalize",
				Detail: "unknown type, using " + string(tx.Type),
			})
		}
		if o.amountAmbiguous {
			result.Anomalies.AmountAmbiguous++
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: models.EventAmountAmbiguous, Stage: "normalize",
			})
		}

		if rerr := p.rejectReason(tx, o.amountAmbiguous); rerr != nil {
			result.Counts.Skipped++
			result.AddError(rerr.Error(), p.maxErrors)
			result.Events = append(result.Events, models.Event{
				Row: tx.Row, Kind: rerr.kind, Stage: "validate", Detail: rerr.Reason,
			})
			continue
		}
		valid = append(valid, tx)
	}
	return valid
}

type rejection struct {
	*common.RowError
	kind models.EventKind
}

func (p *Pipeline) rejectReason(tx models.NormalizedTransaction, ambiguous bool) *rejection {
	switch {
	case tx.Description == "":
		return &rejection{common.NewRowError(tx.Row, common.ErrRowValidation, "missing description"), models.EventMissingDesc}
	case tx.Amount.IsZero() && ambiguous:
		return &rejection{common.NewRowError(tx.Row, common.ErrAmountAmbiguous, "ambiguous amount"), models.EventZeroAmount}
	case tx.Amount.IsZero():
		return &rejection{common.NewRowError(tx.Row, common.ErrRowValidation, "amount is zero or unreadable"), models.EventZeroAmount}
	case tx.Amount.GreaterThanOrEqual(p.maxAmount):
		return &rejection{
			common.NewRowError(tx.Row, common.ErrRowValidation, "amount %s is not below the %s limit", tx.Amount.StringFixed(2), p.maxAmount.StringFixed(2)),
			models.EventOverLimit,
		}
	}
	return nil
}
