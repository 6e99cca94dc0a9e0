package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ingest/internal/dedup"
)

// Defaults applied by New.
const (
	DefaultLookbackDays = dedup.DefaultLookbackDays
	DefaultThreshold    = dedup.DefaultThreshold
	DefaultMaxErrors    = 50
	DefaultWorkers      = 4
)

// DefaultMaxAmount is the exclusive ceiling on a single transaction.
var DefaultMaxAmount = decimal.NewFromInt(1_000_000)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLookbackDays sets how many days of stored records are checked for duplicates.
func WithLookbackDays(days int) Option {
	return func(p *Pipeline) {
		if days > 0 {
			p.lookbackDays = days
		}
	}
}

// WithSimilarityThreshold sets the minimum description similarity for a duplicate.
func WithSimilarityThreshold(threshold int) Option {
	return func(p *Pipeline) {
		if threshold > 0 && threshold <= 100 {
			p.threshold = threshold
		}
	}
}

// WithMaxAmount sets the amount ceiling. Rows at or above it are skipped.
func WithMaxAmount(limit decimal.Decimal) Option {
	return func(p *Pipeline) {
		if limit.IsPositive() {
			p.maxAmount = limit
		}
	}
}

// WithWorkers bounds how many rows are normalized at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMaxErrors caps the messages kept in ImportResult.Errors. Zero keeps all.
func WithMaxErrors(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.maxErrors = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithDryRun makes every import a preview: nothing is inserted.
func WithDryRun(enabled bool) Option {
	return func(p *Pipeline) {
		p.dryRun = enabled
	}
}
