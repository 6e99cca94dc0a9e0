package dedup

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

const (
	// DefaultThreshold is the minimum description similarity for a duplicate.
	DefaultThreshold = 80
	// DefaultLookbackDays is how far back stored records are considered.
	DefaultLookbackDays = 90
)

// DefaultEpsilon is the amount tolerance; differences strictly below it match.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// Detector compares transactions against a window of stored records.
type Detector struct {
	Threshold int
	Epsilon   decimal.Decimal
}

// NewDetector returns a Detector with the given threshold, or the default when threshold <= 0.
func NewDetector(threshold int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{Threshold: threshold, Epsilon: DefaultEpsilon}
}

// Check returns the verdict for tx. A record is a duplicate when it has the
// same date and type, an amount within epsilon and a similar description.
// Similarity is the best score among those comparable records, reported even
// when it stays under the threshold; BestSimilarity is the best score against
// any record of the window, so a near miss on date or amount stays visible.
func (d *Detector) Check(tx models.NormalizedTransaction, existing []models.ExistingRecord) models.DuplicateVerdict {
	verdict := models.DuplicateVerdict{Candidate: tx}

	for _, rec := range existing {
		score := Similarity(tx.Description, rec.Description)
		if score > verdict.BestSimilarity {
			verdict.BestSimilarity = score
		}

		if !rec.Date.Equal(tx.Date) || rec.Type != tx.Type {
			continue
		}
		if rec.Amount.Sub(tx.Amount).Abs().GreaterThanOrEqual(d.epsilon()) {
			continue
		}

		if score < verdict.Similarity {
			continue
		}
		if score == verdict.Similarity && verdict.IsDuplicate {
			// first match wins ties
			continue
		}
		verdict.Similarity = score
		if score >= d.threshold() {
			verdict.IsDuplicate = true
			verdict.MatchedRecordID = rec.ID
		}
	}
	return verdict
}

// Classify runs Check for every transaction, keeping input order.
func (d *Detector) Classify(txs []models.NormalizedTransaction, existing []models.ExistingRecord) []models.DuplicateVerdict {
	verdicts := make([]models.DuplicateVerdict, len(txs))
	for i, tx := range txs {
		verdicts[i] = d.Check(tx, existing)
	}
	return verdicts
}

func (d *Detector) threshold() int {
	if d.Threshold <= 0 {
		return DefaultThreshold
	}
	return d.Threshold
}

func (d *Detector) epsilon() decimal.Decimal {
	if d.Epsilon.IsPositive() {
		return d.Epsilon
	}
	return DefaultEpsilon
}
