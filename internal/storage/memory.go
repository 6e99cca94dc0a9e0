package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// MemoryStore keeps records per user in memory. It is safe for concurrent use;
// data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]models.ExistingRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]models.ExistingRecord)}
}

// FindCandidateRecords returns copies of the user's records dated on or after since.
func (s *MemoryStore) FindCandidateRecords(ctx context.Context, userID string, since models.CalendarDate) ([]models.ExistingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ExistingRecord
	for _, rec := range s.records[userID] {
		if rec.Date.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// InsertRecords stores txs under fresh IDs.
func (s *MemoryStore) InsertRecords(ctx context.Context, userID string, txs []models.NormalizedTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		s.records[userID] = append(s.records[userID], models.ExistingRecord{
			ID:          uuid.NewString(),
			Date:        tx.Date,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Description: tx.Description,
		})
	}
	return nil
}

// Len returns how many records the user has.
func (s *MemoryStore) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[userID])
}
