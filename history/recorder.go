package history

import (
	"context"
	"sync"
	"time"

	"github.com/HelioDex/exchange-engine/common/types"
	"github.com/sirupsen/logrus"
)

// persistTimeout bounds each fire-and-forget store write.
const persistTimeout = 10 * time.Second

// Recorder is the de-duplicated in-memory operation ledger. Every mutation is
// mirrored to the persisted store best-effort: a store failure is logged and
// swallowed, never rolled back into the in-memory view and never surfaced to
// the caller as a transaction failure.
type Recorder struct {
	store  types.HistoryStore
	logger *logrus.Logger

	mu      sync.Mutex
	records []types.ExecutionRecord
	pending sync.WaitGroup
}

// NewRecorder creates a recorder mirrored to the given store.
//
// Parameters:
// - store: the persisted row store, nil for in-memory only operation.
// - logger: the logger for logging events.
//
// Returns:
// - *Recorder: the recorder instance.
func NewRecorder(store types.HistoryStore, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
	}
}

// Load replaces the in-memory view with the persisted records.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the store query fails.
func (r *Recorder) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	records, err := r.store.List(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
	return nil
}

// Upsert merges the record into the ledger. Identity is the transaction hash
// when non-empty, falling back to the record ID, so a record created PENDING
// at broadcast is updated in place by later status transitions and a
// re-broadcast notification never duplicates a row.
//
// Parameters:
// - record: the record to insert or merge.
func (r *Recorder) Upsert(record *types.ExecutionRecord) {
	r.mu.Lock()
	idx := r.indexOfLocked(record)
	if idx >= 0 {
		// Re-keying to a destination hash keeps the original creation time.
		record.TimestampMs = r.records[idx].TimestampMs
		r.records[idx] = *record
	} else {
		r.records = append(r.records, *record)
	}
	snapshot := *record
	r.mu.Unlock()

	r.persist(&snapshot)
}

// List returns the current ledger, newest first.
func (r *Recorder) List() []types.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.ExecutionRecord, len(r.records))
	for i, record := range r.records {
		out[len(r.records)-1-i] = record
	}
	return out
}

// Clear removes every record from the ledger and the store. This is the only
// destructive operation the recorder supports.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	if r.store == nil {
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.store.Clear(ctx); err != nil {
			r.logger.WithError(err).Warn("Failed to clear persisted history")
		}
	}()
}

// Flush blocks until all outstanding store writes have settled.
func (r *Recorder) Flush() {
	r.pending.Wait()
}

// indexOfLocked finds the record sharing the incoming record's identity.
// Caller holds r.mu.
func (r *Recorder) indexOfLocked(record *types.ExecutionRecord) int {
	if record.Hash != "" {
		for i := range r.records {
			if r.records[i].Hash == record.Hash {
				return i
			}
		}
	}
	for i := range r.records {
		if r.records[i].ID == record.ID {
			return i
		}
	}
	return -1
}

// persist mirrors one mutation to the store without blocking the caller.
func (r *Recorder) persist(record *types.ExecutionRecord) {
	if r.store == nil {
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.store.Upsert(ctx, record); err != nil {
			r.logger.WithFields(logrus.Fields{
				"id":   record.ID,
				"hash": record.Hash,
			}).WithError(err).Warn("Failed to persist history record")
		}
	}()
}
