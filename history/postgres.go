package history

import (
	"context"
	"database/sql"

	"github.com/HelioDex/exchange-engine/common/types"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresStore implements types.HistoryStore over a PostgreSQL table keyed
// by record ID. Connections are opened per call and closed on return.
type PostgresStore struct {
	dbConnStr string
}

// NewPostgresStore creates a store with the provided connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *PostgresStore: a pointer to the newly created store instance.
func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		dbConnStr: connStr,
	}
}

// List returns all persisted records, newest first.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - []types.ExecutionRecord: the persisted records.
// - error: an error if the database operation fails.
func (s *PostgresStore) List(ctx context.Context) ([]types.ExecutionRecord, error) {
	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
       SELECT id, kind, status, description, timestamp_ms, tx_hash,
              from_chain_id, to_chain_id, amount, token, last_update_ms
       FROM execution_history
       ORDER BY timestamp_ms DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer rows.Close()

	var records []types.ExecutionRecord
	for rows.Next() {
		var record types.ExecutionRecord
		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Status,
			&record.Description,
			&record.TimestampMs,
			&record.Hash,
			&record.FromChain,
			&record.ToChain,
			&record.Amount,
			&record.Token,
			&record.LastUpdateMs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan history row")
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Upsert inserts the record or updates the row sharing its ID. Status
// transitions and destination-hash re-keying land as in-place updates.
//
// Parameters:
// - ctx: the context for managing the request.
// - record: the record to persist.
//
// Returns:
// - error: an error if the database operation fails.
func (s *PostgresStore) Upsert(ctx context.Context, record *types.ExecutionRecord) error {
	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
       INSERT INTO execution_history (
           id,
           kind,
           status,
           description,
           timestamp_ms,
           tx_hash,
           from_chain_id,
           to_chain_id,
           amount,
           token,
           last_update_ms
       ) VALUES (
           $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
       )
       ON CONFLICT (id)
       DO UPDATE SET status = EXCLUDED.status,
                     tx_hash = EXCLUDED.tx_hash,
                     description = EXCLUDED.description,
                     last_update_ms = EXCLUDED.last_update_ms`,
		record.ID,
		record.Kind,
		record.Status,
		record.Description,
		record.TimestampMs,
		record.Hash,
		record.FromChain,
		record.ToChain,
		record.Amount,
		record.Token,
		record.LastUpdateMs,
	)

	return errors.Wrap(err, "failed to upsert history record")
}

// Clear removes all persisted records.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the database operation fails.
func (s *PostgresStore) Clear(ctx context.Context) error {
	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `DELETE FROM execution_history`)
	return errors.Wrap(err, "failed to clear history")
}
