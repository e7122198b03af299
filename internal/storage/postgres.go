package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardlight/intake/internal/schema"
)

// PostgresRepository stores the full record as a jsonb payload plus a few
// indexed columns. One row per case id.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps an existing connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the case_records table when absent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS case_records (
			case_id      uuid PRIMARY KEY,
			clinician_id uuid NOT NULL,
			revision     integer NOT NULL DEFAULT 0,
			state        text NOT NULL,
			payload      jsonb NOT NULL,
			created_at   timestamptz NOT NULL,
			updated_at   timestamptz NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create case_records: %w", err)
	}
	return nil
}

// Save upserts the record. The revision guard rejects saves older than the
// stored row so two writers racing on one case cannot silently interleave.
func (r *PostgresRepository) Save(ctx context.Context, record schema.CaseRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", record.CaseID, err)
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO case_records (case_id, clinician_id, revision, state, payload, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (case_id) DO UPDATE
		SET clinician_id=$2, revision=$3, state=$4, payload=$5, updated_at=$7
		WHERE case_records.revision <= $3
	`, record.CaseID, record.ClinicianID, record.StorageMeta.Revision,
		record.StorageMeta.State, payload, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", record.CaseID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: case %s", ErrVersionConflict, record.CaseID)
	}
	return nil
}

// FetchByID loads the record payload, or (nil, nil) when no row exists.
func (r *PostgresRepository) FetchByID(ctx context.Context, caseID string) (*schema.CaseRecord, error) {
	var payload []byte
	row := r.pool.QueryRow(ctx, `SELECT payload FROM case_records WHERE case_id=$1`, caseID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select record %s: %w", caseID, err)
	}
	var record schema.CaseRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", caseID, err)
	}
	return &record, nil
}
