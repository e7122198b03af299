// Package storage persists case records. Repositories work on whole
// records only: Save is a full-record upsert and there is no partial
// update form.
package storage

import (
	"context"
	"errors"

	"github.com/wardlight/intake/internal/schema"
)

// ErrVersionConflict is returned when a save carries a revision older
// than the stored one, meaning another writer got there first.
var ErrVersionConflict = errors.New("storage: record revision conflict")

// CaseRecordRepository stores one record per case id. FetchByID returns
// (nil, nil) when no record exists.
type CaseRecordRepository interface {
	Save(ctx context.Context, record schema.CaseRecord) error
	FetchByID(ctx context.Context, caseID string) (*schema.CaseRecord, error)
}

// Autosaver adapts a repository into the autosave callback agents invoke
// mid-run.
func Autosaver(repo CaseRecordRepository) func(ctx context.Context, draft schema.CaseRecord) error {
	return func(ctx context.Context, draft schema.CaseRecord) error {
		return repo.Save(ctx, draft)
	}
}
