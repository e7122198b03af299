package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/orchestrator"
	"github.com/wardlight/intake/internal/schema"
	"github.com/wardlight/intake/internal/state"
	"github.com/wardlight/intake/internal/storage"
)

// Runtime opens controllers for cases. With a shared durable repository
// every open reads through it; without one the runtime keeps a per-case
// in-memory repository so repeated opens of the same case resume its
// record.
type Runtime struct {
	repo  storage.CaseRecordRepository
	deps  agent.Deps
	clock func() time.Time

	mu       sync.Mutex
	memRepos map[string]*storage.MemoryRepository

	bindings map[state.SessionState]orchestrator.Factory
}

// RuntimeOption customizes runtime construction.
type RuntimeOption func(*Runtime)

// WithRuntimeRepository sets the shared durable backend for all cases.
func WithRuntimeRepository(repo storage.CaseRecordRepository) RuntimeOption {
	return func(r *Runtime) { r.repo = repo }
}

// WithRuntimeDeps sets the capability set handed to every controller.
func WithRuntimeDeps(deps agent.Deps) RuntimeOption {
	return func(r *Runtime) { r.deps = deps }
}

// WithRuntimeBindings overrides the default state-to-agent bindings.
func WithRuntimeBindings(b map[state.SessionState]orchestrator.Factory) RuntimeOption {
	return func(r *Runtime) { r.bindings = b }
}

// WithRuntimeClock injects a deterministic clock.
func WithRuntimeClock(clock func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRuntime builds a runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		clock:    time.Now,
		memRepos: make(map[string]*storage.MemoryRepository),
		bindings: orchestrator.DefaultBindings(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open authorizes and opens a session for one case. Both identifiers
// must be well-formed UUIDs; a stored record owned by a different
// clinician is never returned. A case with no stored record starts a
// fresh one owned by the caller.
func (r *Runtime) Open(ctx context.Context, caseID, clinicianID string) (*Controller, error) {
	if _, err := uuid.Parse(caseID); err != nil {
		return nil, fmt.Errorf("session: case id %q: %w", caseID, ErrMissingIdentity)
	}
	if _, err := uuid.Parse(clinicianID); err != nil {
		return nil, fmt.Errorf("session: clinician id %q: %w", clinicianID, ErrMissingIdentity)
	}

	repo := r.repositoryFor(caseID)
	stored, err := repo.FetchByID(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("session: open case %s: %w", caseID, err)
	}

	var record schema.CaseRecord
	if stored != nil {
		if stored.ClinicianID != clinicianID {
			return nil, fmt.Errorf("session: case %s: %w", caseID, ErrUnauthorized)
		}
		record = stored.Clone()
	} else {
		record = schema.NewCaseRecord(r.clock(),
			schema.WithCaseID(caseID),
			schema.WithClinicianID(clinicianID),
		)
	}

	return NewController(record,
		WithRepository(repo),
		WithDeps(r.deps),
		WithBindings(r.bindings),
		WithClock(r.clock),
	)
}

func (r *Runtime) repositoryFor(caseID string) storage.CaseRecordRepository {
	if r.repo != nil {
		return r.repo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	repo, ok := r.memRepos[caseID]
	if !ok {
		repo = storage.NewMemoryRepository()
		r.memRepos[caseID] = repo
	}
	return repo
}
