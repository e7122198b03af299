// Package session exposes one case's workflow to the request layer: a
// controller facade over the case's state machine, orchestrator, and
// biography agent, plus the runtime that authorizes and opens sessions.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/wardlight/intake/internal/agent"
	"github.com/wardlight/intake/internal/orchestrator"
	"github.com/wardlight/intake/internal/schema"
	"github.com/wardlight/intake/internal/state"
	"github.com/wardlight/intake/internal/storage"
)

// Snapshot is the response view of a session.
type Snapshot struct {
	Record schema.CaseRecord  `json:"record"`
	Bio    *agent.BioOutput   `json:"bio,omitempty"`
	State  state.SessionState `json:"state"`
}

// ConfirmResult reports a biography confirmation attempt.
type ConfirmResult struct {
	OK            bool               `json:"ok"`
	MissingFields []string           `json:"missingFields"`
	State         state.SessionState `json:"state"`
}

// Controller drives one case. Operations are sequential and synchronous:
// each method runs to completion, including capability calls, before
// returning, and the controller holds the authoritative in-memory record
// for the duration of the call.
type Controller struct {
	machine *state.Machine
	orch    *orchestrator.Orchestrator
	bio     *agent.BioAgent
	router  *agent.InputRouter
	repo    storage.CaseRecordRepository
	deps    agent.Deps
	clock   func() time.Time

	bioResult *agent.BioOutput
}

// ControllerOption customizes controller construction.
type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	repo     storage.CaseRecordRepository
	deps     agent.Deps
	bindings map[state.SessionState]orchestrator.Factory
	clock    func() time.Time
}

// WithRepository injects the persistence backend. Without one the session
// lives purely in memory.
func WithRepository(repo storage.CaseRecordRepository) ControllerOption {
	return func(c *controllerConfig) { c.repo = repo }
}

// WithDeps injects the capability set shared by all agents.
func WithDeps(deps agent.Deps) ControllerOption {
	return func(c *controllerConfig) { c.deps = deps }
}

// WithBindings overrides the default state-to-agent bindings.
func WithBindings(bindings map[state.SessionState]orchestrator.Factory) ControllerOption {
	return func(c *controllerConfig) { c.bindings = bindings }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *controllerConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewController anchors a controller on a record, resuming the workflow
// from the record's durable state. A legacy START value resumes at the
// biography step.
func NewController(record schema.CaseRecord, opts ...ControllerOption) (*Controller, error) {
	cfg := controllerConfig{
		bindings: orchestrator.DefaultBindings(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	deps := cfg.deps.Normalized()
	if deps.Clock == nil {
		deps.Clock = cfg.clock
	}

	resumed, ok := state.ParseState(record.StorageMeta.State)
	if !ok || resumed == state.StateStart {
		resumed = state.StateBioIntake
	}
	record.StorageMeta.State = string(resumed)

	machine := state.NewMachine(record, resumed, state.WithClock(cfg.clock))
	orch, err := orchestrator.New(machine, cfg.bindings, deps)
	if err != nil {
		return nil, err
	}

	return &Controller{
		machine: machine,
		orch:    orch,
		bio:     agent.NewBioAgent(deps),
		router:  agent.NewInputRouter(deps),
		repo:    cfg.repo,
		deps:    deps,
		clock:   cfg.clock,
	}, nil
}

// GetSnapshot returns the session view, computing an initial biography
// result from an empty patch when none exists yet.
func (c *Controller) GetSnapshot(ctx context.Context) (Snapshot, error) {
	if c.bioResult == nil {
		if _, err := c.UpdateBio(ctx, schema.PatientPatch{}, schema.ConsentPatch{}); err != nil {
			return Snapshot{}, err
		}
	}
	return c.snapshot(), nil
}

// UpdateBio sanitizes the raw patches, runs the biography agent against
// the current record, adopts the replacement record, and persists.
func (c *Controller) UpdateBio(ctx context.Context, patient schema.PatientPatch, consent schema.ConsentPatch) (Snapshot, error) {
	input := agent.BioInput{
		Patient: SanitizePatient(patient),
		Consent: SanitizeConsent(consent),
		Source:  agent.SourceInfo{Method: agent.MethodText},
	}
	result, err := c.bio.Run(ctx, input, c.runContext())
	if err != nil {
		return Snapshot{}, err
	}
	out := result.Data.(agent.BioOutput)
	c.bioResult = &out
	c.adopt(result)
	if err := c.persist(ctx); err != nil {
		return Snapshot{}, err
	}
	return c.snapshot(), nil
}

// ProcessInput routes a multi-modal submission (text, audio, or scanned
// document) through the input router. Direct patches are sanitized the
// same way as plain updates.
func (c *Controller) ProcessInput(ctx context.Context, input agent.RouterInput) (agent.RouterOutput, error) {
	input.Patient = SanitizePatient(input.Patient)
	input.Consent = SanitizeConsent(input.Consent)
	result, err := c.router.Run(ctx, input, c.runContext())
	if err != nil {
		return agent.RouterOutput{}, err
	}
	out := result.Data.(agent.RouterOutput)
	c.bioResult = &out.Bio
	c.adopt(result)
	if err := c.persist(ctx); err != nil {
		return agent.RouterOutput{}, err
	}
	return out, nil
}

// ConfirmBio gates the workflow on a complete biography. The read is
// idempotent: a missing biography result is computed from an empty patch
// first. State advances exactly one transition only when no required
// field is missing and consent is valid; otherwise the attempt reports
// the gaps without touching state.
func (c *Controller) ConfirmBio(ctx context.Context) (ConfirmResult, error) {
	if c.bioResult == nil {
		if _, err := c.UpdateBio(ctx, schema.PatientPatch{}, schema.ConsentPatch{}); err != nil {
			return ConfirmResult{}, err
		}
	}

	missing := c.bioResult.MissingFields
	if len(missing) > 0 || !c.bioResult.ConsentValidated {
		return ConfirmResult{
			OK:            false,
			MissingFields: missing,
			State:         c.machine.Current().State,
		}, nil
	}

	if _, err := c.machine.Transition(state.EventBioConfirmed, nil); err != nil {
		return ConfirmResult{}, err
	}
	if err := c.persist(ctx); err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{OK: true, MissingFields: []string{}, State: c.machine.Current().State}, nil
}

// TriggerEvent advances the workflow through the orchestrator, running
// whatever agent is bound to the resulting state.
func (c *Controller) TriggerEvent(ctx context.Context, event state.SessionEvent, input agent.Input) (Snapshot, error) {
	if _, err := c.orch.Advance(ctx, event, input, c.runContext()); err != nil {
		return Snapshot{}, err
	}
	if err := c.persist(ctx); err != nil {
		return Snapshot{}, err
	}
	return c.snapshot(), nil
}

// AssignPin stores a pre-hashed PIN and its issuance timestamp and
// persists immediately. The controller never sees or validates the
// plaintext PIN.
func (c *Controller) AssignPin(ctx context.Context, pinHash string, issuedAt time.Time) (Snapshot, error) {
	if pinHash == "" {
		return Snapshot{}, fmt.Errorf("session: pin hash is required")
	}
	current := c.machine.Current()
	updated := current.Record.Clone()
	updated.ClinicianPinHash = pinHash
	updated.StorageMeta.PinIssuedAt = &issuedAt
	updated.UpdatedAt = c.clock()
	c.machine.Reset(updated, current.State)
	if err := c.persist(ctx); err != nil {
		return Snapshot{}, err
	}
	return c.snapshot(), nil
}

// Record returns the authoritative record.
func (c *Controller) Record() schema.CaseRecord {
	return c.machine.Current().Record
}

// State returns the current workflow position.
func (c *Controller) State() state.SessionState {
	return c.machine.Current().State
}

func (c *Controller) snapshot() Snapshot {
	current := c.machine.Current()
	return Snapshot{Record: current.Record, Bio: c.bioResult, State: current.State}
}

func (c *Controller) runContext() agent.RunContext {
	current := c.machine.Current()
	rc := agent.RunContext{
		Record:    current.Record,
		Artifacts: current.Record.Artifacts,
		Logger:    c.deps.Logger,
		Crypto:    c.deps.Crypto,
	}
	if c.repo != nil {
		rc.Autosave = storage.Autosaver(c.repo)
	}
	return rc
}

// adopt re-anchors the machine on an agent's replacement record, folding
// returned provenance into the append-only log.
func (c *Controller) adopt(result agent.Result) {
	if result.UpdatedRecord == nil {
		return
	}
	current := c.machine.Current()
	updated := result.UpdatedRecord.Clone()
	updated.ProvenanceLog = append(updated.ProvenanceLog, result.Provenance...)
	c.machine.Reset(updated, current.State)
}

// persist bumps the optimistic revision once per completed operation and
// saves the full record.
func (c *Controller) persist(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	current := c.machine.Current()
	updated := current.Record
	updated.StorageMeta.Revision++
	c.machine.Reset(updated, current.State)
	if err := c.repo.Save(ctx, updated); err != nil {
		return fmt.Errorf("session: persist case %s: %w", updated.CaseID, err)
	}
	return nil
}
