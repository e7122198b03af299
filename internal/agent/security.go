package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// SecurityInput links a clinician and their hashed PIN to the case. The
// core only ever sees the hash.
type SecurityInput struct {
	ClinicianID string
	PinHash     string
}

func (SecurityInput) agentInput() {}

// SecurityOutput is the linking step result.
type SecurityOutput struct {
	ClinicianID string
	PinHash     string
	Linked      bool
}

// SecurityAgent records the clinician link and PIN hash on the case.
type SecurityAgent struct {
	deps Deps
}

// NewSecurityAgent constructs the agent.
func NewSecurityAgent(deps Deps) *SecurityAgent {
	return &SecurityAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *SecurityAgent) Name() string { return "SecurityAgent" }

// PromptPath implements Agent.
func (a *SecurityAgent) PromptPath() string { return "prompts/security.md" }

// Run implements Agent.
func (a *SecurityAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := SecurityInput{}
	if input != nil {
		typed, ok := input.(SecurityInput)
		if !ok {
			return Result{}, fmt.Errorf("security agent: unexpected input %T", input)
		}
		in = typed
	}
	if in.ClinicianID == "" {
		in.ClinicianID = rc.Record.ClinicianID
	}
	if in.PinHash == "" {
		in.PinHash = rc.Record.ClinicianPinHash
	}

	next := rc.Record.Clone()
	next.ClinicianID = in.ClinicianID
	next.ClinicianPinHash = in.PinHash
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("security agent: autosave: %w", err)
	}

	return Result{
		Data: SecurityOutput{
			ClinicianID: in.ClinicianID,
			PinHash:     in.PinHash,
			Linked:      true,
		},
		UpdatedRecord: &next,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "clinicianPinHash",
			Timestamp: a.deps.Clock(),
			Notes:     "Clinician PIN linked",
		}},
	}, nil
}
