package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// StewardInput optionally supplies a draft to validate instead of the
// context record.
type StewardInput struct {
	Draft *schema.CaseRecord
}

func (StewardInput) agentInput() {}

// StewardOutput is the assembly step result. ValidationErrors never block
// autosave of the draft; they only block promotion to ready_for_review.
type StewardOutput struct {
	Record           schema.CaseRecord
	ValidationErrors []string
}

// DataStewardAgent validates the assembled record against the schema
// invariants, moves sensitive field paths into the encrypted map, and
// promotes clean records to ready_for_review.
type DataStewardAgent struct {
	deps Deps
}

// NewDataStewardAgent constructs the agent.
func NewDataStewardAgent(deps Deps) *DataStewardAgent {
	return &DataStewardAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *DataStewardAgent) Name() string { return "DataStewardAgent" }

// PromptPath implements Agent.
func (a *DataStewardAgent) PromptPath() string { return "prompts/steward.md" }

// Run implements Agent.
func (a *DataStewardAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := StewardInput{}
	if input != nil {
		typed, ok := input.(StewardInput)
		if !ok {
			return Result{}, fmt.Errorf("steward agent: unexpected input %T", input)
		}
		in = typed
	}

	candidate := rc.Record
	if in.Draft != nil {
		candidate = *in.Draft
	}
	validationErrors := schema.Validate(candidate)

	next := candidate.Clone()
	crypto := rc.Crypto
	if crypto == nil {
		crypto = a.deps.Crypto
	}
	if crypto != nil {
		if err := a.encryptSensitive(&next, crypto); err != nil {
			return Result{}, fmt.Errorf("steward agent: encrypt sensitive fields: %w", err)
		}
	}

	next.Status = schema.StatusDraft
	if len(validationErrors) == 0 {
		next.Status = schema.StatusReadyForReview
	}
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("steward agent: autosave: %w", err)
	}

	note := "Record ready for clinician review"
	if len(validationErrors) > 0 {
		note = "Validation pending"
	}

	return Result{
		Data: StewardOutput{
			Record:           next,
			ValidationErrors: validationErrors,
		},
		UpdatedRecord: &next,
		FollowUps:     validationErrors,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "record",
			Timestamp: a.deps.Clock(),
			Notes:     note,
		}},
	}, nil
}

// encryptSensitive moves every recorded sensitive value into the
// encrypted map and blanks its plaintext slot.
func (a *DataStewardAgent) encryptSensitive(record *schema.CaseRecord, crypto CryptoProvider) error {
	for _, path := range schema.SensitiveFieldPaths {
		value, ok := schema.SensitiveValue(*record, path)
		if !ok || value == "" {
			continue
		}
		payload, err := crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("path %s: %w", path, err)
		}
		record.EncryptedFields[path] = payload
		schema.ClearSensitiveValue(record, path)
	}
	return nil
}
