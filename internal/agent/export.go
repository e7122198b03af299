package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// requiredEncryptedFields must be present in the encrypted map before a
// record may leave the system.
var requiredEncryptedFields = []string{
	"patient.firstName",
	"patient.lastName",
}

// ExportInput names the destination store. Empty defaults to the secure
// store.
type ExportInput struct {
	Destination string
}

func (ExportInput) agentInput() {}

// ExportOutput is the export step result.
type ExportOutput struct {
	Success           bool
	Destination       string
	MissingEncryption []string
}

// ExportAgent releases a finished record to its destination. Export is
// refused while any required sensitive field remains unencrypted; a
// successful export locks the record.
type ExportAgent struct {
	deps Deps
}

// NewExportAgent constructs the agent.
func NewExportAgent(deps Deps) *ExportAgent {
	return &ExportAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *ExportAgent) Name() string { return "ExportAgent" }

// PromptPath implements Agent.
func (a *ExportAgent) PromptPath() string { return "prompts/global.md" }

// Run implements Agent.
func (a *ExportAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := ExportInput{}
	if input != nil {
		typed, ok := input.(ExportInput)
		if !ok {
			return Result{}, fmt.Errorf("export agent: unexpected input %T", input)
		}
		in = typed
	}

	a.deps.Logger.Info("export requested", "destination", in.Destination)

	missing := missingEncryption(rc.Record)
	if len(missing) > 0 {
		followUps := make([]string, 0, len(missing))
		for _, field := range missing {
			followUps = append(followUps, fmt.Sprintf("Encrypt field before export: %s", field))
		}
		return Result{
			Data: ExportOutput{
				Success:           false,
				Destination:       in.Destination,
				MissingEncryption: missing,
			},
			FollowUps: followUps,
			Provenance: []schema.ProvenanceEntry{{
				Agent:     a.Name(),
				Field:     "export",
				Timestamp: a.deps.Clock(),
				Notes:     "Export blocked pending encryption",
			}},
		}, nil
	}

	destination := in.Destination
	if destination == "" {
		destination = "secure_store"
	}

	next := rc.Record.Clone()
	next.Status = schema.StatusLocked
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("export agent: autosave: %w", err)
	}

	return Result{
		Data: ExportOutput{
			Success:     true,
			Destination: destination,
		},
		UpdatedRecord: &next,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "export",
			Timestamp: a.deps.Clock(),
			Notes:     fmt.Sprintf("Record exported to %s", destination),
		}},
	}, nil
}

func missingEncryption(record schema.CaseRecord) []string {
	var missing []string
	for _, field := range requiredEncryptedFields {
		if _, ok := record.EncryptedFields[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
