package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// VitalsInput is a partial vitals submission; present blocks replace the
// corresponding recorded blocks.
type VitalsInput struct {
	Vitals schema.Vitals
}

func (VitalsInput) agentInput() {}

// VitalsOutput is the vitals step result.
type VitalsOutput struct {
	Vitals       schema.Vitals
	MissingUnits []string
}

// VitalsAgent merges submitted vitals onto the record and asks for units
// wherever a reading arrived without one.
type VitalsAgent struct {
	deps Deps
}

// NewVitalsAgent constructs the agent.
func NewVitalsAgent(deps Deps) *VitalsAgent {
	return &VitalsAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *VitalsAgent) Name() string { return "VitalsAgent" }

// PromptPath implements Agent.
func (a *VitalsAgent) PromptPath() string { return "prompts/vitals.md" }

// Run implements Agent.
func (a *VitalsAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := VitalsInput{}
	if input != nil {
		typed, ok := input.(VitalsInput)
		if !ok {
			return Result{}, fmt.Errorf("vitals agent: unexpected input %T", input)
		}
		in = typed
	}

	merged := schema.MergeVitals(rc.Record.Vitals, in.Vitals)
	missingUnits := detectMissingUnits(merged)

	next := rc.Record.Clone()
	next.Vitals = &merged
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("vitals agent: autosave: %w", err)
	}

	followUps := make([]string, 0, len(missingUnits))
	for _, key := range missingUnits {
		followUps = append(followUps, fmt.Sprintf("Provide unit for %s", key))
	}
	note := ""
	if len(missingUnits) > 0 {
		note = "Unit clarification pending"
	}

	return Result{
		Data: VitalsOutput{
			Vitals:       merged,
			MissingUnits: missingUnits,
		},
		UpdatedRecord: &next,
		FollowUps:     followUps,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "vitals",
			Timestamp: a.deps.Clock(),
			Notes:     note,
		}},
	}, nil
}

func detectMissingUnits(vitals schema.Vitals) []string {
	var missing []string
	if vitals.Temperature != nil && vitals.Temperature.Unit == "" {
		missing = append(missing, "temperature")
	}
	if vitals.BloodPressure != nil && vitals.BloodPressure.Unit == "" {
		missing = append(missing, "blood pressure")
	}
	return missing
}
