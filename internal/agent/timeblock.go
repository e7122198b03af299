package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// TissueSumFlag is raised when the four tissue percentages sum above 100.
const TissueSumFlag = "Tissue percentages exceed 100%"

// TimeInput is a partial TIME assessment; present sections replace the
// corresponding recorded sections.
type TimeInput struct {
	Time schema.TimeBlock
}

func (TimeInput) agentInput() {}

// TimeOutput is the TIME step result.
type TimeOutput struct {
	Time  schema.TimeBlock
	Flags []string
}

// TimeAgent merges a TIME wound assessment onto the record and flags
// inconsistent or incomplete sections. Flags are reported as data, never
// as errors; an over-100 tissue sum additionally fails record-level
// validation at the steward step.
type TimeAgent struct {
	deps Deps
}

// NewTimeAgent constructs the agent.
func NewTimeAgent(deps Deps) *TimeAgent {
	return &TimeAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *TimeAgent) Name() string { return "TimeAgent" }

// PromptPath implements Agent.
func (a *TimeAgent) PromptPath() string { return "prompts/time.md" }

// Run implements Agent.
func (a *TimeAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := TimeInput{}
	if input != nil {
		typed, ok := input.(TimeInput)
		if !ok {
			return Result{}, fmt.Errorf("time agent: unexpected input %T", input)
		}
		in = typed
	}

	merged := schema.MergeTime(rc.Record.Time, in.Time)
	flags := validateTimeBlock(merged)

	next := rc.Record.Clone()
	next.Time = &merged
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("time agent: autosave: %w", err)
	}

	note := ""
	if len(flags) > 0 {
		note = "Awaiting clarification on TIME inputs"
	}

	return Result{
		Data: TimeOutput{
			Time:  merged,
			Flags: flags,
		},
		UpdatedRecord: &next,
		FollowUps:     flags,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "time",
			Timestamp: a.deps.Clock(),
			Notes:     note,
		}},
	}, nil
}

func validateTimeBlock(block schema.TimeBlock) []string {
	var flags []string
	if block.Tissue != nil && block.Tissue.Total() > 100 {
		flags = append(flags, TissueSumFlag)
	}
	if block.Moisture == nil || block.Moisture.Exudate == "" {
		flags = append(flags, "Exudate level missing")
	}
	return flags
}
