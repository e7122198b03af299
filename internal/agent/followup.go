package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/wardlight/intake/internal/schema"
)

// FollowupInput is the set of open items to review. When nil or empty the
// agent works from the record's own follow-up list.
type FollowupInput struct {
	OpenItems []schema.FollowUpItem
}

func (FollowupInput) agentInput() {}

// FollowupOutput is the follow-up step result.
type FollowupOutput struct {
	Questions []schema.FollowUpItem
}

// FollowupAgent keeps only pending items, normalizes every question to a
// neutral interrogative form, and restamps them.
type FollowupAgent struct {
	deps Deps
}

// NewFollowupAgent constructs the agent.
func NewFollowupAgent(deps Deps) *FollowupAgent {
	return &FollowupAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *FollowupAgent) Name() string { return "FollowupAgent" }

// PromptPath implements Agent.
func (a *FollowupAgent) PromptPath() string { return "prompts/followup.md" }

// Run implements Agent.
func (a *FollowupAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := FollowupInput{}
	if input != nil {
		typed, ok := input.(FollowupInput)
		if !ok {
			return Result{}, fmt.Errorf("followup agent: unexpected input %T", input)
		}
		in = typed
	}
	items := in.OpenItems
	if items == nil {
		items = rc.Record.FollowUps
	}

	questions := make([]schema.FollowUpItem, 0, len(items))
	for _, item := range items {
		if item.Status != schema.FollowUpPending {
			continue
		}
		item.Question = ensureQuestion(item.Question)
		item.Timestamp = a.deps.Clock()
		questions = append(questions, item)
	}

	next := rc.Record.Clone()
	next.FollowUps = questions
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("followup agent: autosave: %w", err)
	}

	followUps := make([]string, 0, len(questions))
	for _, q := range questions {
		followUps = append(followUps, q.Question)
	}

	return Result{
		Data:          FollowupOutput{Questions: questions},
		UpdatedRecord: &next,
		FollowUps:     followUps,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "followUps",
			Timestamp: a.deps.Clock(),
			Notes:     "Neutral follow-up questions generated",
		}},
	}, nil
}

func ensureQuestion(question string) string {
	question = strings.TrimSpace(question)
	if strings.HasSuffix(question, "?") {
		return question
	}
	return question + "?"
}
