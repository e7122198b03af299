package agent

import (
	"context"
	"fmt"

	"github.com/wardlight/intake/internal/schema"
)

// ImagingInput is a batch of wound photos submitted for QA.
type ImagingInput struct {
	Photos []schema.WoundPhoto
}

func (ImagingInput) agentInput() {}

// ImagingOutput reports the QA verdict for the batch.
type ImagingOutput struct {
	ApprovedPhotos []schema.WoundPhoto
	RetakeNeeded   bool
	Issues         []string
}

// WoundImagingAgent screens submitted photos against the capture
// checklist, records the batch on the wound section, and flags the case
// for a retake when no usable photo survives.
type WoundImagingAgent struct {
	deps Deps
}

// NewWoundImagingAgent constructs the agent.
func NewWoundImagingAgent(deps Deps) *WoundImagingAgent {
	return &WoundImagingAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *WoundImagingAgent) Name() string { return "WoundImagingAgent" }

// PromptPath implements Agent.
func (a *WoundImagingAgent) PromptPath() string { return "prompts/imaging.md" }

// Run implements Agent.
func (a *WoundImagingAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := ImagingInput{}
	if input != nil {
		typed, ok := input.(ImagingInput)
		if !ok {
			return Result{}, fmt.Errorf("imaging agent: unexpected input %T", input)
		}
		in = typed
	}

	var issues []string
	var approved []schema.WoundPhoto
	flagged := false
	for _, photo := range in.Photos {
		ok := true
		if photo.Checklist.Framing == schema.QAFail {
			issues = append(issues, fmt.Sprintf("Photo %s framing flagged", photo.ID))
			ok = false
		}
		if photo.Checklist.Focus == schema.QAFail {
			issues = append(issues, fmt.Sprintf("Photo %s focus flagged", photo.ID))
			ok = false
		}
		if photo.Checklist.Lighting == schema.QAFail {
			issues = append(issues, fmt.Sprintf("Photo %s lighting flagged", photo.ID))
			ok = false
		}
		if !photo.ScalePresent {
			issues = append(issues, fmt.Sprintf("Photo %s missing scale reference", photo.ID))
		}
		if ok {
			approved = append(approved, photo)
		} else {
			flagged = true
		}
	}
	retakeNeeded := flagged || len(approved) == 0

	next := rc.Record.Clone()
	next.Wounds.Photos = append([]schema.WoundPhoto(nil), in.Photos...)
	if next.Wounds.Overrides == nil {
		next.Wounds.Overrides = &schema.WoundOverrides{}
	}
	next.Wounds.Overrides.RequiresRetake = retakeNeeded
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("imaging agent: autosave: %w", err)
	}

	followUps := issues
	if retakeNeeded {
		followUps = []string{"Confirm if retake is possible"}
	}
	note := "Imaging QA run"
	if retakeNeeded {
		note = "Awaiting clearer imaging"
	}

	return Result{
		Data: ImagingOutput{
			ApprovedPhotos: approved,
			RetakeNeeded:   retakeNeeded,
			Issues:         issues,
		},
		UpdatedRecord: &next,
		FollowUps:     followUps,
		Provenance: []schema.ProvenanceEntry{{
			Agent:     a.Name(),
			Field:     "wounds.photos",
			Timestamp: a.deps.Clock(),
			Notes:     note,
		}},
	}, nil
}
