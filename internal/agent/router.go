package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/wardlight/intake/internal/schema"
)

// FallbackFollowUp is appended whenever the router degrades to the
// text-only path after a processing failure.
const FallbackFollowUp = "Processing error occurred - please verify extracted data"

// RouterInput is a multi-modal biography submission: direct patches for
// text entry, or an artifact to transcribe first for audio and OCR entry.
type RouterInput struct {
	Type     InputMethod
	Patient  schema.PatientPatch
	Consent  schema.ConsentPatch
	Artifact *schema.ArtifactRef
}

func (RouterInput) agentInput() {}

// TextInput builds a direct text submission.
func TextInput(patient schema.PatientPatch, consent schema.ConsentPatch) RouterInput {
	return RouterInput{Type: MethodText, Patient: patient, Consent: consent}
}

// AudioInput builds an audio submission. The artifact must be an audio
// capture.
func AudioInput(artifact schema.ArtifactRef) (RouterInput, error) {
	if artifact.Kind != schema.ArtifactAudio {
		return RouterInput{}, fmt.Errorf("input router: audio input requires an audio artifact, got %q", artifact.Kind)
	}
	return RouterInput{Type: MethodAudio, Artifact: &artifact}, nil
}

// OCRInput builds a scanned-document submission. The artifact must be an
// image or document capture.
func OCRInput(artifact schema.ArtifactRef) (RouterInput, error) {
	if artifact.Kind != schema.ArtifactImage && artifact.Kind != schema.ArtifactDocument {
		return RouterInput{}, fmt.Errorf("input router: ocr input requires an image or document artifact, got %q", artifact.Kind)
	}
	return RouterInput{Type: MethodOCR, Artifact: &artifact}, nil
}

// RouterOutput is the routed step result. ProcessingFlow is a running log
// of what the router did, including any error marker.
type RouterOutput struct {
	Bio            BioOutput
	Transcription  *Transcription
	ProcessingFlow []string
}

// InputRouter normalizes text, audio, and image submissions into
// structured biography data. Audio and OCR submissions pass through the
// transcriber capability first; any failure along the pipeline degrades to
// a text-only run over the directly supplied fields. The router never lets
// a capability failure escape its Run boundary.
type InputRouter struct {
	deps Deps
	bio  *BioAgent
}

// NewInputRouter constructs the router and its embedded biography agent.
func NewInputRouter(deps Deps) *InputRouter {
	deps = deps.Normalized()
	return &InputRouter{deps: deps, bio: NewBioAgent(deps)}
}

// Name implements Agent.
func (r *InputRouter) Name() string { return "InputRouter" }

// PromptPath implements Agent.
func (r *InputRouter) PromptPath() string { return "prompts/global.md" }

// Run implements Agent.
func (r *InputRouter) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := TextInput(schema.PatientPatch{}, schema.ConsentPatch{})
	if input != nil {
		typed, ok := input.(RouterInput)
		if !ok {
			return Result{}, fmt.Errorf("input router: unexpected input %T", input)
		}
		in = typed
	}

	flow := []string{fmt.Sprintf("Started %s input processing", in.Type)}
	var transcription *Transcription
	extractedText := ""

	if in.Artifact != nil && (in.Type == MethodAudio || in.Type == MethodOCR) {
		flow = append(flow, fmt.Sprintf("Processing %s artifact", in.Artifact.Kind))
		t, err := r.transcribe(ctx, *in.Artifact)
		if err != nil {
			return r.fallback(ctx, in, rc, flow, transcription, err)
		}
		transcription = &t
		extractedText = t.Text
		flow = append(flow, fmt.Sprintf("Extracted text using %s (confidence: %.2f)", t.Method, t.Confidence))
	}

	flow = append(flow, "Processing with BioAgent")
	bioResult, err := r.bio.Run(ctx, BioInput{
		Patient:     in.Patient,
		Consent:     in.Consent,
		TextToParse: extractedText,
		Source:      SourceInfo{Method: in.Type, ArtifactID: artifactID(in.Artifact)},
	}, rc)
	if err != nil {
		return r.fallback(ctx, in, rc, flow, transcription, err)
	}

	bioOut := bioResult.Data.(BioOutput)
	extractedCount := 0
	if bioOut.Extracted != nil {
		extractedCount = bioOut.Extracted.FieldCount()
	}
	flow = append(flow, fmt.Sprintf("BioAgent completed - extracted %d fields", extractedCount))

	provenance := bioResult.Provenance
	if transcription != nil {
		entry := schema.ProvenanceEntry{
			Agent:      r.Name(),
			Field:      fmt.Sprintf("artifact:%s:transcription", transcription.ArtifactID),
			Timestamp:  r.deps.Clock(),
			ArtifactID: transcription.ArtifactID,
			Notes:      fmt.Sprintf("%s processing completed with confidence %.2f", strings.ToUpper(transcription.Method), transcription.Confidence),
		}
		provenance = append([]schema.ProvenanceEntry{entry}, provenance...)
	}

	return Result{
		Data: RouterOutput{
			Bio:            bioOut,
			Transcription:  transcription,
			ProcessingFlow: flow,
		},
		UpdatedRecord: bioResult.UpdatedRecord,
		FollowUps:     bioResult.FollowUps,
		Provenance:    provenance,
	}, nil
}

// IsComplete delegates to the biography agent.
func (r *InputRouter) IsComplete(rc RunContext) bool {
	return r.bio.IsComplete(rc)
}

func (r *InputRouter) transcribe(ctx context.Context, artifact schema.ArtifactRef) (Transcription, error) {
	if r.deps.Transcriber == nil {
		return Transcription{}, fmt.Errorf("input router: no transcriber configured")
	}
	return r.deps.Transcriber.Transcribe(ctx, artifact)
}

// fallback re-runs the biography agent in plain text mode with only the
// directly supplied fields and flags the result for manual verification.
func (r *InputRouter) fallback(
	ctx context.Context,
	in RouterInput,
	rc RunContext,
	flow []string,
	transcription *Transcription,
	cause error,
) (Result, error) {
	flow = append(flow, fmt.Sprintf("Error: %v", cause))
	r.deps.Logger.Error("input router processing failed",
		"error", cause, "inputType", in.Type, "artifactId", artifactID(in.Artifact))

	bioResult, err := r.bio.Run(ctx, BioInput{
		Patient: in.Patient,
		Consent: in.Consent,
		Source:  SourceInfo{Method: MethodText},
	}, rc)
	if err != nil {
		return Result{}, fmt.Errorf("input router: fallback: %w", err)
	}

	bioOut := bioResult.Data.(BioOutput)
	provenance := append(bioResult.Provenance, schema.ProvenanceEntry{
		Agent:     r.Name(),
		Field:     "processing_error",
		Timestamp: r.deps.Clock(),
		Notes:     fmt.Sprintf("InputRouter fallback due to error: %v", cause),
	})

	return Result{
		Data: RouterOutput{
			Bio:            bioOut,
			Transcription:  transcription,
			ProcessingFlow: flow,
		},
		UpdatedRecord: bioResult.UpdatedRecord,
		FollowUps:     append(append([]string(nil), bioResult.FollowUps...), FallbackFollowUp),
		Provenance:    provenance,
	}, nil
}

func artifactID(artifact *schema.ArtifactRef) string {
	if artifact == nil {
		return ""
	}
	return artifact.ID
}
