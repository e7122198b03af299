package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wardlight/intake/internal/schema"
)

func audioArtifact() schema.ArtifactRef {
	return schema.ArtifactRef{ID: "art-audio", Kind: schema.ArtifactAudio, URI: "s3://bucket/art-audio"}
}

func TestRouterTextPathRunsBioDirectly(t *testing.T) {
	router := NewInputRouter(newTestDeps())
	rc, _ := newTestRunContext(t)

	result, err := router.Run(context.Background(), TextInput(schema.PatientPatch{
		FirstName: schema.SetString("Ada"),
	}, schema.ConsentPatch{}), rc)
	if err != nil {
		t.Fatalf("router run: %v", err)
	}
	out := result.Data.(RouterOutput)
	if out.Bio.Patient.FirstName != "Ada" {
		t.Fatalf("direct fields not merged: %+v", out.Bio.Patient)
	}
	if out.Transcription != nil {
		t.Fatalf("text path should not transcribe")
	}
	if out.ProcessingFlow[0] != "Started text input processing" {
		t.Fatalf("unexpected flow head: %v", out.ProcessingFlow)
	}
}

func TestRouterAudioPathTranscribesAndExtracts(t *testing.T) {
	generator := &stubGenerator{text: `{"firstName":"Ada","consent":{"dataStorage":true,"photography":true}}`}
	transcriber := &stubTranscriber{out: Transcription{
		Text:       "patient says her name is Ada",
		Confidence: 0.85,
		Method:     "asr",
	}}
	deps := Deps{Clock: fixedClock, Generator: generator, Transcriber: transcriber}
	router := NewInputRouter(deps)
	rc, _ := newTestRunContext(t)

	input, err := AudioInput(audioArtifact())
	if err != nil {
		t.Fatalf("audio input: %v", err)
	}
	result, err := router.Run(context.Background(), input, rc)
	if err != nil {
		t.Fatalf("router run: %v", err)
	}

	out := result.Data.(RouterOutput)
	if out.Transcription == nil || out.Transcription.ArtifactID != "art-audio" {
		t.Fatalf("expected transcription for the artifact, got %+v", out.Transcription)
	}
	if out.Bio.Patient.FirstName != "Ada" {
		t.Fatalf("extracted fields not merged: %+v", out.Bio.Patient)
	}
	joined := strings.Join(out.ProcessingFlow, "\n")
	for _, want := range []string{
		"Started audio input processing",
		"Processing audio artifact",
		"Extracted text using asr (confidence: 0.85)",
		"Processing with BioAgent",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("flow missing %q:\n%s", want, joined)
		}
	}
	if len(result.Provenance) < 2 {
		t.Fatalf("expected transcription plus bio provenance, got %+v", result.Provenance)
	}
	if !strings.Contains(result.Provenance[0].Notes, "ASR processing completed with confidence 0.85") {
		t.Fatalf("unexpected transcription provenance: %+v", result.Provenance[0])
	}
}

func TestRouterFallbackOnTranscriberFailure(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("decoder crashed")}
	deps := Deps{Clock: fixedClock, Transcriber: transcriber}
	router := NewInputRouter(deps)
	rc, _ := newTestRunContext(t)

	input, err := AudioInput(audioArtifact())
	if err != nil {
		t.Fatalf("audio input: %v", err)
	}
	input.Patient = schema.PatientPatch{FirstName: schema.SetString("Ada")}

	result, err := router.Run(context.Background(), input, rc)
	if err != nil {
		t.Fatalf("fallback must not surface capability errors, got %v", err)
	}

	out := result.Data.(RouterOutput)
	joined := strings.Join(out.ProcessingFlow, "\n")
	if !strings.Contains(joined, "Error: decoder crashed") {
		t.Fatalf("flow should record the error:\n%s", joined)
	}
	if out.Bio.Patient.FirstName != "Ada" {
		t.Fatalf("fallback must still process direct fields: %+v", out.Bio.Patient)
	}
	found := false
	for _, f := range result.FollowUps {
		if f == FallbackFollowUp {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback follow-up missing from %v", result.FollowUps)
	}
	last := result.Provenance[len(result.Provenance)-1]
	if last.Field != "processing_error" || !strings.Contains(last.Notes, "decoder crashed") {
		t.Fatalf("expected processing_error provenance, got %+v", last)
	}
}

func TestRouterFallbackWithoutTranscriber(t *testing.T) {
	router := NewInputRouter(newTestDeps())
	rc, _ := newTestRunContext(t)

	input, err := AudioInput(audioArtifact())
	if err != nil {
		t.Fatalf("audio input: %v", err)
	}
	result, err := router.Run(context.Background(), input, rc)
	if err != nil {
		t.Fatalf("missing transcriber should degrade, got %v", err)
	}
	out := result.Data.(RouterOutput)
	if !strings.Contains(strings.Join(out.ProcessingFlow, "\n"), "Error:") {
		t.Fatalf("flow should record the missing capability: %v", out.ProcessingFlow)
	}
}

func TestRouterInputConstructorsValidateKinds(t *testing.T) {
	if _, err := AudioInput(schema.ArtifactRef{Kind: schema.ArtifactImage}); err == nil {
		t.Fatalf("audio input should reject image artifacts")
	}
	if _, err := OCRInput(schema.ArtifactRef{Kind: schema.ArtifactAudio}); err == nil {
		t.Fatalf("ocr input should reject audio artifacts")
	}
	if _, err := OCRInput(schema.ArtifactRef{Kind: schema.ArtifactDocument}); err != nil {
		t.Fatalf("ocr input should accept documents: %v", err)
	}
}
