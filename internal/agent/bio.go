package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wardlight/intake/internal/schema"
)

// InputMethod names how biography data reached the agent.
type InputMethod string

const (
	MethodText  InputMethod = "text"
	MethodAudio InputMethod = "audio"
	MethodOCR   InputMethod = "ocr"
)

// SourceInfo records where a biography submission came from.
type SourceInfo struct {
	Method     InputMethod
	ArtifactID string
}

// BioInput is a partial biography submission. TextToParse carries raw
// transcribed text for the extraction path; it is ignored for plain text
// submissions.
type BioInput struct {
	Patient     schema.PatientPatch
	Consent     schema.ConsentPatch
	TextToParse string
	Source      SourceInfo
}

func (BioInput) agentInput() {}

// BioExtraction is the sanitized field set recovered from free text by the
// text-generation capability.
type BioExtraction struct {
	Patient schema.PatientPatch
	Consent schema.ConsentPatch
}

// FieldCount reports how many fields the extraction recovered.
func (e BioExtraction) FieldCount() int {
	count := 0
	for _, set := range []bool{
		e.Patient.FirstName.Set, e.Patient.LastName.Set, e.Patient.PreferredName.Set,
		e.Patient.DateOfBirth.Set, e.Patient.Age.Set, e.Patient.Sex.Set, e.Patient.MRN.Set,
	} {
		if set {
			count++
		}
	}
	if e.Consent.DataStorage.Set || e.Consent.Photography.Set || e.Consent.SharingToTeamBoard.Set {
		count++
	}
	return count
}

// BioOutput is the biography step result.
type BioOutput struct {
	Patient          schema.PatientBio
	ConsentValidated bool
	MissingFields    []string
	Extracted        *BioExtraction
}

// Missing-field labels reported to the caller.
const (
	MissingName     = "firstName or preferredName"
	MissingDOBOrAge = "dateOfBirth or age"
	MissingConsent  = "consent"
)

// BioAgent merges partial patient and consent patches onto the record's
// biography block and reports which required fields are still missing.
// When handed transcribed text from a non-text source it additionally
// drives the text-generation capability with a constrained extraction
// prompt and merges the individually validated fields.
type BioAgent struct {
	deps Deps
}

// NewBioAgent constructs the agent.
func NewBioAgent(deps Deps) *BioAgent {
	return &BioAgent{deps: deps.Normalized()}
}

// Name implements Agent.
func (a *BioAgent) Name() string { return "BioAgent" }

// PromptPath implements Agent.
func (a *BioAgent) PromptPath() string { return "prompts/bio.md" }

// Run implements Agent.
func (a *BioAgent) Run(ctx context.Context, input Input, rc RunContext) (Result, error) {
	in := BioInput{}
	if input != nil {
		typed, ok := input.(BioInput)
		if !ok {
			return Result{}, fmt.Errorf("bio agent: unexpected input %T", input)
		}
		in = typed
	}

	merged := schema.MergePatient(rc.Record.Patient, in.Patient)
	merged.Consent = schema.MergeConsent(rc.Record.Patient.Consent, in.Consent)

	var extracted *BioExtraction
	if in.TextToParse != "" && in.Source.Method != MethodText && in.Source.Method != "" {
		extracted = a.extract(ctx, in.TextToParse)
		if extracted != nil {
			merged = schema.MergePatient(merged, extracted.Patient)
			merged.Consent = schema.MergeConsent(merged.Consent, extracted.Consent)
		}
	}

	missing := a.missingFields(merged)
	consentValid := merged.Consent.Valid()

	next := rc.Record.Clone()
	next.Patient = merged
	next.ConsentGranted = consentValid
	next.UpdatedAt = a.deps.Clock()

	if err := autosave(ctx, rc, next); err != nil {
		return Result{}, fmt.Errorf("bio agent: autosave: %w", err)
	}

	note := ""
	if len(missing) > 0 {
		note = "Awaiting confirmation on missing demographic fields"
	}
	if extracted != nil {
		note = strings.TrimSpace(fmt.Sprintf("Parsed %d fields from %s input. %s", extracted.FieldCount(), in.Source.Method, note))
	}

	return Result{
		Data: BioOutput{
			Patient:          merged,
			ConsentValidated: consentValid,
			MissingFields:    missing,
			Extracted:        extracted,
		},
		UpdatedRecord: &next,
		FollowUps:     missing,
		Provenance: []schema.ProvenanceEntry{{
			Agent:      a.Name(),
			Field:      "patient",
			Timestamp:  a.deps.Clock(),
			ArtifactID: in.Source.ArtifactID,
			Notes:      note,
		}},
	}, nil
}

// IsComplete reports whether the recorded biography satisfies the step.
func (a *BioAgent) IsComplete(rc RunContext) bool {
	return len(a.missingFields(rc.Record.Patient)) == 0
}

func (a *BioAgent) missingFields(patient schema.PatientBio) []string {
	var missing []string
	if patient.FirstName == "" && patient.PreferredName == "" {
		missing = append(missing, MissingName)
	}
	if patient.DateOfBirth == "" && patient.Age == nil {
		missing = append(missing, MissingDOBOrAge)
	}
	if !patient.Consent.Valid() {
		missing = append(missing, MissingConsent)
	}
	return missing
}

const extractionInstruction = `Extract patient biography fields from the supplied text.
Respond with a single JSON object and nothing else. Allowed keys:
firstName, lastName, preferredName, dateOfBirth (YYYY-MM-DD), age (number),
sex (female|male|intersex|unspecified), mrn,
consent (object with boolean dataStorage, photography, sharingToTeamBoard).
Omit any key the text does not support. Never invent values.`

var dobPattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)

// extract runs the constrained extraction prompt and sanitizes every field
// individually. Any parse or validation failure degrades silently to zero
// extracted fields; the extraction path never fails a run.
func (a *BioAgent) extract(ctx context.Context, text string) *BioExtraction {
	if a.deps.Generator == nil {
		a.deps.Logger.Warn("bio extraction skipped: no text generator configured")
		return nil
	}

	system := extractionInstruction
	if prompt, err := a.deps.Prompts.Load(a.PromptPath()); err == nil && strings.TrimSpace(prompt) != "" {
		system = prompt + "\n\n" + extractionInstruction
	}

	result, err := a.deps.Generator.Generate(ctx, GenerateRequest{
		SystemPrompt:    system,
		Input:           text,
		Temperature:     0,
		MaxOutputTokens: 512,
	})
	if err != nil {
		a.deps.Logger.Warn("bio extraction failed", "error", err)
		return nil
	}

	payload := extractJSONObject(result.Text)
	if payload == nil {
		a.deps.Logger.Warn("bio extraction returned no JSON object")
		return nil
	}

	extraction := &BioExtraction{}
	if v, ok := cleanExtractedString(payload["firstName"]); ok {
		extraction.Patient.FirstName = schema.SetString(v)
	}
	if v, ok := cleanExtractedString(payload["lastName"]); ok {
		extraction.Patient.LastName = schema.SetString(v)
	}
	if v, ok := cleanExtractedString(payload["preferredName"]); ok {
		extraction.Patient.PreferredName = schema.SetString(v)
	}
	if v, ok := cleanExtractedString(payload["dateOfBirth"]); ok && dobPattern.MatchString(v) {
		extraction.Patient.DateOfBirth = schema.SetString(v)
	}
	if v, ok := cleanExtractedAge(payload["age"]); ok {
		extraction.Patient.Age = schema.SetAge(v)
	}
	if v, ok := cleanExtractedString(payload["sex"]); ok && schema.ValidSex(v) {
		extraction.Patient.Sex = schema.SetString(v)
	}
	if v, ok := cleanExtractedString(payload["mrn"]); ok {
		extraction.Patient.MRN = schema.SetString(v)
	}
	extraction.Consent = cleanExtractedConsent(payload["consent"])
	return extraction
}

// extractJSONObject pulls the first JSON object out of a model response,
// tolerating markdown code fences and surrounding prose.
func extractJSONObject(text string) map[string]json.RawMessage {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil
	}
	return payload
}

func cleanExtractedString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func cleanExtractedAge(raw json.RawMessage) (int, bool) {
	if raw == nil {
		return 0, false
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	}
	years := int(number)
	if years < 0 || years > 120 {
		return 0, false
	}
	return years, true
}

func cleanExtractedConsent(raw json.RawMessage) schema.ConsentPatch {
	patch := schema.ConsentPatch{}
	if raw == nil {
		return patch
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return patch
	}
	if v, ok := cleanExtractedBool(fields["dataStorage"]); ok {
		patch.DataStorage = schema.SetBool(v)
	}
	if v, ok := cleanExtractedBool(fields["photography"]); ok {
		patch.Photography = schema.SetBool(v)
	}
	if v, ok := cleanExtractedBool(fields["sharingToTeamBoard"]); ok {
		patch.SharingToTeamBoard = schema.SetBool(v)
	}
	return patch
}

func cleanExtractedBool(raw json.RawMessage) (bool, bool) {
	if raw == nil {
		return false, false
	}
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}
	return value, true
}
