package schema

import "time"

// ArtifactKind classifies externally captured assets.
type ArtifactKind string

const (
	ArtifactImage    ArtifactKind = "image"
	ArtifactAudio    ArtifactKind = "audio"
	ArtifactDocument ArtifactKind = "document"
	ArtifactText     ArtifactKind = "text"
	ArtifactOther    ArtifactKind = "other"
)

// ArtifactKinds lists every accepted kind value.
var ArtifactKinds = []ArtifactKind{ArtifactImage, ArtifactAudio, ArtifactDocument, ArtifactText, ArtifactOther}

// ArtifactQA carries optional quality metadata attached at capture time.
type ArtifactQA struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// ArtifactRef describes any external asset captured during the session
// (wound photos, audio notes, scanned documents). Artifacts are immutable
// once created and are referenced by id from provenance entries.
type ArtifactRef struct {
	ID          string            `json:"id"`
	Kind        ArtifactKind      `json:"kind"`
	URI         string            `json:"uri"`
	CapturedAt  *time.Time        `json:"capturedAt,omitempty"`
	CapturedBy  string            `json:"capturedBy,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	QA          *ArtifactQA       `json:"qa,omitempty"`
}

// Clone returns a deep copy of the artifact reference.
func (a ArtifactRef) Clone() ArtifactRef {
	out := a
	if a.CapturedAt != nil {
		ts := *a.CapturedAt
		out.CapturedAt = &ts
	}
	if a.Metadata != nil {
		out.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	if a.QA != nil {
		qa := *a.QA
		if a.QA.Confidence != nil {
			c := *a.QA.Confidence
			qa.Confidence = &c
		}
		out.QA = &qa
	}
	return out
}

// QAFlag records the outcome of one imaging quality check.
type QAFlag string

const (
	QAPass    QAFlag = "pass"
	QAFail    QAFlag = "fail"
	QAUnknown QAFlag = "unknown"
)

// PhotoChecklist tracks the imaging QA checks applied to a wound photo.
// Zero values mean the check has not been evaluated yet.
type PhotoChecklist struct {
	Framing    QAFlag `json:"framing,omitempty"`
	Focus      QAFlag `json:"focus,omitempty"`
	Lighting   QAFlag `json:"lighting,omitempty"`
	Scale      QAFlag `json:"scale,omitempty"`
	Identifier QAFlag `json:"identifier,omitempty"`
}

// WoundPhoto is an image artifact enriched with wound-imaging metadata.
type WoundPhoto struct {
	ArtifactRef

	Site                  string         `json:"site,omitempty"`
	Orientation           string         `json:"orientation,omitempty"`
	ScalePresent          bool           `json:"scalePresent"`
	EstimatedScaleCmPerPx *float64       `json:"estimatedScaleCmPerPixel,omitempty"`
	Checklist             PhotoChecklist `json:"qaChecklist"`
}

// Clone returns a deep copy of the wound photo.
func (p WoundPhoto) Clone() WoundPhoto {
	out := p
	out.ArtifactRef = p.ArtifactRef.Clone()
	if p.EstimatedScaleCmPerPx != nil {
		v := *p.EstimatedScaleCmPerPx
		out.EstimatedScaleCmPerPx = &v
	}
	return out
}
