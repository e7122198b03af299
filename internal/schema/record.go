package schema

import (
	"time"

	"github.com/google/uuid"
)

// SchemaName identifies the persisted record layout.
const SchemaName = "wardlight.wound.v1"

// SchemaVersion is bumped on breaking layout changes.
const SchemaVersion = 1

// CaseStatus tracks the record lifecycle.
type CaseStatus string

const (
	StatusDraft          CaseStatus = "draft"
	StatusReadyForReview CaseStatus = "ready_for_review"
	StatusLocked         CaseStatus = "locked"
)

// FollowUpStatus tracks one follow-up question.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpResolved  FollowUpStatus = "resolved"
	FollowUpDismissed FollowUpStatus = "dismissed"
)

// ProvenanceEntry is one line of the append-only audit log recording which
// agent touched which field and when. Entries are never edited or removed.
type ProvenanceEntry struct {
	Agent      string    `json:"agent"`
	Field      string    `json:"field"`
	Timestamp  time.Time `json:"timestamp"`
	ArtifactID string    `json:"artifactId,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// FollowUpItem is an open question for the clinician or patient. Question
// text is normalized to end in a question mark.
type FollowUpItem struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer,omitempty"`
	Status    FollowUpStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// WoundOverrides carries clinician decisions that supersede automated QA.
type WoundOverrides struct {
	RequiresRetake    bool   `json:"requiresRetake,omitempty"`
	ClinicianOverride string `json:"clinicianOverride,omitempty"`
}

// WoundSection groups everything captured about the wound itself.
type WoundSection struct {
	Site        string          `json:"site,omitempty"`
	Description string          `json:"description,omitempty"`
	Photos      []WoundPhoto    `json:"photos"`
	Overrides   *WoundOverrides `json:"overrides,omitempty"`
}

// Clone returns a deep copy of the wound section.
func (w WoundSection) Clone() WoundSection {
	out := w
	out.Photos = make([]WoundPhoto, len(w.Photos))
	for i, photo := range w.Photos {
		out.Photos[i] = photo.Clone()
	}
	if w.Overrides != nil {
		ov := *w.Overrides
		out.Overrides = &ov
	}
	return out
}

// EncryptedField is the ciphertext envelope stored in place of a sensitive
// plaintext value.
type EncryptedField struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	KeyVersion int    `json:"keyVersion"`
}

// StorageMeta carries persistence bookkeeping. State is the durable
// workflow position; Revision is a monotonic counter used for optimistic
// concurrency at the repository boundary.
type StorageMeta struct {
	Version     int        `json:"version"`
	Schema      string     `json:"schema"`
	State       string     `json:"state,omitempty"`
	Revision    int        `json:"revision"`
	PinIssuedAt *time.Time `json:"pinIssuedAt,omitempty"`
}

// CaseRecord is the single mutable aggregate for one clinical case. Agents
// mutate it exclusively by full-record replacement: take a Clone, change
// fields, hand the copy back.
type CaseRecord struct {
	CaseID           string                    `json:"caseId"`
	ClinicianID      string                    `json:"clinicianId"`
	ClinicianPinHash string                    `json:"clinicianPinHash"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
	Patient          PatientBio                `json:"patient"`
	Wounds           WoundSection              `json:"wounds"`
	Vitals           *Vitals                   `json:"vitals,omitempty"`
	Time             *TimeBlock                `json:"time,omitempty"`
	FollowUps        []FollowUpItem            `json:"followUps"`
	Artifacts        []ArtifactRef             `json:"artifacts"`
	ProvenanceLog    []ProvenanceEntry         `json:"provenanceLog"`
	ConsentGranted   bool                      `json:"consentGranted"`
	Status           CaseStatus                `json:"status"`
	StorageMeta      StorageMeta               `json:"storageMeta"`
	EncryptedFields  map[string]EncryptedField `json:"encryptedFields"`
}

// Clone returns a deep copy of the record.
func (r CaseRecord) Clone() CaseRecord {
	out := r
	out.Patient = r.Patient.Clone()
	out.Wounds = r.Wounds.Clone()
	if r.Vitals != nil {
		v := r.Vitals.Clone()
		out.Vitals = &v
	}
	if r.Time != nil {
		t := r.Time.Clone()
		out.Time = &t
	}
	out.FollowUps = append([]FollowUpItem(nil), r.FollowUps...)
	out.Artifacts = make([]ArtifactRef, len(r.Artifacts))
	for i, art := range r.Artifacts {
		out.Artifacts[i] = art.Clone()
	}
	out.ProvenanceLog = append([]ProvenanceEntry(nil), r.ProvenanceLog...)
	out.EncryptedFields = make(map[string]EncryptedField, len(r.EncryptedFields))
	for path, field := range r.EncryptedFields {
		out.EncryptedFields[path] = field
	}
	if r.StorageMeta.PinIssuedAt != nil {
		ts := *r.StorageMeta.PinIssuedAt
		out.StorageMeta.PinIssuedAt = &ts
	}
	return out
}

// RecordOverride customizes a blank record at creation time.
type RecordOverride func(*CaseRecord)

// WithCaseID fixes the case identifier instead of generating one.
func WithCaseID(caseID string) RecordOverride {
	return func(r *CaseRecord) {
		if caseID != "" {
			r.CaseID = caseID
		}
	}
}

// WithClinicianID fixes the clinician identifier instead of generating one.
func WithClinicianID(clinicianID string) RecordOverride {
	return func(r *CaseRecord) {
		if clinicianID != "" {
			r.ClinicianID = clinicianID
		}
	}
}

// NewCaseRecord builds a blank draft record with all collections
// initialized and the workflow anchored at the biography step.
func NewCaseRecord(now time.Time, overrides ...RecordOverride) CaseRecord {
	record := CaseRecord{
		CaseID:           uuid.NewString(),
		ClinicianID:      uuid.NewString(),
		ClinicianPinHash: "pending",
		CreatedAt:        now,
		UpdatedAt:        now,
		Patient: PatientBio{
			Consent: ConsentPreferences{},
			Notes:   []string{},
		},
		Wounds:          WoundSection{Photos: []WoundPhoto{}},
		FollowUps:       []FollowUpItem{},
		Artifacts:       []ArtifactRef{},
		ProvenanceLog:   []ProvenanceEntry{},
		Status:          StatusDraft,
		EncryptedFields: map[string]EncryptedField{},
		StorageMeta: StorageMeta{
			Version: SchemaVersion,
			Schema:  SchemaName,
			State:   "BIO_INTAKE",
		},
	}
	for _, override := range overrides {
		if override != nil {
			override(&record)
		}
	}
	return record
}
