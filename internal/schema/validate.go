package schema

import (
	"fmt"

	"github.com/google/uuid"
)

// SensitiveFieldPaths enumerates the dotted paths the data steward moves
// into the encrypted map before a record is promoted for review. The
// encryptedFields keys of a valid record are always a subset of this set.
var SensitiveFieldPaths = []string{
	"patient.firstName",
	"patient.lastName",
	"patient.contact.phone",
	"patient.contact.email",
	"patient.contact.addressLine1",
}

// SensitiveValue reads the plaintext at a sensitive dotted path. The bool
// result is false for paths outside the registry.
func SensitiveValue(record CaseRecord, path string) (string, bool) {
	switch path {
	case "patient.firstName":
		return record.Patient.FirstName, true
	case "patient.lastName":
		return record.Patient.LastName, true
	case "patient.contact.phone":
		if record.Patient.Contact == nil {
			return "", true
		}
		return record.Patient.Contact.Phone, true
	case "patient.contact.email":
		if record.Patient.Contact == nil {
			return "", true
		}
		return record.Patient.Contact.Email, true
	case "patient.contact.addressLine1":
		if record.Patient.Contact == nil {
			return "", true
		}
		return record.Patient.Contact.AddressLine1, true
	}
	return "", false
}

// ClearSensitiveValue blanks the plaintext at a sensitive dotted path on
// the given record. Unknown paths are ignored.
func ClearSensitiveValue(record *CaseRecord, path string) {
	switch path {
	case "patient.firstName":
		record.Patient.FirstName = ""
	case "patient.lastName":
		record.Patient.LastName = ""
	case "patient.contact.phone":
		if record.Patient.Contact != nil {
			record.Patient.Contact.Phone = ""
		}
	case "patient.contact.email":
		if record.Patient.Contact != nil {
			record.Patient.Contact.Email = ""
		}
	case "patient.contact.addressLine1":
		if record.Patient.Contact != nil {
			record.Patient.Contact.AddressLine1 = ""
		}
	}
}

func sensitivePath(path string) bool {
	for _, known := range SensitiveFieldPaths {
		if known == path {
			return true
		}
	}
	return false
}

// Validate checks the record against the schema invariants and returns one
// message per violation. An empty slice means the record can be promoted
// to ready_for_review.
func Validate(record CaseRecord) []string {
	var problems []string

	if _, err := uuid.Parse(record.CaseID); err != nil {
		problems = append(problems, "caseId must be a UUID")
	}
	if _, err := uuid.Parse(record.ClinicianID); err != nil {
		problems = append(problems, "clinicianId must be a UUID")
	}
	if record.ClinicianPinHash == "" {
		problems = append(problems, "clinicianPinHash is required")
	}
	if record.UpdatedAt.Before(record.CreatedAt) {
		problems = append(problems, "updatedAt precedes createdAt")
	}

	switch record.Status {
	case StatusDraft, StatusReadyForReview, StatusLocked:
	default:
		problems = append(problems, fmt.Sprintf("unknown status %q", record.Status))
	}

	if record.Patient.Age != nil && (*record.Patient.Age < 0 || *record.Patient.Age > 120) {
		problems = append(problems, "patient age out of range")
	}
	if record.Patient.Sex != "" && !ValidSex(string(record.Patient.Sex)) {
		problems = append(problems, fmt.Sprintf("unknown sex %q", record.Patient.Sex))
	}
	if record.ConsentGranted && !record.Patient.Consent.Valid() {
		problems = append(problems, "consentGranted set without valid consent preferences")
	}

	if record.Time != nil && record.Time.Tissue != nil {
		tissue := record.Time.Tissue
		for _, pct := range []float64{tissue.GranulationPct, tissue.SloughPct, tissue.NecroticPct, tissue.EpithelialPct} {
			if pct < 0 || pct > 100 {
				problems = append(problems, "tissue percentage out of range")
				break
			}
		}
		if tissue.Total() > 100 {
			problems = append(problems, "Tissue percentages must not exceed 100")
		}
	}

	for i, item := range record.FollowUps {
		switch item.Status {
		case FollowUpPending, FollowUpResolved, FollowUpDismissed:
		default:
			problems = append(problems, fmt.Sprintf("followUps[%d] has unknown status %q", i, item.Status))
		}
	}

	for i, artifact := range record.Artifacts {
		if artifact.ID == "" {
			problems = append(problems, fmt.Sprintf("artifacts[%d] missing id", i))
		}
		if artifact.URI == "" {
			problems = append(problems, fmt.Sprintf("artifacts[%d] missing uri", i))
		}
		known := false
		for _, kind := range ArtifactKinds {
			if artifact.Kind == kind {
				known = true
				break
			}
		}
		if !known {
			problems = append(problems, fmt.Sprintf("artifacts[%d] has unknown kind %q", i, artifact.Kind))
		}
	}

	for path, field := range record.EncryptedFields {
		if !sensitivePath(path) {
			problems = append(problems, fmt.Sprintf("encryptedFields key %q is not a sensitive path", path))
		}
		if field.Ciphertext == "" || field.IV == "" || field.AuthTag == "" {
			problems = append(problems, fmt.Sprintf("encryptedFields[%q] payload incomplete", path))
		}
		if field.KeyVersion < 1 {
			problems = append(problems, fmt.Sprintf("encryptedFields[%q] keyVersion must be >= 1", path))
		}
	}

	return problems
}
