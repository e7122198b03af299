package schema

import (
	"strings"
	"testing"
	"time"
)

func validTestRecord() CaseRecord {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return NewCaseRecord(now)
}

func TestValidateAcceptsFreshRecord(t *testing.T) {
	problems := Validate(validTestRecord())
	if len(problems) != 0 {
		t.Fatalf("fresh record should validate, got %v", problems)
	}
}

func TestValidateTissueSum(t *testing.T) {
	record := validTestRecord()
	record.Time = &TimeBlock{Tissue: &TissueBreakdown{
		GranulationPct: 60,
		SloughPct:      30,
		NecroticPct:    20,
	}}
	problems := Validate(record)
	found := false
	for _, p := range problems {
		if p == "Tissue percentages must not exceed 100" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tissue sum violation, got %v", problems)
	}
}

func TestValidateTissueRange(t *testing.T) {
	record := validTestRecord()
	record.Time = &TimeBlock{Tissue: &TissueBreakdown{GranulationPct: -5}}
	problems := Validate(record)
	if !containsProblem(problems, "tissue percentage out of range") {
		t.Fatalf("expected range violation, got %v", problems)
	}
}

func TestValidateEncryptedFieldKeys(t *testing.T) {
	record := validTestRecord()
	record.EncryptedFields["patient.ssn"] = EncryptedField{
		Ciphertext: "x", IV: "y", AuthTag: "z", KeyVersion: 1,
	}
	problems := Validate(record)
	if !containsProblem(problems, "not a sensitive path") {
		t.Fatalf("expected unknown encrypted path violation, got %v", problems)
	}

	record = validTestRecord()
	record.EncryptedFields["patient.firstName"] = EncryptedField{Ciphertext: "x", KeyVersion: 0}
	problems = Validate(record)
	if !containsProblem(problems, "payload incomplete") {
		t.Fatalf("expected incomplete payload violation, got %v", problems)
	}
	if !containsProblem(problems, "keyVersion must be >= 1") {
		t.Fatalf("expected key version violation, got %v", problems)
	}
}

func TestValidateConsentConsistency(t *testing.T) {
	record := validTestRecord()
	record.ConsentGranted = true
	problems := Validate(record)
	if !containsProblem(problems, "consentGranted set without valid consent") {
		t.Fatalf("expected consent consistency violation, got %v", problems)
	}

	record.Patient.Consent = ConsentPreferences{DataStorage: true, Photography: true}
	if problems := Validate(record); len(problems) != 0 {
		t.Fatalf("valid consent should pass, got %v", problems)
	}
}

func TestValidateIdentifiers(t *testing.T) {
	record := validTestRecord()
	record.CaseID = "demo-case"
	record.ClinicianPinHash = ""
	problems := Validate(record)
	if !containsProblem(problems, "caseId must be a UUID") {
		t.Fatalf("expected caseId violation, got %v", problems)
	}
	if !containsProblem(problems, "clinicianPinHash is required") {
		t.Fatalf("expected pin hash violation, got %v", problems)
	}
}

func TestSensitiveValueRoundTrip(t *testing.T) {
	record := validTestRecord()
	record.Patient.FirstName = "Ada"
	record.Patient.Contact = &PatientContact{Phone: "555-0100"}

	value, ok := SensitiveValue(record, "patient.firstName")
	if !ok || value != "Ada" {
		t.Fatalf("expected Ada, got %q ok=%v", value, ok)
	}
	value, ok = SensitiveValue(record, "patient.contact.phone")
	if !ok || value != "555-0100" {
		t.Fatalf("expected phone, got %q ok=%v", value, ok)
	}
	if _, ok := SensitiveValue(record, "patient.ssn"); ok {
		t.Fatalf("unknown path should not resolve")
	}

	ClearSensitiveValue(&record, "patient.firstName")
	ClearSensitiveValue(&record, "patient.contact.phone")
	if record.Patient.FirstName != "" || record.Patient.Contact.Phone != "" {
		t.Fatalf("clear did not blank plaintext: %+v", record.Patient)
	}
}

func TestCloneIsDeep(t *testing.T) {
	record := validTestRecord()
	record.Patient.Notes = []string{"original"}
	record.FollowUps = []FollowUpItem{{Question: "q?", Status: FollowUpPending}}

	clone := record.Clone()
	clone.Patient.Notes[0] = "mutated"
	clone.FollowUps[0].Question = "changed?"
	clone.EncryptedFields["patient.firstName"] = EncryptedField{Ciphertext: "x"}

	if record.Patient.Notes[0] != "original" {
		t.Fatalf("notes shared between clone and original")
	}
	if record.FollowUps[0].Question != "q?" {
		t.Fatalf("follow-ups shared between clone and original")
	}
	if len(record.EncryptedFields) != 0 {
		t.Fatalf("encrypted map shared between clone and original")
	}
}

func containsProblem(problems []string, fragment string) bool {
	for _, p := range problems {
		if strings.Contains(p, fragment) {
			return true
		}
	}
	return false
}
