package session

import (
	"testing"

	"github.com/wardlight/intake/internal/schema"
)

func TestSanitizePatientTrimsPresentFields(t *testing.T) {
	out := SanitizePatient(schema.PatientPatch{
		FirstName: schema.SetString("  Ada "),
		LastName:  schema.SetString("Lovelace"),
	})
	if !out.FirstName.Set || out.FirstName.Value != "Ada" {
		t.Fatalf("first name not trimmed: %+v", out.FirstName)
	}
	if out.LastName.Value != "Lovelace" {
		t.Fatalf("unexpected last name: %+v", out.LastName)
	}
}

func TestSanitizePatientPreservesAbsentFields(t *testing.T) {
	out := SanitizePatient(schema.PatientPatch{FirstName: schema.SetString("Ada")})
	if out.LastName.Set || out.PreferredName.Set || out.DateOfBirth.Set {
		t.Fatalf("absent fields must stay absent: %+v", out)
	}
}

func TestSanitizePatientWhitespaceOnlyBecomesClear(t *testing.T) {
	out := SanitizePatient(schema.PatientPatch{PreferredName: schema.SetString("   ")})
	if !out.PreferredName.Set || out.PreferredName.Value != "" {
		t.Fatalf("whitespace-only value should clear the field: %+v", out.PreferredName)
	}
}

func TestSanitizePatientNormalizesNotes(t *testing.T) {
	out := SanitizePatient(schema.PatientPatch{
		Notes: schema.NotesField{Set: true, Lines: []string{" line one \nline two", "", "  "}},
	})
	if !out.Notes.Set {
		t.Fatalf("notes presence lost")
	}
	want := []string{"line one", "line two"}
	if len(out.Notes.Lines) != len(want) {
		t.Fatalf("notes not normalized: %v", out.Notes.Lines)
	}
	for i := range want {
		if out.Notes.Lines[i] != want[i] {
			t.Fatalf("notes not normalized: %v", out.Notes.Lines)
		}
	}
}

func TestSanitizeConsentPassesBooleansThrough(t *testing.T) {
	out := SanitizeConsent(schema.ConsentPatch{
		DataStorage: schema.SetBool(true),
		Notes:       schema.SetString("  verbal consent  "),
	})
	if !out.DataStorage.Set || !out.DataStorage.Value {
		t.Fatalf("boolean dropped: %+v", out.DataStorage)
	}
	if out.Notes.Value != "verbal consent" {
		t.Fatalf("notes not trimmed: %+v", out.Notes)
	}
	if out.Photography.Set {
		t.Fatalf("absent boolean must stay absent")
	}
}
