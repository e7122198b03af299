package schema

import (
	"encoding/json"
	"testing"
)

func TestPatientPatchPresenceFromJSON(t *testing.T) {
	var patch PatientPatch
	payload := `{"firstName":"Ada","preferredName":"","age":null}`
	if err := json.Unmarshal([]byte(payload), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !patch.FirstName.Set || patch.FirstName.Value != "Ada" {
		t.Fatalf("firstName should be present with value, got %+v", patch.FirstName)
	}
	if !patch.PreferredName.Set || patch.PreferredName.Value != "" {
		t.Fatalf("empty preferredName should be present-and-clearing, got %+v", patch.PreferredName)
	}
	if !patch.Age.Set || patch.Age.Value != nil {
		t.Fatalf("null age should be present-and-clearing, got %+v", patch.Age)
	}
	if patch.LastName.Set {
		t.Fatalf("absent lastName must stay unset")
	}
}

func TestAgeFieldCoercion(t *testing.T) {
	cases := []struct {
		payload string
		want    *int
	}{
		{`{"age":34}`, intPtr(34)},
		{`{"age":"34"}`, intPtr(34)},
		{`{"age":" 34 "}`, intPtr(34)},
		{`{"age":"thirty"}`, nil},
		{`{"age":null}`, nil},
	}
	for _, tc := range cases {
		var patch PatientPatch
		if err := json.Unmarshal([]byte(tc.payload), &patch); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.payload, err)
		}
		if !patch.Age.Set {
			t.Fatalf("%s: age should be present", tc.payload)
		}
		if (patch.Age.Value == nil) != (tc.want == nil) {
			t.Fatalf("%s: got %v, want %v", tc.payload, patch.Age.Value, tc.want)
		}
		if tc.want != nil && *patch.Age.Value != *tc.want {
			t.Fatalf("%s: got %d, want %d", tc.payload, *patch.Age.Value, *tc.want)
		}
	}
}

func TestMergePatientPreservesAbsentAndClearsPresent(t *testing.T) {
	base := PatientBio{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		PreferredName: "Addie",
	}

	merged := MergePatient(base, PatientPatch{PreferredName: SetString("")})
	if merged.PreferredName != "" {
		t.Fatalf("present empty preferredName must clear, got %q", merged.PreferredName)
	}
	if merged.FirstName != "Ada" || merged.LastName != "Lovelace" {
		t.Fatalf("absent fields must survive the merge: %+v", merged)
	}

	// Applying the same patch again must stay cleared, and an empty patch
	// must change nothing.
	again := MergePatient(merged, PatientPatch{PreferredName: SetString("")})
	if again.PreferredName != "" {
		t.Fatalf("re-clearing should be a no-op, got %q", again.PreferredName)
	}
	untouched := MergePatient(again, PatientPatch{})
	if untouched.PreferredName != "" || untouched.FirstName != "Ada" {
		t.Fatalf("empty patch must preserve everything: %+v", untouched)
	}
}

func TestMergePatientAge(t *testing.T) {
	merged := MergePatient(PatientBio{}, PatientPatch{Age: SetAge(34)})
	if merged.Age == nil || *merged.Age != 34 {
		t.Fatalf("expected age 34, got %v", merged.Age)
	}
	cleared := MergePatient(merged, PatientPatch{Age: ClearAge()})
	if cleared.Age != nil {
		t.Fatalf("ClearAge should remove the recorded age, got %v", cleared.Age)
	}
	kept := MergePatient(merged, PatientPatch{FirstName: SetString("Ada")})
	if kept.Age == nil || *kept.Age != 34 {
		t.Fatalf("absent age must survive other merges, got %v", kept.Age)
	}
}

func TestMergeConsentPerField(t *testing.T) {
	base := ConsentPreferences{DataStorage: true, Photography: true, SharingToTeamBoard: true}
	merged := MergeConsent(base, ConsentPatch{Photography: SetBool(false)})
	if merged.Photography {
		t.Fatalf("photography should be overwritten to false")
	}
	if !merged.DataStorage || !merged.SharingToTeamBoard {
		t.Fatalf("absent consent keys must be preserved: %+v", merged)
	}
}

func TestConsentValidity(t *testing.T) {
	cases := []struct {
		consent ConsentPreferences
		want    bool
	}{
		{ConsentPreferences{DataStorage: true, Photography: true}, true},
		{ConsentPreferences{DataStorage: true, Photography: true, SharingToTeamBoard: false}, true},
		{ConsentPreferences{DataStorage: true}, false},
		{ConsentPreferences{Photography: true}, false},
		{ConsentPreferences{}, false},
	}
	for _, tc := range cases {
		if got := tc.consent.Valid(); got != tc.want {
			t.Fatalf("consent %+v: got %v, want %v", tc.consent, got, tc.want)
		}
	}
}

func TestNotesFieldNormalize(t *testing.T) {
	var patch PatientPatch
	if err := json.Unmarshal([]byte(`{"notes":"first line\n\n  second line  "}`), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	lines := patch.Notes.Normalize()
	if len(lines) != 2 || lines[0] != "first line" || lines[1] != "second line" {
		t.Fatalf("unexpected normalization: %+v", lines)
	}
}

func intPtr(v int) *int { return &v }
