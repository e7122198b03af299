package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Patch field types give every patchable attribute three states: absent
// (leave the record untouched), present with a value (overwrite), and
// present but empty (clear the field). JSON unmarshalling marks a field as
// present whenever its key appears in the payload, so callers submitting
// partial objects never clobber attributes they did not mention.

// StringField is a patch slot for a string attribute. An empty Value with
// Set true clears the attribute on merge.
type StringField struct {
	Set   bool
	Value string
}

// SetString returns a present string field.
func SetString(value string) StringField {
	return StringField{Set: true, Value: value}
}

// UnmarshalJSON marks the field present and accepts a string or null.
func (f *StringField) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Value = ""
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON round-trips the underlying value.
func (f StringField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// BoolField is a patch slot for a boolean attribute.
type BoolField struct {
	Set   bool
	Value bool
}

// SetBool returns a present boolean field.
func SetBool(value bool) BoolField {
	return BoolField{Set: true, Value: value}
}

// UnmarshalJSON marks the field present; null and invalid payloads coerce
// to false, mirroring loose boolean handling at the form boundary.
func (f *BoolField) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Value = false
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		f.Value = false
	}
	return nil
}

// MarshalJSON round-trips the underlying value.
func (f BoolField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// AgeField is a patch slot for the age attribute. A present field with a
// nil Value clears the recorded age; submissions that cannot be coerced to
// a finite number arrive here already nil.
type AgeField struct {
	Set   bool
	Value *int
}

// SetAge returns a present age field carrying a value.
func SetAge(years int) AgeField {
	return AgeField{Set: true, Value: &years}
}

// ClearAge returns a present age field that clears the attribute.
func ClearAge() AgeField {
	return AgeField{Set: true}
}

// UnmarshalJSON marks the field present and coerces numbers or numeric
// strings; anything else clears the attribute.
func (f *AgeField) UnmarshalJSON(data []byte) error {
	f.Set = true
	f.Value = nil
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	years := int(parsed)
	f.Value = &years
	return nil
}

// MarshalJSON round-trips the underlying value.
func (f AgeField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// NotesField accepts either a JSON array of strings or a single string.
// Single strings are split on newlines during normalization.
type NotesField struct {
	Set   bool
	Lines []string
}

// SetNotes returns a present notes field.
func SetNotes(lines ...string) NotesField {
	return NotesField{Set: true, Lines: lines}
}

// UnmarshalJSON marks the field present and captures either form.
func (f *NotesField) UnmarshalJSON(data []byte) error {
	f.Set = true
	f.Lines = nil
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		f.Lines = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		f.Lines = []string{single}
	}
	return nil
}

// MarshalJSON round-trips the underlying lines.
func (f NotesField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Lines)
}

// Normalize trims every line, splits embedded newlines, and drops blanks.
func (f NotesField) Normalize() []string {
	out := make([]string, 0, len(f.Lines))
	for _, entry := range f.Lines {
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// PatientPatch is a partial update of the biography block.
type PatientPatch struct {
	FirstName     StringField `json:"firstName"`
	LastName      StringField `json:"lastName"`
	PreferredName StringField `json:"preferredName"`
	DateOfBirth   StringField `json:"dateOfBirth"`
	Age           AgeField    `json:"age"`
	Sex           StringField `json:"sex"`
	MRN           StringField `json:"mrn"`
	Notes         NotesField  `json:"notes"`
}

// IsZero reports whether no field of the patch is present.
func (p PatientPatch) IsZero() bool {
	return !p.FirstName.Set && !p.LastName.Set && !p.PreferredName.Set &&
		!p.DateOfBirth.Set && !p.Age.Set && !p.Sex.Set && !p.MRN.Set && !p.Notes.Set
}

// ConsentPatch is a partial update of the consent block. Each key merges
// independently; absent keys preserve the recorded value.
type ConsentPatch struct {
	DataStorage        BoolField   `json:"dataStorage"`
	Photography        BoolField   `json:"photography"`
	SharingToTeamBoard BoolField   `json:"sharingToTeamBoard"`
	Notes              StringField `json:"notes"`
}

// IsZero reports whether no field of the patch is present.
func (p ConsentPatch) IsZero() bool {
	return !p.DataStorage.Set && !p.Photography.Set && !p.SharingToTeamBoard.Set && !p.Notes.Set
}

// MergePatient applies a patch onto a biography block and returns the
// result. Per field: a present patch value overwrites (empty string and
// nil age clear), an absent one preserves the baseline. Consent and
// contact are untouched here; consent merges through MergeConsent.
func MergePatient(base PatientBio, patch PatientPatch) PatientBio {
	merged := base.Clone()
	if patch.FirstName.Set {
		merged.FirstName = patch.FirstName.Value
	}
	if patch.LastName.Set {
		merged.LastName = patch.LastName.Value
	}
	if patch.PreferredName.Set {
		merged.PreferredName = patch.PreferredName.Value
	}
	if patch.DateOfBirth.Set {
		merged.DateOfBirth = patch.DateOfBirth.Value
	}
	if patch.Age.Set {
		merged.Age = nil
		if patch.Age.Value != nil {
			age := *patch.Age.Value
			merged.Age = &age
		}
	}
	if patch.Sex.Set {
		merged.Sex = Sex(patch.Sex.Value)
	}
	if patch.MRN.Set {
		merged.MRN = patch.MRN.Value
	}
	if patch.Notes.Set {
		merged.Notes = patch.Notes.Normalize()
	}
	return merged
}

// MergeConsent applies a consent patch per field onto the baseline block.
func MergeConsent(base ConsentPreferences, patch ConsentPatch) ConsentPreferences {
	merged := base
	if patch.DataStorage.Set {
		merged.DataStorage = patch.DataStorage.Value
	}
	if patch.Photography.Set {
		merged.Photography = patch.Photography.Value
	}
	if patch.SharingToTeamBoard.Set {
		merged.SharingToTeamBoard = patch.SharingToTeamBoard.Value
	}
	if patch.Notes.Set {
		merged.Notes = patch.Notes.Value
	}
	return merged
}
