package session

import (
	"strings"

	"github.com/wardlight/intake/internal/schema"
)

// Sanitization runs before raw form input reaches any agent. Only keys
// present in the submission are considered: an absent key is a no-op on
// its field, a present-but-empty value is an explicit clear. Strings are
// trimmed; values that trim to nothing clear their field.

// SanitizePatient normalizes a raw patient patch.
func SanitizePatient(patch schema.PatientPatch) schema.PatientPatch {
	out := patch
	out.FirstName = trimField(patch.FirstName)
	out.LastName = trimField(patch.LastName)
	out.PreferredName = trimField(patch.PreferredName)
	out.DateOfBirth = trimField(patch.DateOfBirth)
	out.Sex = trimField(patch.Sex)
	out.MRN = trimField(patch.MRN)
	if patch.Notes.Set {
		out.Notes = schema.NotesField{Set: true, Lines: patch.Notes.Normalize()}
	}
	return out
}

// SanitizeConsent normalizes a raw consent patch. Booleans pass through;
// notes are trimmed like every other string.
func SanitizeConsent(patch schema.ConsentPatch) schema.ConsentPatch {
	out := patch
	out.Notes = trimField(patch.Notes)
	return out
}

func trimField(field schema.StringField) schema.StringField {
	if !field.Set {
		return field
	}
	return schema.StringField{Set: true, Value: strings.TrimSpace(field.Value)}
}
