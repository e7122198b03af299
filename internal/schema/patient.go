package schema

import "time"

// Sex enumerates the accepted values for the patient sex field.
type Sex string

const (
	SexFemale      Sex = "female"
	SexMale        Sex = "male"
	SexIntersex    Sex = "intersex"
	SexUnspecified Sex = "unspecified"
)

// ValidSex reports whether value is one of the accepted sex values.
func ValidSex(value string) bool {
	switch Sex(value) {
	case SexFemale, SexMale, SexIntersex, SexUnspecified:
		return true
	}
	return false
}

// ConsentPreferences captures what the patient agreed to. Consent is valid
// for intake purposes only when both DataStorage and Photography are true;
// SharingToTeamBoard is never required.
type ConsentPreferences struct {
	DataStorage        bool       `json:"dataStorage"`
	Photography        bool       `json:"photography"`
	SharingToTeamBoard bool       `json:"sharingToTeamBoard"`
	Notes              string     `json:"notes,omitempty"`
	CapturedAt         *time.Time `json:"capturedAt,omitempty"`
	CapturedBy         string     `json:"capturedBy,omitempty"`
}

// Valid reports whether the consent block authorizes intake to proceed.
func (c ConsentPreferences) Valid() bool {
	return c.DataStorage && c.Photography
}

// PatientContact holds optional contact details. All fields use the empty
// string as "not recorded".
type PatientContact struct {
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

// PatientBio is the demographic block of a case record. String fields use
// the empty string as "absent"; Age is a pointer so that zero is a legal
// recorded value.
type PatientBio struct {
	PatientID     string             `json:"patientId,omitempty"`
	FirstName     string             `json:"firstName,omitempty"`
	LastName      string             `json:"lastName,omitempty"`
	PreferredName string             `json:"preferredName,omitempty"`
	DateOfBirth   string             `json:"dateOfBirth,omitempty"`
	Age           *int               `json:"age,omitempty"`
	Sex           Sex                `json:"sex,omitempty"`
	MRN           string             `json:"mrn,omitempty"`
	Consent       ConsentPreferences `json:"consent"`
	Contact       *PatientContact    `json:"contact,omitempty"`
	Notes         []string           `json:"notes"`
}

// Clone returns a deep copy of the biography block.
func (p PatientBio) Clone() PatientBio {
	out := p
	if p.Age != nil {
		age := *p.Age
		out.Age = &age
	}
	if p.Contact != nil {
		contact := *p.Contact
		out.Contact = &contact
	}
	out.Notes = append([]string(nil), p.Notes...)
	if p.Consent.CapturedAt != nil {
		ts := *p.Consent.CapturedAt
		out.Consent.CapturedAt = &ts
	}
	return out
}
