package schema

import "time"

// BloodPressure is a single blood pressure reading in mmHg.
type BloodPressure struct {
	Systolic   float64   `json:"systolic"`
	Diastolic  float64   `json:"diastolic"`
	Unit       string    `json:"unit"`
	CapturedAt time.Time `json:"capturedAt"`
}

// HeartRate is a single pulse reading.
type HeartRate struct {
	BPM        float64   `json:"bpm"`
	CapturedAt time.Time `json:"capturedAt"`
	Method     string    `json:"method,omitempty"`
}

// RespiratoryRate is a single respiration reading.
type RespiratoryRate struct {
	BreathsPerMinute float64   `json:"breathsPerMinute"`
	CapturedAt       time.Time `json:"capturedAt"`
}

// Temperature is a single body temperature reading.
type Temperature struct {
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	CapturedAt time.Time `json:"capturedAt"`
	Site       string    `json:"site,omitempty"`
}

// OxygenSaturation is a single SpO2 reading.
type OxygenSaturation struct {
	Percent    float64   `json:"percent"`
	CapturedAt time.Time `json:"capturedAt"`
	Method     string    `json:"method,omitempty"`
}

// PainScore records reported pain on a named scale.
type PainScore struct {
	Value      float64   `json:"value"`
	Scale      string    `json:"scale,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Vitals groups the optional measurement blocks captured during the
// vitals step. Nil members were not recorded.
type Vitals struct {
	BloodPressure    *BloodPressure    `json:"bloodPressure,omitempty"`
	HeartRate        *HeartRate        `json:"heartRate,omitempty"`
	RespiratoryRate  *RespiratoryRate  `json:"respiratoryRate,omitempty"`
	Temperature      *Temperature      `json:"temperature,omitempty"`
	OxygenSaturation *OxygenSaturation `json:"oxygenSaturation,omitempty"`
	PainScore        *PainScore        `json:"painScore,omitempty"`
}

// Clone returns a deep copy of the vitals block.
func (v Vitals) Clone() Vitals {
	out := Vitals{}
	if v.BloodPressure != nil {
		bp := *v.BloodPressure
		out.BloodPressure = &bp
	}
	if v.HeartRate != nil {
		hr := *v.HeartRate
		out.HeartRate = &hr
	}
	if v.RespiratoryRate != nil {
		rr := *v.RespiratoryRate
		out.RespiratoryRate = &rr
	}
	if v.Temperature != nil {
		t := *v.Temperature
		out.Temperature = &t
	}
	if v.OxygenSaturation != nil {
		o := *v.OxygenSaturation
		out.OxygenSaturation = &o
	}
	if v.PainScore != nil {
		p := *v.PainScore
		out.PainScore = &p
	}
	return out
}

// MergeVitals overlays the recorded blocks with any block present in the
// patch. Merging is per block, not per reading: a submitted block replaces
// the stored one wholesale, while nil patch blocks preserve the baseline.
func MergeVitals(base *Vitals, patch Vitals) Vitals {
	merged := Vitals{}
	if base != nil {
		merged = base.Clone()
	}
	if patch.BloodPressure != nil {
		bp := *patch.BloodPressure
		merged.BloodPressure = &bp
	}
	if patch.HeartRate != nil {
		hr := *patch.HeartRate
		merged.HeartRate = &hr
	}
	if patch.RespiratoryRate != nil {
		rr := *patch.RespiratoryRate
		merged.RespiratoryRate = &rr
	}
	if patch.Temperature != nil {
		t := *patch.Temperature
		merged.Temperature = &t
	}
	if patch.OxygenSaturation != nil {
		o := *patch.OxygenSaturation
		merged.OxygenSaturation = &o
	}
	if patch.PainScore != nil {
		p := *patch.PainScore
		merged.PainScore = &p
	}
	return merged
}
