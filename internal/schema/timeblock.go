package schema

import "time"

// TissueBreakdown is the T of a TIME assessment: percentages of the wound
// bed by tissue type. Individual values stay within 0-100 and the four
// together must not sum above 100.
type TissueBreakdown struct {
	GranulationPct float64 `json:"granulationPct"`
	SloughPct      float64 `json:"sloughPct"`
	NecroticPct    float64 `json:"necroticPct"`
	EpithelialPct  float64 `json:"epithelialPct"`
}

// Total returns the summed tissue percentages.
func (t TissueBreakdown) Total() float64 {
	return t.GranulationPct + t.SloughPct + t.NecroticPct + t.EpithelialPct
}

// InfectionInflammation is the I of a TIME assessment.
type InfectionInflammation struct {
	Odor     string `json:"odor,omitempty"`
	Erythema string `json:"erythema,omitempty"`
	Pain     string `json:"pain,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Moisture is the M of a TIME assessment.
type Moisture struct {
	Exudate            string `json:"exudate,omitempty"`
	Consistency        string `json:"consistency,omitempty"`
	DressingSaturation string `json:"dressingSaturation,omitempty"`
}

// Edge is the E of a TIME assessment.
type Edge struct {
	Condition          string   `json:"condition,omitempty"`
	UnderminingDepthCm *float64 `json:"underminingDepthCm,omitempty"`
	Epibole            *bool    `json:"epibole,omitempty"`
}

// TimeBlock is a structured TIME wound assessment. Nil members were not
// assessed yet.
type TimeBlock struct {
	Tissue     *TissueBreakdown       `json:"tissue,omitempty"`
	Infection  *InfectionInflammation `json:"infectionInflammation,omitempty"`
	Moisture   *Moisture              `json:"moisture,omitempty"`
	Edge       *Edge                  `json:"edge,omitempty"`
	Notes      []string               `json:"notes"`
	CapturedAt *time.Time             `json:"capturedAt,omitempty"`
	AssessedBy string                 `json:"assessedBy,omitempty"`
}

// Clone returns a deep copy of the TIME block.
func (b TimeBlock) Clone() TimeBlock {
	out := b
	if b.Tissue != nil {
		t := *b.Tissue
		out.Tissue = &t
	}
	if b.Infection != nil {
		i := *b.Infection
		out.Infection = &i
	}
	if b.Moisture != nil {
		m := *b.Moisture
		out.Moisture = &m
	}
	if b.Edge != nil {
		e := *b.Edge
		out.Edge = &e
		if b.Edge.UnderminingDepthCm != nil {
			d := *b.Edge.UnderminingDepthCm
			out.Edge.UnderminingDepthCm = &d
		}
		if b.Edge.Epibole != nil {
			ep := *b.Edge.Epibole
			out.Edge.Epibole = &ep
		}
	}
	out.Notes = append([]string(nil), b.Notes...)
	if b.CapturedAt != nil {
		ts := *b.CapturedAt
		out.CapturedAt = &ts
	}
	return out
}

// MergeTime overlays the recorded TIME block with any section present in
// the patch. Sections merge wholesale; nil patch sections preserve the
// baseline. Notes replace when supplied.
func MergeTime(base *TimeBlock, patch TimeBlock) TimeBlock {
	merged := TimeBlock{}
	if base != nil {
		merged = base.Clone()
	}
	if patch.Tissue != nil {
		t := *patch.Tissue
		merged.Tissue = &t
	}
	if patch.Infection != nil {
		i := *patch.Infection
		merged.Infection = &i
	}
	if patch.Moisture != nil {
		m := *patch.Moisture
		merged.Moisture = &m
	}
	if patch.Edge != nil {
		e := *patch.Edge
		merged.Edge = &e
	}
	if patch.Notes != nil {
		merged.Notes = append([]string(nil), patch.Notes...)
	}
	if patch.CapturedAt != nil {
		ts := *patch.CapturedAt
		merged.CapturedAt = &ts
	}
	if patch.AssessedBy != "" {
		merged.AssessedBy = patch.AssessedBy
	}
	return merged
}
