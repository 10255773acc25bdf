package triage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Department is a recommended medical department. Only members of Catalog
// are ever emitted by the coordinator.
type Department string

const (
	GeneralMedicine Department = "General Medicine"
	Cardiology      Department = "Cardiology"
	Pulmonology     Department = "Pulmonology"
	Orthopedics     Department = "Orthopedics"
	Gynecology      Department = "Gynecology"
	Pediatrics      Department = "Pediatrics"
	Dermatology     Department = "Dermatology"
	Neurology       Department = "Neurology"
	Emergency       Department = "Emergency"
)

// Catalog is the ordered set of departments known to the system. The order
// breaks similarity ties.
var Catalog = []Department{
	GeneralMedicine,
	Cardiology,
	Pulmonology,
	Orthopedics,
	Gynecology,
	Pediatrics,
	Dermatology,
	Neurology,
	Emergency,
}

// InCatalog reports whether d is a known department.
func InCatalog(d Department) bool {
	for _, c := range Catalog {
		if c == d {
			return true
		}
	}
	return false
}

// Band is the qualitative priority derived from an urgency score.
type Band int

const (
	BandLow Band = iota
	BandMedium
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandHigh:
		return "High"
	case BandMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Rank orders bands from least to most urgent.
func (b Band) Rank() int { return int(b) }

// ParseBand converts a stored label back into a Band.
func ParseBand(s string) (Band, error) {
	switch s {
	case "Low":
		return BandLow, nil
	case "Medium":
		return BandMedium, nil
	case "High":
		return BandHigh, nil
	}
	return BandLow, fmt.Errorf("unknown priority band %q", s)
}

func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Band) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBand(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// LocationKind tags where the patient lives. The zero value means unknown.
type LocationKind string

const (
	LocationRural LocationKind = "Rural"
	LocationUrban LocationKind = "Urban"
)

// Severity is the patient-reported severity in either the categorical form
// (Mild, Moderate, Severe) or the numeric 1-10 form. Exactly one of Label and
// Level is set on a valid severity.
type Severity struct {
	Label string
	Level int
}

const (
	SeverityMild     = "Mild"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
)

// SeverityLabel builds a categorical severity.
func SeverityLabel(label string) Severity { return Severity{Label: label} }

// SeverityLevel builds a numeric severity.
func SeverityLevel(level int) Severity { return Severity{Level: level} }

// IsZero reports whether no severity was supplied.
func (s Severity) IsZero() bool { return s.Label == "" && s.Level == 0 }

// Value normalises the severity onto [0, 100]. Callers validate first;
// an unknown label yields 0.
func (s Severity) Value() int {
	if s.Label != "" {
		switch s.Label {
		case SeverityMild:
			return 20
		case SeverityModerate:
			return 50
		case SeveritySevere:
			return 80
		}
		return 0
	}
	return s.Level * 10
}

func (s Severity) validate() error {
	switch {
	case s.Label != "" && s.Level != 0:
		return fmt.Errorf("must be either a label or a level, not both")
	case s.Label != "":
		switch s.Label {
		case SeverityMild, SeverityModerate, SeveritySevere:
			return nil
		}
		return fmt.Errorf("must be one of Mild, Moderate, Severe, got %q", s.Label)
	case s.Level < 1 || s.Level > 10:
		return fmt.Errorf("must be in [1, 10], got %d", s.Level)
	}
	return nil
}

func (s Severity) String() string {
	if s.Label != "" {
		return s.Label
	}
	return strconv.Itoa(s.Level)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return json.Marshal(s.Level)
}

// UnmarshalJSON accepts "Moderate", 5 or "5". Labels are matched
// case-insensitively.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Severity{Level: n}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("severity must be a label or an integer level")
	}
	str = strings.TrimSpace(str)
	if n, err := strconv.Atoi(str); err == nil {
		*s = Severity{Level: n}
		return nil
	}
	for _, l := range []string{SeverityMild, SeverityModerate, SeveritySevere} {
		if strings.EqualFold(str, l) {
			*s = Severity{Label: l}
			return nil
		}
	}
	*s = Severity{Label: str}
	return nil
}

// Intake is one patient's registration form submission.
type Intake struct {
	Name             string       `json:"name"`
	Age              int          `json:"age"`
	Gender           string       `json:"gender"`
	Phone            string       `json:"phone,omitempty"`
	Email            string       `json:"email,omitempty"`
	SymptomText      string       `json:"symptom_text"`
	Severity         Severity     `json:"severity"`
	SymptomDays      int          `json:"symptom_days"`
	IsEmergency      bool         `json:"is_emergency"`
	ChronicIllness   bool         `json:"chronic_illness"`
	VulnerableGroup  bool         `json:"vulnerable_group"`
	TravelDistanceKm float64      `json:"travel_distance_km"`
	LocationKind     LocationKind `json:"location_kind,omitempty"`
}

// Verdict is the outcome of triaging one intake. It is never mutated after
// emission.
type Verdict struct {
	RegistrationID  string     `json:"registration_id"`
	Intake          Intake     `json:"intake"`
	UrgencyScore    int        `json:"urgency_score"`
	PriorityBand    Band       `json:"priority_band"`
	Department      Department `json:"department"`
	EmergencyRouted bool       `json:"emergency_routed"`
	CreatedAt       time.Time  `json:"created_at"`
}
