package triage

import (
	"math"
	"strings"
	"time"
)

// Intake bounds.
const (
	MinAge = 0
	MaxAge = 120
)

// Coordinator is the per-intake entry point of the triage core. It holds no
// mutable state and may be shared across goroutines.
type Coordinator struct {
	classifier *Classifier
	now        func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the source of Verdict.CreatedAt.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator returns a coordinator using classifier, or a default
// classifier over DefaultLexicon when nil.
func NewCoordinator(classifier *Classifier, opts ...CoordinatorOption) *Coordinator {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	c := &Coordinator{classifier: classifier, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classifier returns the classifier used by the coordinator.
func (c *Coordinator) Classifier() *Classifier {
	return c.classifier
}

// Triage validates the intake and produces its verdict. The only error it
// returns is an *InvalidIntakeError.
func (c *Coordinator) Triage(in Intake) (*Verdict, error) {
	in, err := ValidateIntake(in)
	if err != nil {
		return nil, err
	}

	dept := c.classifier.Classify(in.SymptomText, in.Age)
	score, band := Score(in)

	routed := false
	if in.IsEmergency {
		score = clampScore(score + EmergencyBoost)
		band = PriorityBandOf(score)
		routed = true
	}
	if dept == Emergency {
		routed = true
	}
	if !InCatalog(dept) {
		dept = GeneralMedicine
	}

	return &Verdict{
		Intake:          in,
		UrgencyScore:    score,
		PriorityBand:    band,
		Department:      dept,
		EmergencyRouted: routed,
		CreatedAt:       c.now().UTC().Truncate(time.Microsecond),
	}, nil
}

// ValidateIntake checks every required field and returns the intake with
// surrounding whitespace trimmed and the location tag canonicalised.
func ValidateIntake(in Intake) (Intake, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SymptomText = strings.TrimSpace(in.SymptomText)
	in.Gender = strings.TrimSpace(in.Gender)

	if in.Name == "" {
		return in, invalid("name", "is required")
	}
	if in.Age < MinAge || in.Age > MaxAge {
		return in, invalid("age", "must be in [%d, %d], got %d", MinAge, MaxAge, in.Age)
	}
	if in.SymptomText == "" {
		return in, invalid("symptom_text", "is required")
	}
	if in.Severity.IsZero() {
		return in, invalid("severity", "is required")
	}
	if err := in.Severity.validate(); err != nil {
		return in, invalid("severity", "%s", err.Error())
	}
	if in.SymptomDays < 0 {
		return in, invalid("symptom_days", "must not be negative, got %d", in.SymptomDays)
	}
	if math.IsNaN(in.TravelDistanceKm) || math.IsInf(in.TravelDistanceKm, 0) || in.TravelDistanceKm < 0 {
		return in, invalid("travel_distance_km", "must be a non-negative number")
	}
	switch {
	case in.LocationKind == "":
	case strings.EqualFold(string(in.LocationKind), string(LocationRural)):
		in.LocationKind = LocationRural
	case strings.EqualFold(string(in.LocationKind), string(LocationUrban)):
		in.LocationKind = LocationUrban
	default:
		return in, invalid("location_kind", "must be Rural or Urban, got %q", in.LocationKind)
	}
	return in, nil
}
