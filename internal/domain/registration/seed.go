package registration

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/medicare/portal/internal/domain/triage"
)

var seedNames = []string{
	"Maria Rodriguez", "James Thompson", "Sarah Johnson", "Michael Chen", "Emma Wilson",
	"Robert Davis", "Ananya Iyer", "Kofi Mensah", "Lucia Rossi", "Hiro Tanaka",
}

var seedSymptoms = []string{
	"chest pain and difficulty breathing",
	"severe back pain after lifting heavy objects",
	"pregnancy complications and cramping",
	"persistent headache and dizziness",
	"high fever in toddler",
	"skin rash and itching",
	"persistent cough and wheezing",
	"knee pain after a fall",
	"nausea and vomiting",
	"heart palpitations at night",
	"frequent migraine attacks",
	"sore throat and mild fever",
}

// SyntheticIntakes returns n plausible intakes drawn from rng. The same seed
// yields the same intakes.
func SyntheticIntakes(n int, rng *rand.Rand) []triage.Intake {
	out := make([]triage.Intake, 0, n)
	labels := []string{triage.SeverityMild, triage.SeverityModerate, triage.SeveritySevere}
	for i := 0; i < n; i++ {
		in := triage.Intake{
			Name:             seedNames[rng.Intn(len(seedNames))],
			Age:              rng.Intn(triage.MaxAge-1) + 1,
			Gender:           []string{"Female", "Male", "Other"}[rng.Intn(3)],
			Phone:            fmt.Sprintf("+1555%07d", rng.Intn(10_000_000)),
			SymptomText:      seedSymptoms[rng.Intn(len(seedSymptoms))],
			SymptomDays:      rng.Intn(14),
			IsEmergency:      rng.Intn(20) == 0,
			ChronicIllness:   rng.Intn(4) == 0,
			VulnerableGroup:  rng.Intn(5) == 0,
			TravelDistanceKm: float64(rng.Intn(1000)) / 10,
			LocationKind:     []triage.LocationKind{triage.LocationRural, triage.LocationUrban}[rng.Intn(2)],
		}
		if rng.Intn(2) == 0 {
			in.Severity = triage.SeverityLabel(labels[rng.Intn(len(labels))])
		} else {
			in.Severity = triage.SeverityLevel(rng.Intn(10) + 1)
		}
		out = append(out, in)
	}
	return out
}

// Seed registers n synthetic intakes through the normal triage path.
func (s *Service) Seed(ctx context.Context, n int, rng *rand.Rand) ([]*Appointment, error) {
	var out []*Appointment
	for i, in := range SyntheticIntakes(n, rng) {
		a, err := s.Register(ctx, in)
		if err != nil {
			return out, fmt.Errorf("seed registration %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
