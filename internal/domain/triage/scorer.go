package triage

// Score weights and band thresholds.
const (
	MaxUrgency = 100

	HighThreshold   = 80
	MediumThreshold = 50

	EmergencyFlagWeight = 40
	// EmergencyBoost is added by the coordinator on top of the scorer's
	// result when the intake is flagged as an emergency.
	EmergencyBoost = 30

	chronicWeight     = 20
	vulnerableWeight  = 25
	ruralWeight       = 15
	extremeAgeWeight  = 30
	elevatedAgeWeight = 20
	longDaysWeight    = 15
	someDaysWeight    = 10
	farTravelWeight   = 20
	someTravelWeight  = 10
)

// PriorityBandOf maps an urgency score to its band.
func PriorityBandOf(score int) Band {
	switch {
	case score >= HighThreshold:
		return BandHigh
	case score >= MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Score computes the clamped urgency score of an intake and its band. The
// intake is assumed valid.
func Score(in Intake) (int, Band) {
	s := in.Severity.Value()
	s += ageWeight(in.Age)
	s += durationWeight(in.SymptomDays)
	s += travelWeight(in.TravelDistanceKm)
	if in.ChronicIllness {
		s += chronicWeight
	}
	if in.VulnerableGroup {
		s += vulnerableWeight
	}
	if in.LocationKind == LocationRural {
		s += ruralWeight
	}
	if in.IsEmergency {
		s += EmergencyFlagWeight
	}
	s = clampScore(s)
	return s, PriorityBandOf(s)
}

func ageWeight(age int) int {
	switch {
	case age < 2 || age > 70:
		return extremeAgeWeight
	case age < 12 || age > 60:
		return elevatedAgeWeight
	}
	return 0
}

func durationWeight(days int) int {
	switch {
	case days > 7:
		return longDaysWeight
	case days > 3:
		return someDaysWeight
	}
	return 0
}

func travelWeight(km float64) int {
	switch {
	case km > 100:
		return farTravelWeight
	case km > 50:
		return someTravelWeight
	}
	return 0
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > MaxUrgency {
		return MaxUrgency
	}
	return s
}
