package triage

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) CoordinatorOption {
	return WithClock(func() time.Time { return t })
}

func TestTriage_Scenarios(t *testing.T) {
	coord := NewCoordinator(nil)

	cases := []struct {
		name       string
		in         Intake
		wantDept   Department
		wantScore  int
		wantBand   Band
		wantRouted bool
	}{
		{
			name: "cardiac presentation routed to emergency",
			in: Intake{
				Name: "Ramesh", Age: 67, Severity: SeverityLabel(SeveritySevere),
				SymptomText:    "chest pain and difficulty breathing",
				ChronicIllness: true, VulnerableGroup: true,
				TravelDistanceKm: 85.5, LocationKind: LocationRural,
			},
			wantDept: Emergency, wantScore: 100, wantBand: BandHigh, wantRouted: true,
		},
		{
			name: "back pain",
			in: Intake{
				Name: "Priya", Age: 34, Severity: SeverityLabel(SeverityModerate),
				SymptomText: "severe back pain after lifting", SymptomDays: 1,
				TravelDistanceKm: 12.3, LocationKind: LocationUrban,
			},
			wantDept: Orthopedics, wantScore: 50, wantBand: BandMedium,
		},
		{
			name: "toddler fever",
			in: Intake{
				Name: "Aarav", Age: 3, Severity: SeverityLabel(SeveritySevere),
				SymptomText: "high fever in toddler", SymptomDays: 2,
				TravelDistanceKm: 45.8, LocationKind: LocationRural,
			},
			wantDept: Pediatrics, wantScore: 100, wantBand: BandHigh,
		},
		{
			name: "skin rash",
			in: Intake{
				Name: "Meera", Age: 29, Severity: SeverityLabel(SeverityMild),
				SymptomText: "skin rash and itching", SymptomDays: 4,
				TravelDistanceKm: 15, LocationKind: LocationUrban,
			},
			wantDept: Dermatology, wantScore: 30, wantBand: BandLow,
		},
		{
			name: "headache",
			in: Intake{
				Name: "Vikram", Age: 45, Severity: SeverityLabel(SeverityModerate),
				SymptomText: "persistent headache and dizziness", SymptomDays: 3,
				ChronicIllness: true, TravelDistanceKm: 8.7, LocationKind: LocationUrban,
			},
			wantDept: Neurology, wantScore: 70, wantBand: BandMedium,
		},
		{
			name: "headache flagged as emergency",
			in: Intake{
				Name: "Vikram", Age: 45, Severity: SeverityLabel(SeverityModerate),
				SymptomText: "persistent headache and dizziness", SymptomDays: 3,
				IsEmergency: true, ChronicIllness: true,
				TravelDistanceKm: 8.7, LocationKind: LocationUrban,
			},
			wantDept: Neurology, wantScore: 100, wantBand: BandHigh, wantRouted: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := coord.Triage(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDept, v.Department)
			assert.Equal(t, tc.wantScore, v.UrgencyScore)
			assert.Equal(t, tc.wantBand, v.PriorityBand)
			assert.Equal(t, tc.wantRouted, v.EmergencyRouted)
			assert.Empty(t, v.RegistrationID, "ids are allocated by the store")
		})
	}
}

func TestTriage_MildBaseline(t *testing.T) {
	v, err := NewCoordinator(nil).Triage(baseIntake())
	require.NoError(t, err)
	assert.Equal(t, 20, v.UrgencyScore)
	assert.Equal(t, BandLow, v.PriorityBand)
	assert.False(t, v.EmergencyRouted)
}

func TestTriage_AgeBounds(t *testing.T) {
	coord := NewCoordinator(nil)
	for _, age := range []int{0, 120} {
		in := baseIntake()
		in.Age = age
		_, err := coord.Triage(in)
		assert.NoError(t, err, "age %d", age)
	}
	for _, age := range []int{-1, 121} {
		in := baseIntake()
		in.Age = age
		_, err := coord.Triage(in)
		require.Error(t, err, "age %d", age)
		assert.True(t, errors.Is(err, ErrInvalidIntake))

		var iie *InvalidIntakeError
		require.True(t, errors.As(err, &iie))
		assert.Equal(t, "age", iie.Field)
	}
}

func TestValidateIntake_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Intake)
		field  string
	}{
		{"blank name", func(i *Intake) { i.Name = "   " }, "name"},
		{"empty symptoms", func(i *Intake) { i.SymptomText = "" }, "symptom_text"},
		{"whitespace symptoms", func(i *Intake) { i.SymptomText = " \t\n" }, "symptom_text"},
		{"missing severity", func(i *Intake) { i.Severity = Severity{} }, "severity"},
		{"unknown label", func(i *Intake) { i.Severity = SeverityLabel("Catastrophic") }, "severity"},
		{"level too low", func(i *Intake) { i.Severity = SeverityLevel(-2) }, "severity"},
		{"level too high", func(i *Intake) { i.Severity = SeverityLevel(11) }, "severity"},
		{"both forms", func(i *Intake) { i.Severity = Severity{Label: SeverityMild, Level: 2} }, "severity"},
		{"negative days", func(i *Intake) { i.SymptomDays = -1 }, "symptom_days"},
		{"negative travel", func(i *Intake) { i.TravelDistanceKm = -0.5 }, "travel_distance_km"},
		{"nan travel", func(i *Intake) { i.TravelDistanceKm = math.NaN() }, "travel_distance_km"},
		{"infinite travel", func(i *Intake) { i.TravelDistanceKm = math.Inf(1) }, "travel_distance_km"},
		{"unknown location", func(i *Intake) { i.LocationKind = "Suburban" }, "location_kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseIntake()
			tc.mutate(&in)
			_, err := ValidateIntake(in)

			var iie *InvalidIntakeError
			require.True(t, errors.As(err, &iie), "got %v", err)
			assert.Equal(t, tc.field, iie.Field)
			assert.ErrorIs(t, err, ErrInvalidIntake)
		})
	}
}

func TestValidateIntake_Canonicalises(t *testing.T) {
	in := baseIntake()
	in.Name = "  Asha  "
	in.SymptomText = "  itchy skin "
	in.LocationKind = "rural"

	out, err := ValidateIntake(in)
	require.NoError(t, err)
	assert.Equal(t, "Asha", out.Name)
	assert.Equal(t, "itchy skin", out.SymptomText)
	assert.Equal(t, LocationRural, out.LocationKind)
}

func TestTriage_StopWordsOnlyRoutesToGeneralMedicine(t *testing.T) {
	in := baseIntake()
	in.SymptomText = "it is what it is"
	v, err := NewCoordinator(nil).Triage(in)
	require.NoError(t, err)
	assert.Equal(t, GeneralMedicine, v.Department)
}

func TestTriage_RepeatableExceptTimestamp(t *testing.T) {
	in := baseIntake()
	in.SymptomText = "persistent cough and wheezing"
	in.Severity = SeverityLevel(6)
	in.ChronicIllness = true

	a, err := NewCoordinator(nil).Triage(in)
	require.NoError(t, err)
	b, err := NewCoordinator(nil).Triage(in)
	require.NoError(t, err)

	b.CreatedAt = a.CreatedAt
	assert.Equal(t, a, b)
}

func TestTriage_UsesClock(t *testing.T) {
	at := time.Date(2024, 3, 14, 9, 26, 53, 589793238, time.FixedZone("IST", 5*3600+1800))
	v, err := NewCoordinator(nil, fixedClock(at)).Triage(baseIntake())
	require.NoError(t, err)

	assert.Equal(t, time.UTC, v.CreatedAt.Location())
	assert.True(t, v.CreatedAt.Equal(at.Truncate(time.Microsecond)))
	assert.Zero(t, v.CreatedAt.Nanosecond()%1000)
}

func TestTriage_Properties(t *testing.T) {
	coord := NewCoordinator(nil)
	texts := []string{
		"chest pain and difficulty breathing",
		"itchy skin",
		"nausea and vomiting",
		"persistent cough and wheezing",
		"my baby will not stop crying",
		"xyzzy",
	}
	severities := []Severity{
		SeverityLabel(SeverityMild), SeverityLabel(SeverityModerate), SeverityLabel(SeveritySevere),
		SeverityLevel(1), SeverityLevel(5), SeverityLevel(10),
	}

	for _, text := range texts {
		for _, sev := range severities {
			for _, age := range []int{0, 1, 8, 30, 65, 90, 120} {
				for _, flags := range []int{0, 1, 2, 3} {
					in := Intake{
						Name:             "Grid",
						Age:              age,
						SymptomText:      text,
						Severity:         sev,
						SymptomDays:      age % 10,
						ChronicIllness:   flags&1 != 0,
						VulnerableGroup:  flags&2 != 0,
						TravelDistanceKm: float64(age),
						LocationKind:     LocationRural,
					}

					calm, err := coord.Triage(in)
					require.NoError(t, err)
					in.IsEmergency = true
					urgent, err := coord.Triage(in)
					require.NoError(t, err)

					for _, v := range []*Verdict{calm, urgent} {
						assert.GreaterOrEqual(t, v.UrgencyScore, 0)
						assert.LessOrEqual(t, v.UrgencyScore, MaxUrgency)
						assert.Equal(t, PriorityBandOf(v.UrgencyScore), v.PriorityBand)
						assert.True(t, InCatalog(v.Department))
						if coord.Classifier().MatchesEmergency(text) {
							assert.Equal(t, Emergency, v.Department)
							assert.True(t, v.EmergencyRouted)
						}
					}
					assert.GreaterOrEqual(t, urgent.UrgencyScore, calm.UrgencyScore)
					assert.GreaterOrEqual(t, urgent.PriorityBand.Rank(), calm.PriorityBand.Rank())
					assert.Equal(t, calm.Department, urgent.Department)
					assert.True(t, urgent.EmergencyRouted)
				}
			}
		}
	}
}
