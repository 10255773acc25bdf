package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicare/portal/internal/domain/triage"
	"github.com/medicare/portal/internal/platform/cache"
	"github.com/medicare/portal/internal/platform/events"
	"github.com/medicare/portal/pkg/pagination"
)

const (
	statsCacheKey   = "stats:dashboard"
	defaultStatsTTL = 30 * time.Second
	topSymptoms     = 5

	// EventAlertRaised is published for every emergency or high-risk alert.
	EventAlertRaised = "registration.alert_raised"
)

type Service struct {
	coord    *triage.Coordinator
	repo     Repository
	alerts   AlertRepository
	cache    cache.Cache
	statsTTL time.Duration
	events   events.Publisher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(coord *triage.Coordinator, repo Repository, alerts AlertRepository) *Service {
	if coord == nil {
		coord = triage.NewCoordinator(nil)
	}
	return &Service{
		coord:    coord,
		repo:     repo,
		alerts:   alerts,
		statsTTL: defaultStatsTTL,
		events:   events.Nop{},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

// SetCache enables caching of dashboard statistics.
func (s *Service) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	if ttl > 0 {
		s.statsTTL = ttl
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	if p == nil {
		p = events.Nop{}
	}
	s.events = p
}

func (s *Service) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// Register triages the intake and stores the result. An invalid intake is
// rejected before any store is touched. Alerting is best effort: failures
// are logged and the registration still succeeds.
func (s *Service) Register(ctx context.Context, in triage.Intake) (*Appointment, error) {
	v, err := s.coord.Triage(in)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Insert(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("store registration: %w", err)
	}
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load registration %s: %w", id, err)
	}

	if alert := alertFor(appt); alert != nil {
		s.raise(ctx, alert)
	}
	s.invalidateStats(ctx)

	s.logger.Info().
		Str("registration_id", appt.RegistrationID).
		Str("department", string(appt.Department)).
		Int("urgency_score", appt.UrgencyScore).
		Str("priority_band", appt.PriorityBand.String()).
		Bool("emergency_routed", appt.EmergencyRouted).
		Msg("registration triaged")
	return appt, nil
}

func alertFor(a *Appointment) *EmergencyAlert {
	switch {
	case a.EmergencyRouted:
		return &EmergencyAlert{
			RegistrationID: a.RegistrationID,
			AlertType:      AlertEmergency,
			Message: fmt.Sprintf("Emergency case %s (%s, age %d): %s",
				a.RegistrationID, a.Intake.Name, a.Intake.Age, a.Intake.SymptomText),
		}
	case a.UrgencyScore >= CriticalScore:
		return &EmergencyAlert{
			RegistrationID: a.RegistrationID,
			AlertType:      AlertHighRisk,
			Message: fmt.Sprintf("High-risk case %s scored %d for %s",
				a.RegistrationID, a.UrgencyScore, a.Department),
		}
	}
	return nil
}

func (s *Service) raise(ctx context.Context, alert *EmergencyAlert) {
	alert.CreatedAt = s.now().UTC()
	log := s.logger.With().
		Str("registration_id", alert.RegistrationID).
		Str("alert_type", alert.AlertType).
		Logger()

	if err := s.alerts.Create(ctx, alert); err != nil {
		log.Error().Err(err).Msg("failed to store alert")
		return
	}
	ev, err := events.NewEvent(EventAlertRaised, alert.RegistrationID, alert)
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to publish alert")
		return
	}
	log.Warn().Str("alert_id", alert.ID.String()).Msg("alert raised")
}

// Status returns the patient-facing view of a registration.
func (s *Service) Status(ctx context.Context, registrationID string) (*StatusView, error) {
	a, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	v := a.StatusView()
	return &v, nil
}

func (s *Service) Get(ctx context.Context, registrationID string) (*Appointment, error) {
	id := strings.ToUpper(strings.TrimSpace(registrationID))
	if id == "" {
		return nil, ErrAppointmentNotFound
	}
	return s.repo.GetAppointment(ctx, id)
}

// List returns one page of appointments in display order. The order is
// applied to the whole set before paging.
func (s *Service) List(ctx context.Context, dept triage.Department, limit, offset int) ([]*Appointment, int, error) {
	if dept != "" && !triage.InCatalog(dept) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownDepartment, dept)
	}
	items, err := s.ordered(ctx, dept)
	if err != nil {
		return nil, 0, err
	}
	return pagination.Page(items, limit, offset), len(items), nil
}

func (s *Service) ordered(ctx context.Context, dept triage.Department) ([]*Appointment, error) {
	items, err := s.repo.ListAppointments(ctx, dept)
	if err != nil {
		return nil, err
	}
	return triage.OrderForDisplay(items, func(a *Appointment) *triage.Verdict { return &a.Verdict }), nil
}

// Confirm books the appointment. A nil time books it for now.
func (s *Service) Confirm(ctx context.Context, registrationID string, at *time.Time, notes string) (*Appointment, error) {
	when := s.now()
	if at != nil {
		when = *at
	}
	a, err := s.repo.Confirm(ctx, strings.ToUpper(strings.TrimSpace(registrationID)), when, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return a, nil
}

func (s *Service) ActiveAlerts(ctx context.Context) ([]*EmergencyAlert, error) {
	return s.alerts.ListActive(ctx)
}

func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID) (*EmergencyAlert, error) {
	a, err := s.alerts.Resolve(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	return a, nil
}

// Report gathers the appointment, its per-department similarity scores and
// its alerts.
func (s *Service) Report(ctx context.Context, registrationID string) (*Report, error) {
	a, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListByRegistration(ctx, a.RegistrationID)
	if err != nil {
		return nil, err
	}
	return &Report{
		Appointment: a,
		Similarity:  s.coord.Classifier().Similarity(a.Intake.SymptomText),
		Alerts:      alerts,
	}, nil
}

// Export writes every appointment in display order as csv or xlsx.
func (s *Service) Export(ctx context.Context, format string, w io.Writer) error {
	write, ok := exporters[strings.ToLower(format)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	items, err := s.ordered(ctx, "")
	if err != nil {
		return err
	}
	return write(w, items)
}

// Stats returns the dashboard summary, served from cache when one is set.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		var st Stats
		err := cache.GetJSON(ctx, s.cache, statsCacheKey, &st)
		if err == nil {
			return &st, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Msg("stats cache read failed")
		}
	}

	st, err := s.computeStats(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, statsCacheKey, st, s.statsTTL); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return st, nil
}

func (s *Service) computeStats(ctx context.Context) (*Stats, error) {
	items, err := s.repo.ListAppointments(ctx, "")
	if err != nil {
		return nil, err
	}
	active, err := s.alerts.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	st := &Stats{
		Total:        len(items),
		ActiveAlerts: len(active),
		Departments:  make(map[triage.Department]int, len(triage.Catalog)),
		Bands: map[string]int{
			triage.BandLow.String():    0,
			triage.BandMedium.String(): 0,
			triage.BandHigh.String():   0,
		},
		GeneratedAt: now.UTC(),
	}
	for _, d := range triage.Catalog {
		st.Departments[d] = 0
	}

	symptoms := make(map[string]int)
	for _, a := range items {
		if !a.CreatedAt.Before(today) {
			st.TotalToday++
		}
		if a.UrgencyScore >= CriticalScore {
			st.Critical++
		}
		if a.EmergencyRouted {
			st.EmergencyRouted++
		}
		switch a.Status {
		case StatusConfirmed:
			st.Confirmed++
		default:
			st.Waiting++
		}
		st.Departments[a.Department]++
		st.Bands[a.PriorityBand.String()]++
		if sym := triage.Normalize(a.Intake.SymptomText); sym != "" {
			symptoms[sym]++
		}
	}
	st.CommonSymptoms = rankSymptoms(symptoms, topSymptoms)
	return st, nil
}

func rankSymptoms(counts map[string]int, n int) []SymptomCount {
	out := make([]SymptomCount, 0, len(counts))
	for sym, c := range counts {
		out = append(out, SymptomCount{Symptom: sym, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symptom < out[j].Symptom
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}
