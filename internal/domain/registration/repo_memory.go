package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medicare/portal/internal/domain/triage"
)

// memoryRepo keeps registrations in process. Records are copied on the way
// in and out so callers never share state with the store.
type memoryRepo struct {
	mu    sync.RWMutex
	order []*Appointment
	byID  map[string]*Appointment
	alloc triage.RegistrationIDAllocator
	now   func() time.Time
}

// NewMemoryRepo returns an in-process Repository. A nil alloc uses
// triage.NewRegistrationID.
func NewMemoryRepo(alloc triage.RegistrationIDAllocator) Repository {
	if alloc == nil {
		alloc = triage.NewRegistrationID
	}
	return &memoryRepo{byID: make(map[string]*Appointment), alloc: alloc, now: time.Now}
}

func (r *memoryRepo) Insert(_ context.Context, v *triage.Verdict) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := v.RegistrationID
	if id == "" {
		var err error
		if id, err = r.alloc(); err != nil {
			return "", err
		}
	}
	if _, ok := r.byID[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	a := &Appointment{
		ID:        uuid.New(),
		Verdict:   *v,
		Status:    StatusWaiting,
		UpdatedAt: v.CreatedAt,
	}
	a.RegistrationID = id
	r.order = append(r.order, a)
	r.byID[id] = a
	v.RegistrationID = id
	return id, nil
}

func (r *memoryRepo) GetByRegistrationID(ctx context.Context, id string) (*triage.Verdict, error) {
	a, err := r.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a.Verdict, nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]*triage.Verdict, error) {
	return r.ListByDepartment(ctx, "")
}

func (r *memoryRepo) ListByDepartment(ctx context.Context, dept triage.Department) ([]*triage.Verdict, error) {
	items, err := r.ListAppointments(ctx, dept)
	if err != nil {
		return nil, err
	}
	out := make([]*triage.Verdict, len(items))
	for i, a := range items {
		out[i] = &a.Verdict
	}
	return out, nil
}

func (r *memoryRepo) GetAppointment(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return copyAppointment(a), nil
}

func (r *memoryRepo) ListAppointments(_ context.Context, dept triage.Department) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Appointment, 0, len(r.order))
	for _, a := range r.order {
		if dept == "" || a.Department == dept {
			out = append(out, copyAppointment(a))
		}
	}
	return out, nil
}

func (r *memoryRepo) Confirm(_ context.Context, id string, at time.Time, notes string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	at = at.UTC().Truncate(time.Microsecond)
	a.Status = StatusConfirmed
	a.AppointmentTime = &at
	a.AdminNotes = notes
	a.UpdatedAt = r.now().UTC().Truncate(time.Microsecond)
	return copyAppointment(a), nil
}

func copyAppointment(a *Appointment) *Appointment {
	cp := *a
	if a.AppointmentTime != nil {
		t := *a.AppointmentTime
		cp.AppointmentTime = &t
	}
	return &cp
}

type memoryAlertRepo struct {
	mu     sync.RWMutex
	alerts []*EmergencyAlert
}

func NewMemoryAlertRepo() AlertRepository {
	return &memoryAlertRepo{}
}

func (r *memoryAlertRepo) Create(_ context.Context, a *EmergencyAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = AlertActive
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	r.alerts = append(r.alerts, &cp)
	return nil
}

func (r *memoryAlertRepo) ListActive(_ context.Context) ([]*EmergencyAlert, error) {
	return r.filter(func(a *EmergencyAlert) bool { return a.Status == AlertActive }), nil
}

func (r *memoryAlertRepo) ListByRegistration(_ context.Context, registrationID string) ([]*EmergencyAlert, error) {
	return r.filter(func(a *EmergencyAlert) bool { return a.RegistrationID == registrationID }), nil
}

func (r *memoryAlertRepo) filter(keep func(*EmergencyAlert) bool) []*EmergencyAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*EmergencyAlert{}
	for _, a := range r.alerts {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (r *memoryAlertRepo) Resolve(_ context.Context, id uuid.UUID, at time.Time) (*EmergencyAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID != id {
			continue
		}
		if a.Status != AlertResolved {
			at = at.UTC()
			a.Status = AlertResolved
			a.ResolvedAt = &at
		}
		cp := *a
		return &cp, nil
	}
	return nil, ErrAlertNotFound
}
