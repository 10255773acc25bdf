package registration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medicare/portal/internal/domain/triage"
)

// Repository stores registrations. Insert and the verdict reads come from
// triage.VerdictStore; the rest expose the admin-owned appointment state.
type Repository interface {
	triage.VerdictStore
	GetAppointment(ctx context.Context, registrationID string) (*Appointment, error)
	// ListAppointments returns appointments in arrival order. An empty
	// department lists all of them.
	ListAppointments(ctx context.Context, dept triage.Department) ([]*Appointment, error)
	Confirm(ctx context.Context, registrationID string, at time.Time, notes string) (*Appointment, error)
}

type AlertRepository interface {
	Create(ctx context.Context, a *EmergencyAlert) error
	ListActive(ctx context.Context) ([]*EmergencyAlert, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]*EmergencyAlert, error)
	Resolve(ctx context.Context, id uuid.UUID, at time.Time) (*EmergencyAlert, error)
}
