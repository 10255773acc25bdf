package registration

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicare/portal/internal/domain/triage"
)

// Appointment statuses.
const (
	StatusWaiting   = "waiting"
	StatusConfirmed = "confirmed"
)

// Alert types and statuses.
const (
	AlertEmergency = "emergency"
	AlertHighRisk  = "high_risk"

	AlertActive   = "active"
	AlertResolved = "resolved"
)

// CriticalScore is the urgency score from which a registration raises a
// high-risk alert and counts as critical on the dashboard.
const CriticalScore = 80

var (
	// ErrAppointmentNotFound also matches triage.ErrVerdictNotFound.
	ErrAppointmentNotFound = fmt.Errorf("appointment not found: %w", triage.ErrVerdictNotFound)
	ErrAlertNotFound       = errors.New("alert not found")
	ErrDuplicateID         = errors.New("registration id already in use")
	ErrUnknownDepartment   = errors.New("unknown department")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)

// Appointment maps to the registration table: the triage verdict plus the
// state an administrator changes afterwards.
type Appointment struct {
	ID uuid.UUID `db:"id" json:"id"`
	triage.Verdict
	Status          string     `db:"status" json:"status"`
	AppointmentTime *time.Time `db:"appointment_time" json:"appointment_time,omitempty"`
	AdminNotes      string     `db:"admin_notes" json:"admin_notes,omitempty"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StatusView is what a patient sees when looking up a registration id.
type StatusView struct {
	RegistrationID  string            `json:"registration_id"`
	Name            string            `json:"name"`
	Department      triage.Department `json:"department"`
	PriorityBand    triage.Band       `json:"priority_band"`
	Status          string            `json:"status"`
	AppointmentTime *time.Time        `json:"appointment_time,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (a *Appointment) StatusView() StatusView {
	return StatusView{
		RegistrationID:  a.RegistrationID,
		Name:            a.Intake.Name,
		Department:      a.Department,
		PriorityBand:    a.PriorityBand,
		Status:          a.Status,
		AppointmentTime: a.AppointmentTime,
		CreatedAt:       a.CreatedAt,
	}
}

// EmergencyAlert maps to the emergency_alert table.
type EmergencyAlert struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RegistrationID string     `db:"registration_id" json:"registration_id"`
	AlertType      string     `db:"alert_type" json:"alert_type"`
	Message        string     `db:"message" json:"message"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// SymptomCount is one entry of the common symptoms table.
type SymptomCount struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Total           int                       `json:"total"`
	TotalToday      int                       `json:"total_today"`
	Critical        int                       `json:"critical"`
	EmergencyRouted int                       `json:"emergency_routed"`
	Waiting         int                       `json:"waiting"`
	Confirmed       int                       `json:"confirmed"`
	ActiveAlerts    int                       `json:"active_alerts"`
	Departments     map[triage.Department]int `json:"departments"`
	Bands           map[string]int            `json:"bands"`
	CommonSymptoms  []SymptomCount            `json:"common_symptoms"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

// Report is the per-registration payload behind the admin detail view.
type Report struct {
	Appointment *Appointment                  `json:"appointment"`
	Similarity  map[triage.Department]float64 `json:"similarity"`
	Alerts      []*EmergencyAlert             `json:"alerts"`
}
