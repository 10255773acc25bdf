package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicare/portal/internal/domain/triage"
	"github.com/medicare/portal/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const uniqueViolation = "23505"

// =========== Registration Repository ===========

type repoPG struct {
	pool  *pgxpool.Pool
	alloc triage.RegistrationIDAllocator
}

// NewRepoPG returns a Postgres Repository. A nil alloc uses
// triage.NewRegistrationID.
func NewRepoPG(pool *pgxpool.Pool, alloc triage.RegistrationIDAllocator) Repository {
	if alloc == nil {
		alloc = triage.NewRegistrationID
	}
	return &repoPG{pool: pool, alloc: alloc}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const registrationCols = `id, registration_id, name, age, gender, phone, email,
	symptom_text, severity_label, severity_level, symptom_days, is_emergency,
	chronic_illness, vulnerable_group, travel_distance_km, location_kind,
	urgency_score, priority_band, department, emergency_routed,
	status, appointment_time, admin_notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a          Appointment
		loc, band  string
		department string
	)
	in := &a.Intake
	err := row.Scan(&a.ID, &a.RegistrationID, &in.Name, &in.Age, &in.Gender, &in.Phone, &in.Email,
		&in.SymptomText, &in.Severity.Label, &in.Severity.Level, &in.SymptomDays, &in.IsEmergency,
		&in.ChronicIllness, &in.VulnerableGroup, &in.TravelDistanceKm, &loc,
		&a.UrgencyScore, &band, &department, &a.EmergencyRouted,
		&a.Status, &a.AppointmentTime, &a.AdminNotes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}

	if a.PriorityBand, err = triage.ParseBand(band); err != nil {
		return nil, fmt.Errorf("registration %s: %w", a.RegistrationID, err)
	}
	in.LocationKind = triage.LocationKind(loc)
	a.Department = triage.Department(department)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if a.AppointmentTime != nil {
		t := a.AppointmentTime.UTC()
		a.AppointmentTime = &t
	}
	return &a, nil
}

func (r *repoPG) Insert(ctx context.Context, v *triage.Verdict) (string, error) {
	id := v.RegistrationID
	if id == "" {
		var err error
		if id, err = r.alloc(); err != nil {
			return "", err
		}
	}
	in := v.Intake
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO registration (id, registration_id, name, age, gender, phone, email,
			symptom_text, severity_label, severity_level, symptom_days, is_emergency,
			chronic_illness, vulnerable_group, travel_distance_km, location_kind,
			urgency_score, priority_band, department, emergency_routed,
			status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$22)`,
		uuid.New(), id, in.Name, in.Age, in.Gender, in.Phone, in.Email,
		in.SymptomText, in.Severity.Label, in.Severity.Level, in.SymptomDays, in.IsEmergency,
		in.ChronicIllness, in.VulnerableGroup, in.TravelDistanceKm, string(in.LocationKind),
		v.UrgencyScore, v.PriorityBand.String(), string(v.Department), v.EmergencyRouted,
		StatusWaiting, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		return "", err
	}
	v.RegistrationID = id
	return id, nil
}

func (r *repoPG) GetByRegistrationID(ctx context.Context, id string) (*triage.Verdict, error) {
	a, err := r.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a.Verdict, nil
}

func (r *repoPG) ListAll(ctx context.Context) ([]*triage.Verdict, error) {
	return r.ListByDepartment(ctx, "")
}

func (r *repoPG) ListByDepartment(ctx context.Context, dept triage.Department) ([]*triage.Verdict, error) {
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

func (r *repoPG) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+registrationCols+` FROM registration WHERE registration_id = $1`, id))
}

// listQuery returns registrations in arrival order. seq breaks ties between
// rows stamped in the same microsecond.
func listQuery(dept triage.Department) (string, []interface{}) {
	query := `SELECT ` + registrationCols + ` FROM registration`
	var args []interface{}
	if dept != "" {
		query += ` WHERE department = $1`
		args = append(args, string(dept))
	}
	return query + ` ORDER BY created_at ASC, seq ASC`, args
}

func (r *repoPG) ListAppointments(ctx context.Context, dept triage.Department) ([]*Appointment, error) {
	query, args := listQuery(dept)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Confirm(ctx context.Context, id string, at time.Time, notes string) (*Appointment, error) {
	var out *Appointment
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		var exists bool
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT TRUE FROM registration WHERE registration_id = $1 FOR UPDATE`, id).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		out, err = scanAppointment(r.conn(ctx).QueryRow(ctx, `
			UPDATE registration SET status = $2, appointment_time = $3, admin_notes = $4, updated_at = NOW()
			WHERE registration_id = $1
			RETURNING `+registrationCols,
			id, StatusConfirmed, at.UTC().Truncate(time.Microsecond), notes))
		return err
	})
	return out, err
}

// =========== Alert Repository ===========

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository { return &alertRepoPG{pool: pool} }

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const alertCols = `id, registration_id, alert_type, message, status, created_at, resolved_at`

func scanAlert(row pgx.Row) (*EmergencyAlert, error) {
	var a EmergencyAlert
	err := row.Scan(&a.ID, &a.RegistrationID, &a.AlertType, &a.Message, &a.Status, &a.CreatedAt, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	return &a, err
}

func (r *alertRepoPG) Create(ctx context.Context, a *EmergencyAlert) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = AlertActive
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_alert (id, registration_id, alert_type, message, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.RegistrationID, a.AlertType, a.Message, a.Status, a.CreatedAt)
	return err
}

func (r *alertRepoPG) list(ctx context.Context, where string, args ...interface{}) ([]*EmergencyAlert, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+alertCols+` FROM emergency_alert WHERE `+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*EmergencyAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *alertRepoPG) ListActive(ctx context.Context) ([]*EmergencyAlert, error) {
	return r.list(ctx, `status = $1`, AlertActive)
}

func (r *alertRepoPG) ListByRegistration(ctx context.Context, registrationID string) ([]*EmergencyAlert, error) {
	return r.list(ctx, `registration_id = $1`, registrationID)
}

func (r *alertRepoPG) Resolve(ctx context.Context, id uuid.UUID, at time.Time) (*EmergencyAlert, error) {
	return scanAlert(r.conn(ctx).QueryRow(ctx, `
		UPDATE emergency_alert
		SET status = $2, resolved_at = COALESCE(resolved_at, $3)
		WHERE id = $1
		RETURNING `+alertCols,
		id, AlertResolved, at.UTC()))
}
