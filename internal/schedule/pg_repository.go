package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db Querier
}

func NewPgRepository(db Querier) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule

	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&r.DayOfWeek,
		&r.StartMinute,
		&r.EndMinute,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ProfessionalID,
		&a.PatientID,
		&a.StartAt,
		&a.DurationMinutes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const ruleColumns = "id, professional_id, day_of_week, start_minute, end_minute, active, created_at, updated_at"
const appointmentColumns = "id, professional_id, patient_id, start_at, duration_minutes, status, created_at, updated_at"

// Interface methods

func (r *PgRepository) ProfessionalExists(ctx context.Context, id uuid.UUID) error {
	var one int
	err := r.db.QueryRow(ctx, `
		SELECT 1
		FROM accounts
		WHERE id = $1 AND role = 'professional'
	`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProfessionalNotFound
		}
		return err
	}
	return nil
}

func (r *PgRepository) ActiveRulesForDay(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) ([]AvailabilityRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1 AND day_of_week = $2 AND active
		ORDER BY start_minute
	`, professionalID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func (r *PgRepository) ListActiveRules(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1 AND active
		ORDER BY day_of_week, start_minute
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]AvailabilityRule, error) {
	var result []AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

// InsertRule relies on the availability_rules_no_overlap exclusion
// constraint: two concurrent inserts of overlapping active windows for one
// professional cannot both commit.
func (r *PgRepository) InsertRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO availability_rules (id, professional_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		RETURNING `+ruleColumns+`
	`, rule.ID, rule.ProfessionalID, rule.DayOfWeek, rule.StartMinute, rule.EndMinute)

	created, err := scanRule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" { // exclusion_violation
			return nil, ErrRuleOverlap
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) DeactivateRule(ctx context.Context, professionalID, ruleID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability_rules
		SET active = false,
		    updated_at = now()
		WHERE id = $1
		  AND professional_id = $2
		  AND active
	`, ruleID, professionalID)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) AppointmentsInRange(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND start_at < $3
		  AND start_at + make_interval(mins => duration_minutes) > $2
		ORDER BY start_at
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsForAccount(ctx context.Context, accountID uuid.UUID, from time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE (professional_id = $1 OR patient_id = $1)
		  AND start_at >= $2
		ORDER BY start_at
	`, accountID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// CreateAppointment relies on the appointments_no_overlap exclusion
// constraint: concurrent inserts for overlapping intervals of the same
// professional cannot both commit, whatever the isolation level.
func (r *PgRepository) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, professional_id, patient_id, start_at, duration_minutes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.ProfessionalID, appt.PatientID, appt.StartAt, appt.DurationMinutes, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" { // exclusion_violation
			return nil, ErrAppointmentOverlap
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindDueScheduled(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND start_at <= $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
