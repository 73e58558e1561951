package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

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

func (r *PgRepository) GetConversation(ctx context.Context, appointmentID uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := r.db.QueryRow(ctx, `
		SELECT id, patient_id, professional_id
		FROM appointments
		WHERE id = $1
	`, appointmentID).Scan(&c.AppointmentID, &c.PatientID, &c.ProfessionalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgRepository) InsertMessage(ctx context.Context, m Message) (*Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (id, appointment_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, appointment_id, sender_id, content, created_at
	`, m.ID, m.AppointmentID, m.SenderID, m.Content)

	return scanMessage(row)
}

func (r *PgRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, sender_id, content, created_at
		FROM messages
		WHERE appointment_id = $1
		ORDER BY created_at
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	return result, rows.Err()
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.AppointmentID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
