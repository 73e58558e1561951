package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("appointment conversation not found")
	ErrNotParticipant       = errors.New("caller is not a party of this appointment")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrMessageTooLong       = errors.New("message content too long")
)

// MaxContentLength bounds a single chat message.
const MaxContentLength = 4000

// Message is one chat line inside an appointment. Append-only; visible only
// to the appointment's two parties.
type Message struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// Conversation is the messaging view of an appointment: just its two parties.
type Conversation struct {
	AppointmentID  uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
}

func (c Conversation) HasParty(id uuid.UUID) bool {
	return id == c.PatientID || id == c.ProfessionalID
}

type Repository interface {
	GetConversation(ctx context.Context, appointmentID uuid.UUID) (*Conversation, error)
	InsertMessage(ctx context.Context, m Message) (*Message, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Message, error)
}
