package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TypeAppointmentCreated   = "APPOINTMENT_CREATED"
	TypeAppointmentStarted   = "APPOINTMENT_STARTED"
	TypeAppointmentCompleted = "APPOINTMENT_COMPLETED"
	TypeAppointmentCancelled = "APPOINTMENT_CANCELLED"
	TypeMessageSent          = "MESSAGE_SENT"
)

// Event is the payload pushed to realtime subscribers. Delivery and fan-out
// beyond the publish are the subscriber's responsibility.
type Event struct {
	Type           string          `json:"type"`
	AppointmentID  uuid.UUID       `json:"appointment_id"`
	ProfessionalID uuid.UUID       `json:"professional_id,omitempty"`
	PatientID      uuid.UUID       `json:"patient_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// Publisher emits domain events to the realtime channel. The scheduling core
// never manages subscriber lifecycles.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// AppointmentChannel is the channel both parties of an appointment subscribe to.
func AppointmentChannel(appointmentID uuid.UUID) string {
	return fmt.Sprintf("appointments:%s", appointmentID)
}

// ProfessionalChannel carries every booking event for one professional, used
// by dashboard views.
func ProfessionalChannel(professionalID uuid.UUID) string {
	return fmt.Sprintf("professionals:%s", professionalID)
}

type redisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}

	channels := []string{AppointmentChannel(ev.AppointmentID)}
	if ev.ProfessionalID != uuid.Nil {
		channels = append(channels, ProfessionalChannel(ev.ProfessionalID))
	}

	for _, ch := range channels {
		if err := p.client.Publish(ctx, ch, data).Err(); err != nil {
			return fmt.Errorf("publish %s to %s: %w", ev.Type, ch, err)
		}
	}

	return nil
}

// NopPublisher discards events. Used where realtime delivery is not wired,
// e.g. the migration and seed commands.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
