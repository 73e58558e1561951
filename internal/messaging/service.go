package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidacall/telehealth-scheduling/internal/events"
	"github.com/vidacall/telehealth-scheduling/internal/identity"
)

type Service struct {
	repo Repository
	pub  events.Publisher
}

func NewService(repo Repository, pub events.Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Send appends a message to the appointment's conversation and publishes it
// to the appointment's realtime channel.
func (s *Service) Send(ctx context.Context, caller identity.Identity, appointmentID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > MaxContentLength {
		return nil, ErrMessageTooLong
	}

	conv, err := s.repo.GetConversation(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParty(caller.ID) {
		return nil, ErrNotParticipant
	}

	msg, err := s.repo.InsertMessage(ctx, Message{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		SenderID:      caller.ID,
		Content:       content,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.publish(ctx, conv, msg)

	return msg, nil
}

// List returns the appointment's messages oldest first, restricted to the
// two parties.
func (s *Service) List(ctx context.Context, caller identity.Identity, appointmentID uuid.UUID) ([]Message, error) {
	conv, err := s.repo.GetConversation(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParty(caller.ID) {
		return nil, ErrNotParticipant
	}

	return s.repo.ListByAppointment(ctx, appointmentID)
}

func (s *Service) publish(ctx context.Context, conv *Conversation, msg *Message) {
	if s.pub == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal message %s: %v", msg.ID, err)
		return
	}

	err = s.pub.Publish(ctx, events.Event{
		Type:          events.TypeMessageSent,
		AppointmentID: conv.AppointmentID,
		PatientID:     conv.PatientID,
		OccurredAt:    msg.CreatedAt,
		Payload:       payload,
	})
	if err != nil {
		log.Printf("failed to publish message %s: %v", msg.ID, err)
	}
}
