package messaging

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded Repository used by tests.
type MemoryRepository struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]Conversation
	messages      map[uuid.UUID][]Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[uuid.UUID]Conversation),
		messages:      make(map[uuid.UUID][]Message),
	}
}

// AddConversation registers an appointment's parties.
func (m *MemoryRepository) AddConversation(c Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.AppointmentID] = c
}

func (m *MemoryRepository) GetConversation(ctx context.Context, appointmentID uuid.UUID) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[appointmentID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return &c, nil
}

func (m *MemoryRepository) InsertMessage(ctx context.Context, msg Message) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[msg.AppointmentID] = append(m.messages[msg.AppointmentID], msg)
	stored := msg
	return &stored, nil
}

func (m *MemoryRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]Message(nil), m.messages[appointmentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
