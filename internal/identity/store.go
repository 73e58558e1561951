package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Store persists accounts. The scheduling core trusts the identities this
// layer hands out and never re-validates credentials.
type Store interface {
	CreateAccount(ctx context.Context, a Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ListProfessionals(ctx context.Context) ([]Account, error)
}

// MemoryStore is a mutex-guarded Store used by tests and local tooling.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]Account)}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a Account) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, ErrEmailTaken
		}
	}

	s.accounts[a.ID] = a
	stored := a
	return &stored, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			found := a
			return &found, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) ListProfessionals(ctx context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Account
	for _, a := range s.accounts {
		if a.Role == RoleProfessional {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
