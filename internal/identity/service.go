package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRegistration = errors.New("invalid registration")
)

type Service struct {
	store     Store
	jwtSecret string
	tokenTTL  time.Duration
}

func NewService(store Store, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Role          Role
	Specialty     *string
	LicenseNumber *string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if in.Name == "" || in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidRegistration)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRegistration)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be patient or professional", ErrInvalidRegistration)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:            uuid.New(),
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          in.Role,
		Specialty:     in.Specialty,
		LicenseNumber: in.LicenseNumber,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login checks credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	account, err := s.store.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load account: %w", err)
	}

	if !CheckPassword(account.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := MakeToken(account.Identity(), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, account, nil
}

func (s *Service) Authenticate(token string) (Identity, error) {
	return ParseToken(token, s.jwtSecret)
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) ListProfessionals(ctx context.Context) ([]Account, error) {
	return s.store.ListProfessionals(ctx)
}
