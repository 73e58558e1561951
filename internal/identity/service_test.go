package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, testSecret, 15*time.Minute), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()

	account, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ana Souza",
		Email:    "Ana.Souza@example.com",
		Password: "long-enough-password",
		Role:     RolePatient,
	})
	require.NoError(t, err)
	assert.Equal(t, "ana.souza@example.com", account.Email, "email is normalized")
	assert.NotEqual(t, "long-enough-password", account.PasswordHash)

	token, logged, err := svc.Login(context.Background(), "ANA.souza@example.com", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, account.ID, logged.ID)

	id, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id.ID)
	assert.Equal(t, RolePatient, id.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.com", Password: "long-enough", Role: RolePatient}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "long-enough", Role: RolePatient}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.com", Password: "short", Role: RolePatient}},
		{"bad role", RegisterInput{Name: "A", Email: "a@b.com", Password: "long-enough", Role: Role("admin")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			require.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := RegisterInput{Name: "A", Email: "a@b.com", Password: "long-enough", Role: RolePatient}
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.Email = "A@B.com"
	_, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.com", Password: "long-enough", Role: RolePatient})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@b.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@b.com", "long-enough")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestListProfessionals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	specialty := "Cardiologia"
	_, err := svc.Register(ctx, RegisterInput{
		Name: "Dr. Lima", Email: "lima@clinic.com", Password: "long-enough",
		Role: RoleProfessional, Specialty: &specialty,
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@b.com", Password: "long-enough", Role: RolePatient})
	require.NoError(t, err)

	pros, err := svc.ListProfessionals(ctx)
	require.NoError(t, err)
	require.Len(t, pros, 1)
	assert.Equal(t, "lima@clinic.com", pros[0].Email)
}
