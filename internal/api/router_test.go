package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidacall/telehealth-scheduling/internal/config"
	"github.com/vidacall/telehealth-scheduling/internal/identity"
	"github.com/vidacall/telehealth-scheduling/internal/messaging"
	"github.com/vidacall/telehealth-scheduling/internal/schedule"
)

type nopLocker struct{}

func (nopLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	handler   http.Handler
	schedRepo *schedule.MemoryRepository
	msgRepo   *messaging.MemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	schedRepo := schedule.NewMemoryRepository()
	msgRepo := messaging.NewMemoryRepository()
	identitySvc := identity.NewService(identity.NewMemoryStore(), "router-test-secret", 15*time.Minute)

	schedSvc := schedule.NewService(schedRepo, nopLocker{}, nil, nil, config.Config{
		SlotGranularity: 30 * time.Minute,
	})

	handler := NewRouter(RouterConfig{
		Schedule:  schedSvc,
		Messaging: messaging.NewService(msgRepo, nil),
		Identity:  identitySvc,
		Env:       "test",
		Version:   "test",
	})

	return &testEnv{handler: handler, schedRepo: schedRepo, msgRepo: msgRepo}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// signUp registers and logs in an account, returning its id and session token.
func (e *testEnv) signUp(t *testing.T, role, email string) (uuid.UUID, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name:     "Account " + email,
		Email:    email,
		Password: "long-enough-password",
		Role:     role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[AccountResponse](t, rec)

	if role == "professional" {
		e.schedRepo.AddProfessional(account.ID)
	}

	rec = e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: "long-enough-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[LoginResponse](t, rec)

	return account.ID, login.Token
}

// bookingDay is a future Monday so the whole 08:00-12:00 window is bookable.
func bookingDay() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 7)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/appointments", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/appointments", "not-a-real-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_token", resp.Error)
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "X", Email: "x@y.com", Password: "short", Role: "patient",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.signUp(t, "patient", "dup@y.com")
	rec = env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: "X", Email: "dup@y.com", Password: "long-enough-password", Role: "patient",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "email_taken", resp.Error)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "patient", "p@y.com")

	rec := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "p@y.com", Password: "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAvailabilityAndBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	professionalID, proToken := env.signUp(t, "professional", "doc@clinic.com")
	_, patientToken := env.signUp(t, "patient", "pat@y.com")

	day := bookingDay()

	// professional publishes a morning window
	rec := env.do(t, http.MethodPost, "/availability", proToken, AddAvailabilityRequest{
		DayOfWeek: int(day.Weekday()),
		Start:     "08:00",
		End:       "12:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decode[AvailabilityRuleResponse](t, rec)
	assert.Equal(t, "08:00", rule.Start)
	assert.Equal(t, "12:00", rule.End)

	// overlapping window is rejected
	rec = env.do(t, http.MethodPost, "/availability", proToken, AddAvailabilityRequest{
		DayOfWeek: int(day.Weekday()),
		Start:     "11:00",
		End:       "13:00",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// patients cannot publish availability
	rec = env.do(t, http.MethodPost, "/availability", patientToken, AddAvailabilityRequest{
		DayOfWeek: int(day.Weekday()),
		Start:     "08:00",
		End:       "12:00",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	slotsPath := fmt.Sprintf("/professionals/%s/slots?date=%s", professionalID, day.Format("2006-01-02"))
	rec = env.do(t, http.MethodGet, slotsPath, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	slots := decode[SlotsResponse](t, rec)
	require.Len(t, slots.Slots, 8)

	// book the 09:00 slot
	startAt := day.Add(9 * time.Hour)
	rec = env.do(t, http.MethodPost, "/appointments", patientToken, CreateAppointmentRequest{
		ProfessionalID: professionalID.String(),
		StartAt:        startAt,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, professionalID, appt.ProfessionalID)

	// the slot disappears from the listing
	rec = env.do(t, http.MethodGet, slotsPath, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots = decode[SlotsResponse](t, rec)
	require.Len(t, slots.Slots, 7)

	// rebooking the same slot conflicts
	rec = env.do(t, http.MethodPost, "/appointments", patientToken, CreateAppointmentRequest{
		ProfessionalID: professionalID.String(),
		StartAt:        startAt,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "slot_unavailable", resp.Error)

	// professionals cannot book
	rec = env.do(t, http.MethodPost, "/appointments", proToken, CreateAppointmentRequest{
		ProfessionalID: professionalID.String(),
		StartAt:        day.Add(10 * time.Hour),
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// both parties can fetch the appointment
	apptPath := "/appointments/" + appt.ID.String()
	rec = env.do(t, http.MethodGet, apptPath, proToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// cancel frees the slot
	rec = env.do(t, http.MethodPost, apptPath+"/cancel", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "cancelled", cancelled.Status)

	rec = env.do(t, http.MethodGet, slotsPath, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots = decode[SlotsResponse](t, rec)
	require.Len(t, slots.Slots, 8)

	// a second cancel is rejected
	rec = env.do(t, http.MethodPost, apptPath+"/cancel", patientToken, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSlotsBadDate(t *testing.T) {
	env := newTestEnv(t)
	professionalID, token := env.signUp(t, "professional", "doc@clinic.com")

	rec := env.do(t, http.MethodGet, "/professionals/"+professionalID.String()+"/slots?date=tomorrow", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/professionals/not-a-uuid/slots?date=2026-09-07", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotsUnknownProfessional(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "patient", "pat@y.com")

	path := fmt.Sprintf("/professionals/%s/slots?date=%s", uuid.New(), bookingDay().Format("2006-01-02"))
	rec := env.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagesFlow(t *testing.T) {
	env := newTestEnv(t)
	professionalID, proToken := env.signUp(t, "professional", "doc@clinic.com")
	patientID, patientToken := env.signUp(t, "patient", "pat@y.com")
	_, strangerToken := env.signUp(t, "patient", "other@y.com")

	appointmentID := uuid.New()
	env.msgRepo.AddConversation(messaging.Conversation{
		AppointmentID:  appointmentID,
		PatientID:      patientID,
		ProfessionalID: professionalID,
	})

	msgPath := "/appointments/" + appointmentID.String() + "/messages"

	rec := env.do(t, http.MethodPost, msgPath, patientToken, SendMessageRequest{Content: "Olá, doutor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, msgPath, proToken, SendMessageRequest{Content: "Olá, tudo bem?"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, msgPath, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]messaging.Message](t, rec)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Olá, doutor", msgs[0].Content)

	// outsiders are shut out
	rec = env.do(t, http.MethodGet, msgPath, strangerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, msgPath, patientToken, SendMessageRequest{Content: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiting(t *testing.T) {
	schedRepo := schedule.NewMemoryRepository()
	identitySvc := identity.NewService(identity.NewMemoryStore(), "router-test-secret", 15*time.Minute)
	handler := NewRouter(RouterConfig{
		Schedule:  schedule.NewService(schedRepo, nopLocker{}, nil, nil, config.Config{SlotGranularity: 30 * time.Minute}),
		Messaging: messaging.NewService(messaging.NewMemoryRepository(), nil),
		Identity:  identitySvc,
		Env:       "test",
		Version:   "test",
		RateRPS:   1,
		RateBurst: 2,
	})

	var limited bool
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst of 5 against burst limit 2 should hit the limiter")
}
