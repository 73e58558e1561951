package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/vidacall/telehealth-scheduling/internal/identity"
	"github.com/vidacall/telehealth-scheduling/internal/schedule"
)

type RegisterRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Role          string  `json:"role"`
	Specialty     *string `json:"specialty,omitempty"`
	LicenseNumber *string `json:"license_number,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Specialty *string   `json:"specialty,omitempty"`
}

func toAccountResponse(a *identity.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		Specialty: a.Specialty,
	}
}

type ProfessionalResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type SlotsResponse struct {
	ProfessionalID uuid.UUID       `json:"professional_id"`
	Date           string          `json:"date"`
	Slots          []schedule.Slot `json:"slots"`
}

type CreateAppointmentRequest struct {
	ProfessionalID string    `json:"professional_id"`
	StartAt        time.Time `json:"start_at"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ProfessionalID:  a.ProfessionalID,
		PatientID:       a.PatientID,
		StartAt:         a.StartAt,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
	}
}

type AddAvailabilityRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start"` // HH:MM
	End       string `json:"end"`   // HH:MM
}

type AvailabilityRuleResponse struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
}

func toAvailabilityRuleResponse(r *schedule.AvailabilityRule) AvailabilityRuleResponse {
	return AvailabilityRuleResponse{
		ID:        r.ID,
		DayOfWeek: r.DayOfWeek,
		Start:     formatMinutes(r.StartMinute),
		End:       formatMinutes(r.EndMinute),
	}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
