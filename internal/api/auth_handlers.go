package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidacall/telehealth-scheduling/internal/identity"
)

func registerHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		account, err := svc.Register(r.Context(), identity.RegisterInput{
			Name:          req.Name,
			Email:         req.Email,
			Password:      req.Password,
			Role:          identity.Role(req.Role),
			Specialty:     req.Specialty,
			LicenseNumber: req.LicenseNumber,
		})
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrInvalidRegistration):
				writeError(w, http.StatusBadRequest, "invalid_registration", err.Error())
			case errors.Is(err, identity.ErrEmailTaken):
				writeError(w, http.StatusConflict, "email_taken", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusCreated, toAccountResponse(account))
	}
}

func loginHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, account, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Token:   token,
			Account: toAccountResponse(account),
		})
	}
}

func listProfessionalsHandler(svc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.ListProfessionals(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ProfessionalResponse, 0, len(accounts))
		for _, a := range accounts {
			resp = append(resp, ProfessionalResponse{
				ID:        a.ID,
				Name:      a.Name,
				Specialty: a.Specialty,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
