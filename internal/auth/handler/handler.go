package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"rollcall/internal/auth/models"
	dErrors "rollcall/pkg/domainerrors"
)

// AuthService is the surface the handler needs from the auth service.
type AuthService interface {
	AdminLogin(ctx context.Context, req *models.AdminLoginRequest) (*models.AdminLoginResult, error)
	ParticipantSignup(ctx context.Context, req *models.ParticipantSignupRequest) (*models.ParticipantSignupResult, error)
	ParticipantLogin(ctx context.Context, req *models.ParticipantLoginRequest) (*models.ParticipantLoginResult, error)
}

type Handler struct {
	service AuthService
	log     *slog.Logger
}

func New(service AuthService, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/admin-login", h.handleAdminLogin)
	r.Post("/auth/participant-signup", h.handleParticipantSignup)
	r.Post("/auth/participant-login", h.handleParticipantLogin)
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Username, "1", "64") || req.Password == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "username and password are required"))
		return
	}

	res, err := h.service.AdminLogin(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleParticipantSignup(w http.ResponseWriter, r *http.Request) {
	var req models.ParticipantSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateSignupRequest(req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.ParticipantSignup(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleParticipantLogin(w http.ResponseWriter, r *http.Request) {
	var req models.ParticipantLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.IsEmail(req.Email) || req.Password == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "email and password are required"))
		return
	}

	res, err := h.service.ParticipantLogin(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func validateSignupRequest(req models.ParticipantSignupRequest) error {
	if !govalidator.StringLength(req.Name, "1", "128") {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if !govalidator.StringLength(req.PhoneNumber, "1", "32") {
		return dErrors.New(dErrors.CodeInvalidInput, "phone_number is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}
