package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"rollcall/internal/checkin/models"
	jwttoken "rollcall/internal/jwt_token"
	"rollcall/internal/platform/middleware"
	dErrors "rollcall/pkg/domainerrors"
)

// CheckInService is the surface the handler needs from the orchestrator.
type CheckInService interface {
	IssueToken(ctx context.Context, req *models.IssueTokenRequest) (*models.IssueTokenResult, error)
	Redeem(ctx context.Context, req *models.CheckInRequest) (*models.CheckInResult, error)
}

// Handler is the thin HTTP layer over the check-in service. It parses and
// validates requests and maps domain errors to statuses; business logic
// stays in the service.
type Handler struct {
	service      CheckInService
	log          *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service CheckInService, log *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{service: service, log: log, jwtValidator: jwtValidator}
}

// Register mounts the attendance routes. Token issuance needs any valid
// session; scanning is restricted to staff sessions.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.log))
		r.Post("/attendance/token", h.handleIssueToken)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.log))
		r.Use(middleware.RequireSubjectKind(jwttoken.SubjectAdmin, h.log))
		r.Post("/attendance/check-in", h.handleCheckIn)
	})
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateIssueTokenRequest(req); err != nil {
		writeError(w, err)
		return
	}

	// Participants may only request tokens for themselves; staff sessions can
	// issue on behalf of any participant.
	ctx := r.Context()
	if middleware.GetSubjectKind(ctx) == jwttoken.SubjectParticipant && middleware.GetUserID(ctx) != req.ParticipantID {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "cannot request a token for another participant"))
		return
	}

	res, err := h.service.IssueToken(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := validateCheckInRequest(req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.Redeem(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func validateIssueTokenRequest(req models.IssueTokenRequest) error {
	if !govalidator.StringLength(req.ParticipantID, "1", "64") {
		return dErrors.New(dErrors.CodeInvalidInput, "participant_id is required")
	}
	if !govalidator.StringLength(req.AgendaItemID, "1", "64") {
		return dErrors.New(dErrors.CodeInvalidInput, "agenda_item_id is required")
	}
	if !govalidator.StringLength(req.DeviceID, "1", "128") {
		return dErrors.New(dErrors.CodeInvalidInput, "device_id is required")
	}
	return nil
}

func validateCheckInRequest(req models.CheckInRequest) error {
	if !govalidator.StringLength(req.Token, "1", "128") {
		return dErrors.New(dErrors.CodeInvalidInput, "qr_code_token is required")
	}
	if !govalidator.StringLength(req.AgendaItemID, "1", "64") {
		return dErrors.New(dErrors.CodeInvalidInput, "agenda_item_id is required")
	}
	if !govalidator.StringLength(req.ScannerDeviceID, "1", "128") {
		return dErrors.New(dErrors.CodeInvalidInput, "scanner_device_id is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// failure leaves with the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}
