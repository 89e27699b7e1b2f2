// Package handler exposes the operator-only bootstrap endpoint.
package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	dErrors "rollcall/pkg/domainerrors"
	"rollcall/pkg/sentinel"
)

type InitializeRequest struct {
	SecretKey string `json:"secret_key"`
	ClearData bool   `json:"clear_data"`
}

type InitializeResult struct {
	Status            string   `json:"status"`
	SeededCollections []string `json:"seeded_collections"`
}

// Handler guards database initialization behind a deployment-scoped secret
// key instead of a session, so it works on a completely empty store.
type Handler struct {
	store        recordstore.Store
	bootstrapKey string
	log          *slog.Logger
}

func New(store recordstore.Store, bootstrapKey string, log *slog.Logger) *Handler {
	return &Handler{store: store, bootstrapKey: bootstrapKey, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/initialize-database", h.handleInitialize)
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if h.bootstrapKey == "" || subtle.ConstantTimeCompare([]byte(req.SecretKey), []byte(h.bootstrapKey)) != 1 {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "invalid secret key"))
		return
	}

	seeded, err := roster.Bootstrap(r.Context(), h.store, req.ClearData)
	if err != nil {
		h.log.Error("database initialization failed", "error", err)
		if errors.Is(err, sentinel.ErrUnavailable) {
			writeError(w, dErrors.New(dErrors.CodeUnavailable, "record store unavailable"))
			return
		}
		writeError(w, dErrors.New(dErrors.CodeInternal, "could not initialize database"))
		return
	}

	status := "initialized"
	if len(seeded) == 0 {
		status = "already_initialized"
	}
	writeJSON(w, http.StatusOK, InitializeResult{Status: status, SeededCollections: seeded})
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
