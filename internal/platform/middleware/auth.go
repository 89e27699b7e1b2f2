package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// JWTValidator validates a session token string.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of session claims the transport layer cares about.
type JWTClaims struct {
	UserID      string
	SubjectKind string
	Role        string
}

type contextKeyUserID struct{}
type contextKeySubjectKind struct{}
type contextKeyRole struct{}

var (
	ContextKeyUserID      = contextKeyUserID{}
	ContextKeySubjectKind = contextKeySubjectKind{}
	ContextKeyRole        = contextKeyRole{}
)

// GetUserID retrieves the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetSubjectKind retrieves the session subject kind from the context.
func GetSubjectKind(ctx context.Context) string {
	kind, ok := ctx.Value(ContextKeySubjectKind).(string)
	if !ok {
		return ""
	}
	return kind
}

func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth rejects requests without a valid bearer session token and puts
// the session claims on the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					"request_id", chimw.GetReqID(ctx),
				)
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"error", err,
					"request_id", chimw.GetReqID(ctx),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeySubjectKind, claims.SubjectKind)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSubjectKind rejects authenticated sessions of the wrong kind. It must
// run after RequireAuth.
func RequireSubjectKind(kind string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetSubjectKind(ctx) != kind {
				logger.WarnContext(ctx, "forbidden access, wrong subject kind",
					"subject_kind", GetSubjectKind(ctx),
					"request_id", chimw.GetReqID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","message":"session kind not allowed for this endpoint"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
