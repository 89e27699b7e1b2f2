package jwttoken

import (
	"rollcall/internal/platform/middleware"
)

// MiddlewareAdapter bridges the JWT service to the transport middleware's
// validator interface.
type MiddlewareAdapter struct {
	svc *JWTService
}

func NewMiddlewareAdapter(svc *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:      claims.UserID,
		SubjectKind: claims.SubjectKind,
		Role:        claims.Role,
	}, nil
}
