// Package service implements login and signup over the roster, issuing JWT
// session tokens on success.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rollcall/internal/auth/models"
	"rollcall/internal/auth/secrets"
	jwttoken "rollcall/internal/jwt_token"
	"rollcall/internal/roster"
	dErrors "rollcall/pkg/domainerrors"
	"rollcall/pkg/sentinel"
)

const minPasswordLength = 6

type Service struct {
	ids            *roster.Roster
	jwt            *jwttoken.JWTService
	adminTTL       time.Duration
	participantTTL time.Duration
	log            *slog.Logger
}

func New(ids *roster.Roster, jwt *jwttoken.JWTService, adminTTL, participantTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		ids:            ids,
		jwt:            jwt,
		adminTTL:       adminTTL,
		participantTTL: participantTTL,
		log:            log,
	}
}

// AdminLogin authenticates a staff account by username and password. Unknown
// usernames and wrong passwords report the same error.
func (s *Service) AdminLogin(ctx context.Context, req *models.AdminLoginRequest) (*models.AdminLoginResult, error) {
	admin, err := s.ids.AdminByUsername(ctx, req.Username)
	if err != nil {
		if roster.NotFound(err) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, s.storeFailure("admin lookup failed", err)
	}

	if err := secrets.Verify(req.Password, admin.PasswordHash); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeUnauthorized {
			return nil, err
		}
		return nil, s.storeFailure("password verification failed", err)
	}

	token, err := s.jwt.GenerateSessionToken(admin.Username, jwttoken.SubjectAdmin, admin.Role, s.adminTTL)
	if err != nil {
		return nil, s.storeFailure("session token generation failed", err)
	}

	return &models.AdminLoginResult{
		Token:    token,
		Username: admin.Username,
		Role:     admin.Role,
	}, nil
}

// ParticipantSignup registers a new participant. Email and phone number must
// be unused; the participant id is allocated from the P-sequence.
func (s *Service) ParticipantSignup(ctx context.Context, req *models.ParticipantSignupRequest) (*models.ParticipantSignupResult, error) {
	if len(req.Password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 6 characters")
	}

	taken, err := s.ids.ParticipantTaken(ctx, req.Email, req.PhoneNumber)
	if err != nil {
		return nil, s.storeFailure("uniqueness check failed", err)
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeConflict, "email or phone number already registered")
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.NextParticipantID(ctx)
	if err != nil {
		return nil, s.storeFailure("participant id allocation failed", err)
	}

	if err := s.ids.CreateParticipant(ctx, roster.Participant{
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Organization: req.Organization,
		LoginHash:    hash,
	}); err != nil {
		return nil, s.storeFailure("participant creation failed", err)
	}

	token, err := s.jwt.GenerateSessionToken(id, jwttoken.SubjectParticipant, "", s.participantTTL)
	if err != nil {
		return nil, s.storeFailure("session token generation failed", err)
	}

	return &models.ParticipantSignupResult{ParticipantID: id, Token: token}, nil
}

// ParticipantLogin authenticates a participant by email and password.
func (s *Service) ParticipantLogin(ctx context.Context, req *models.ParticipantLoginRequest) (*models.ParticipantLoginResult, error) {
	p, err := s.ids.ParticipantByEmail(ctx, req.Email)
	if err != nil {
		if roster.NotFound(err) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, s.storeFailure("participant lookup failed", err)
	}

	if err := secrets.Verify(req.Password, p.LoginHash); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeUnauthorized {
			return nil, err
		}
		return nil, s.storeFailure("password verification failed", err)
	}

	token, err := s.jwt.GenerateSessionToken(p.ID, jwttoken.SubjectParticipant, "", s.participantTTL)
	if err != nil {
		return nil, s.storeFailure("session token generation failed", err)
	}

	return &models.ParticipantLoginResult{
		Token:         token,
		ParticipantID: p.ID,
		Name:          p.Name,
	}, nil
}

func (s *Service) storeFailure(msg string, err error) error {
	s.log.Error(msg, "error", err)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.New(dErrors.CodeUnavailable, "record store unavailable")
	}
	return dErrors.New(dErrors.CodeInternal, msg)
}
