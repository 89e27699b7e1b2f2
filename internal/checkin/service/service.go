// Package service composes the token manager and the attendance ledger into
// the end-to-end issue and redeem operations, translating infrastructure
// failures into the closed redemption error taxonomy.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rollcall/internal/checkin/attendance"
	"rollcall/internal/checkin/metrics"
	"rollcall/internal/checkin/models"
	"rollcall/internal/checkin/token"
	"rollcall/internal/roster"
	dErrors "rollcall/pkg/domainerrors"
	"rollcall/pkg/keymutex"
	"rollcall/pkg/sentinel"
)

type Service struct {
	tokens  *token.Manager
	ledger  *attendance.Ledger
	ids     *roster.Roster
	pairs   *keymutex.KeyMutex
	metrics *metrics.Metrics
	log     *slog.Logger
	clock   func() time.Time
}

func New(tokens *token.Manager, ledger *attendance.Ledger, ids *roster.Roster, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		tokens:  tokens,
		ledger:  ledger,
		ids:     ids,
		pairs:   keymutex.New(),
		metrics: m,
		log:     log,
		clock:   time.Now,
	}
}

// WithClock replaces the wall clock. Tests use it to drive expiry.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// IssueToken requests a fresh single-use token scoped to a participant,
// agenda item, and requesting device.
func (s *Service) IssueToken(ctx context.Context, req *models.IssueTokenRequest) (*models.IssueTokenResult, error) {
	tok, err := s.tokens.Issue(ctx, req.ParticipantID, req.AgendaItemID, req.DeviceID, s.clock())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown participant or agenda item id")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, dErrors.New(dErrors.CodeUnavailable, "record store unavailable")
		default:
			s.log.Error("token issuance failed", "error", err)
			return nil, dErrors.New(dErrors.CodeInternal, "could not issue token")
		}
	}

	s.metrics.IncrementTokensIssued()
	return &models.IssueTokenResult{
		Token:     tok.TokenID,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
	}, nil
}

// Redeem runs one redemption attempt to a single terminal outcome.
//
// Consumption comes first and is irreversible: every later check operates on
// a token that can no longer be presented again. A token burned on a failed
// agenda or duplicate check is the accepted cost of never recording a
// duplicate attendance.
func (s *Service) Redeem(ctx context.Context, req *models.CheckInRequest) (*models.CheckInResult, error) {
	now := s.clock()

	tok, err := s.tokens.Consume(ctx, req.Token, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, s.fail(dErrors.CodeInvalidOrUsedToken, "token invalid or already used")
		case errors.Is(err, sentinel.ErrUnavailable):
			return nil, s.fail(dErrors.CodeUnavailable, "record store unavailable")
		default:
			s.log.Error("token consumption failed", "error", err, "token_id", req.Token)
			return nil, s.fail(dErrors.CodeStorageError, "could not consume token")
		}
	}

	// The token is consumed even when expired, closing the replay window
	// for expired-but-not-yet-cleaned-up tokens.
	if tok.ExpiredAt(now) {
		return nil, s.fail(dErrors.CodeExpired, "token expired")
	}

	if req.AgendaItemID != tok.AgendaItemID {
		return nil, s.fail(dErrors.CodeAgendaMismatch, "token was issued for a different agenda item")
	}

	// Serialize check-then-record per pair so two distinct valid tokens for
	// the same participant and agenda item cannot both pass the duplicate
	// check.
	pairKey := tok.ParticipantID + "\x00" + tok.AgendaItemID
	s.pairs.Lock(pairKey)
	defer s.pairs.Unlock(pairKey)

	checkedIn, err := s.ledger.HasCheckedIn(ctx, tok.ParticipantID, tok.AgendaItemID)
	if err != nil {
		s.logInconsistent("duplicate check failed after token consumption", err, tok)
		return nil, s.fail(dErrors.CodeStorageError, "could not verify attendance")
	}
	if checkedIn {
		return nil, s.fail(dErrors.CodeDuplicateCheckIn, "participant already checked in for this agenda item")
	}

	rec, err := s.ledger.Record(ctx, tok.ParticipantID, tok.AgendaItemID, now, models.MethodQR, req.ScannerDeviceID)
	if err != nil {
		s.logInconsistent("attendance write failed after token consumption", err, tok)
		return nil, s.fail(dErrors.CodeStorageError, "could not record attendance")
	}

	name := s.participantName(ctx, tok.ParticipantID)
	s.metrics.IncrementRedemptions("succeeded")
	return &models.CheckInResult{
		ParticipantName: name,
		ParticipantID:   tok.ParticipantID,
		CheckinTime:     rec.CheckinTime,
	}, nil
}

func (s *Service) fail(code dErrors.Code, msg string) error {
	s.metrics.IncrementRedemptions(string(code))
	return dErrors.New(code, msg)
}

// logInconsistent marks the one irrecoverable inconsistent state in the
// design: the token is burned but no attendance was recorded. A retry with
// the same token will report invalid_or_used_token, so operators reconcile
// from these log lines and the inconsistency counter.
func (s *Service) logInconsistent(msg string, err error, tok models.CheckInToken) {
	s.metrics.IncrementInconsistent()
	s.log.Error(msg,
		"error", err,
		"token_id", tok.TokenID,
		"participant_id", tok.ParticipantID,
		"agenda_item_id", tok.AgendaItemID,
	)
}

// participantName resolves the display name for the scanner UI. The record
// is already written at this point, so lookup failures degrade to an empty
// name rather than failing the check-in.
func (s *Service) participantName(ctx context.Context, participantID string) string {
	p, err := s.ids.ParticipantByID(ctx, participantID)
	if err != nil {
		s.log.Warn("participant name lookup failed", "error", err, "participant_id", participantID)
		return ""
	}
	return p.Name
}
