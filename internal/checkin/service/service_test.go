package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/checkin/attendance"
	"rollcall/internal/checkin/metrics"
	"rollcall/internal/checkin/models"
	"rollcall/internal/checkin/token"
	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	dErrors "rollcall/pkg/domainerrors"
)

// flakyStore wraps the memory store with per-collection append failures so
// the post-consume storage failure path can be exercised.
type flakyStore struct {
	recordstore.Store
	failAppendTo map[string]bool
	failScanOf   map[string]bool
}

func (f *flakyStore) Append(ctx context.Context, collection string, values map[string]string) (recordstore.Row, error) {
	if f.failAppendTo[collection] {
		return recordstore.Row{}, fmt.Errorf("%s: write rejected", collection)
	}
	return f.Store.Append(ctx, collection, values)
}

func (f *flakyStore) Scan(ctx context.Context, collection string) ([]recordstore.Row, error) {
	if f.failScanOf[collection] {
		return nil, fmt.Errorf("%s: read rejected", collection)
	}
	return f.Store.Scan(ctx, collection)
}

type ServiceSuite struct {
	suite.Suite
	store   *flakyStore
	tokens  *token.Manager
	metrics *metrics.Metrics
	service *Service
	now     time.Time
}

func (s *ServiceSuite) SetupTest() {
	memory := recordstore.NewMemory()
	_, err := roster.Bootstrap(context.Background(), memory, false)
	s.Require().NoError(err)

	s.store = &flakyStore{
		Store:        memory,
		failAppendTo: map[string]bool{},
		failScanOf:   map[string]bool{},
	}
	ids := roster.New(s.store)
	s.tokens = token.NewManager(s.store, ids, 15*time.Second)
	s.metrics = metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	s.now = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	s.service = New(s.tokens, attendance.NewLedger(s.store), ids, s.metrics, logger).
		WithClock(func() time.Time { return s.now })
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issue(participantID, agendaItemID string) string {
	res, err := s.service.IssueToken(context.Background(), &models.IssueTokenRequest{
		ParticipantID: participantID,
		AgendaItemID:  agendaItemID,
		DeviceID:      "deviceA",
	})
	s.Require().NoError(err)
	return res.Token
}

func (s *ServiceSuite) redeem(tokenID, agendaItemID string) (*models.CheckInResult, error) {
	return s.service.Redeem(context.Background(), &models.CheckInRequest{
		Token:           tokenID,
		AgendaItemID:    agendaItemID,
		ScannerDeviceID: "scanner-1",
	})
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestIssueThenRedeemSucceeds() {
	tok := s.issue("P001", "A101")

	s.now = s.now.Add(5 * time.Second)
	res, err := s.redeem(tok, "A101")
	s.Require().NoError(err)
	s.Equal("P001", res.ParticipantID)
	s.Equal("Wang Xiaoming", res.ParticipantName)
	s.Equal(s.now, res.CheckinTime)

	s.Run("immediate replay fails", func() {
		_, err := s.redeem(tok, "A101")
		s.requireCode(err, dErrors.CodeInvalidOrUsedToken)
	})
}

func (s *ServiceSuite) TestIssueUnknownIdentity() {
	ctx := context.Background()

	_, err := s.service.IssueToken(ctx, &models.IssueTokenRequest{
		ParticipantID: "P999", AgendaItemID: "A101", DeviceID: "deviceA",
	})
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.IssueToken(ctx, &models.IssueTokenRequest{
		ParticipantID: "P001", AgendaItemID: "A999", DeviceID: "deviceA",
	})
	s.requireCode(err, dErrors.CodeNotFound)

	rows, err := s.store.Scan(ctx, roster.CollectionCheckinTokens)
	s.Require().NoError(err)
	s.Empty(rows, "failed issuance must not leave token rows")
}

func (s *ServiceSuite) TestConcurrentRedemptionSingleWinner() {
	tok := s.issue("P001", "A101")

	const attempts = 24
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.redeem(tok, "A101")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			s.Equal(dErrors.CodeInvalidOrUsedToken, dErrors.CodeOf(err))
			rejected++
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(attempts-1, rejected)
}

func (s *ServiceSuite) TestExpiredTokenIsBurned() {
	tok := s.issue("P001", "A101")

	s.now = s.now.Add(15 * time.Second)
	_, err := s.redeem(tok, "A101")
	s.requireCode(err, dErrors.CodeExpired)

	s.Run("expired token cannot be replayed", func() {
		_, err := s.redeem(tok, "A101")
		s.requireCode(err, dErrors.CodeInvalidOrUsedToken)
	})

	s.Run("no attendance was recorded", func() {
		rows, err := s.store.Scan(context.Background(), roster.CollectionAttendanceLog)
		s.Require().NoError(err)
		s.Empty(rows)
	})
}

func (s *ServiceSuite) TestAgendaScopeEnforced() {
	tok := s.issue("P001", "A101")

	_, err := s.redeem(tok, "A102")
	s.requireCode(err, dErrors.CodeAgendaMismatch)

	s.Run("mismatch burns the token", func() {
		_, err := s.redeem(tok, "A101")
		s.requireCode(err, dErrors.CodeInvalidOrUsedToken)
	})
}

func (s *ServiceSuite) TestNoDoubleAttendance() {
	first := s.issue("P001", "A101")
	second := s.issue("P001", "A101")

	_, err := s.redeem(first, "A101")
	s.Require().NoError(err)

	_, err = s.redeem(second, "A101")
	s.requireCode(err, dErrors.CodeDuplicateCheckIn)

	rows, err := s.store.Scan(context.Background(), roster.CollectionAttendanceLog)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestConcurrentDistinctTokensSamePair() {
	first := s.issue("P001", "A101")
	second := s.issue("P001", "A101")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		duplicate int
	)
	for _, tok := range []string{first, second} {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_, err := s.redeem(tok, "A101")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			s.Equal(dErrors.CodeDuplicateCheckIn, dErrors.CodeOf(err))
			duplicate++
		}(tok)
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(1, duplicate)

	rows, err := s.store.Scan(context.Background(), roster.CollectionAttendanceLog)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestSamePairDifferentAgendaBothSucceed() {
	first := s.issue("P001", "A101")
	second := s.issue("P001", "A102")

	_, err := s.redeem(first, "A101")
	s.Require().NoError(err)
	_, err = s.redeem(second, "A102")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestStorageFailureAfterConsume() {
	tok := s.issue("P001", "A101")
	s.store.failAppendTo[roster.CollectionAttendanceLog] = true

	_, err := s.redeem(tok, "A101")
	s.requireCode(err, dErrors.CodeStorageError)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Inconsistent))

	s.Run("token stays burned and a retry needs a fresh token", func() {
		_, err := s.redeem(tok, "A101")
		s.requireCode(err, dErrors.CodeInvalidOrUsedToken)
	})

	s.Run("fresh token succeeds once the store recovers", func() {
		s.store.failAppendTo[roster.CollectionAttendanceLog] = false
		retry := s.issue("P001", "A101")
		_, err := s.redeem(retry, "A101")
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestDuplicateCheckFailureAfterConsume() {
	tok := s.issue("P001", "A101")
	s.store.failScanOf[roster.CollectionAttendanceLog] = true

	_, err := s.redeem(tok, "A101")
	s.requireCode(err, dErrors.CodeStorageError)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Inconsistent))
}

func (s *ServiceSuite) TestExampleScenario() {
	// Issue at t=0 with TTL 15s, redeem at t=5: success. Replay: rejected.
	// Second token issued at t=10, redeemed at t=20 (past its own TTL would
	// be t=25, but the pair is already recorded): duplicate. A third token
	// issued at t=10 and redeemed at t=25 reports expiry for P002.
	tok := s.issue("P001", "A101")
	s.now = s.now.Add(5 * time.Second)

	res, err := s.redeem(tok, "A101")
	s.Require().NoError(err)
	s.Equal("P001", res.ParticipantID)

	_, err = s.redeem(tok, "A101")
	s.requireCode(err, dErrors.CodeInvalidOrUsedToken)

	s.now = s.now.Add(5 * time.Second)
	late := s.issue("P002", "A101")
	s.now = s.now.Add(15 * time.Second)
	_, err = s.redeem(late, "A101")
	s.requireCode(err, dErrors.CodeExpired)
}
