package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	"rollcall/pkg/testutil"
)

type AdminHandlerSuite struct {
	suite.Suite
	store  *recordstore.Memory
	router http.Handler
}

func (s *AdminHandlerSuite) SetupTest() {
	s.store = recordstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.store, "master-key", logger).Register(r)
	s.router = r
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) initialize(secretKey string, clearData bool) *InitializeResult {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/initialize-database", InitializeRequest{
		SecretKey: secretKey, ClearData: clearData,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	return testutil.UnmarshalResponse[InitializeResult](s.T(), rr)
}

func (s *AdminHandlerSuite) TestInitializeSeedsDemoData() {
	res := s.initialize("master-key", false)
	s.Equal("initialized", res.Status)
	s.Contains(res.SeededCollections, roster.CollectionParticipants)

	p, err := roster.New(s.store).ParticipantByID(context.Background(), "P001")
	s.Require().NoError(err)
	s.Equal("Wang Xiaoming", p.Name)
}

func (s *AdminHandlerSuite) TestInitializeIsIdempotent() {
	s.initialize("master-key", false)
	res := s.initialize("master-key", false)
	s.Equal("already_initialized", res.Status)
	s.Empty(res.SeededCollections)
}

func (s *AdminHandlerSuite) TestClearDataReseeds() {
	s.initialize("master-key", false)

	_, err := s.store.Append(context.Background(), roster.CollectionAttendanceLog, map[string]string{
		"participant_id": "P001", "agenda_item_id": "A101", "is_valid": "TRUE",
	})
	s.Require().NoError(err)

	res := s.initialize("master-key", true)
	s.Equal("initialized", res.Status)

	rows, err := s.store.Scan(context.Background(), roster.CollectionAttendanceLog)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *AdminHandlerSuite) TestWrongSecretKeyForbidden() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/initialize-database", InitializeRequest{
		SecretKey: "guess",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertErrorCode(s.T(), rr, "forbidden")
}

func (s *AdminHandlerSuite) TestUnconfiguredKeyAlwaysForbidden() {
	r := chi.NewRouter()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	New(s.store, "", logger).Register(r)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/initialize-database", InitializeRequest{
		SecretKey: "",
	})
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
}
