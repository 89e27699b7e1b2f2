package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/auth/models"
	"rollcall/internal/auth/service"
	jwttoken "rollcall/internal/jwt_token"
	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	"rollcall/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
	router http.Handler
}

func (s *AuthHandlerSuite) SetupTest() {
	store := recordstore.NewMemory()
	_, err := roster.Bootstrap(context.Background(), store, false)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(
		roster.New(store),
		jwttoken.NewJWTService("test-signing-key", "rollcall"),
		24*time.Hour,
		7*24*time.Hour,
		logger,
	)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) TestAdminLogin() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/admin-login", models.AdminLoginRequest{
		Username: "admin", Password: "test1234",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	res := testutil.UnmarshalResponse[models.AdminLoginResult](s.T(), rr)
	s.NotEmpty(res.Token)
	s.Equal("SUPER_ADMIN", res.Role)
}

func (s *AuthHandlerSuite) TestAdminLoginWrongPassword() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/admin-login", models.AdminLoginRequest{
		Username: "admin", Password: "wrong",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(s.T(), rr, "unauthorized")
}

func (s *AuthHandlerSuite) TestParticipantSignupThenLogin() {
	signup := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/participant-signup", models.ParticipantSignupRequest{
		Name: "Lin Mei", Email: "mei@test.com", PhoneNumber: "0930111222", Password: "hunter22",
	})
	rr := testutil.DoRequest(s.router, signup)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	created := testutil.UnmarshalResponse[models.ParticipantSignupResult](s.T(), rr)
	s.Equal("P003", created.ParticipantID)

	login := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/participant-login", models.ParticipantLoginRequest{
		Email: "mei@test.com", Password: "hunter22",
	})
	rr = testutil.DoRequest(s.router, login)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	res := testutil.UnmarshalResponse[models.ParticipantLoginResult](s.T(), rr)
	s.Equal("P003", res.ParticipantID)
	s.Equal("Lin Mei", res.Name)
}

func (s *AuthHandlerSuite) TestParticipantSignupInvalidEmail() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/participant-signup", models.ParticipantSignupRequest{
		Name: "Lin Mei", Email: "not-an-email", PhoneNumber: "0930111222", Password: "hunter22",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "invalid_input")
}

func (s *AuthHandlerSuite) TestParticipantSignupDuplicate() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/participant-signup", models.ParticipantSignupRequest{
		Name: "Imposter", Email: "ming@test.com", PhoneNumber: "0999000111", Password: "hunter22",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, "conflict")
}
