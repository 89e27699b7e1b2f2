package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/recordstore"
)

type RosterSuite struct {
	suite.Suite
	store  *recordstore.Memory
	roster *Roster
}

func (s *RosterSuite) SetupTest() {
	s.store = recordstore.NewMemory()
	s.roster = New(s.store)
}

func TestRosterSuite(t *testing.T) {
	suite.Run(t, new(RosterSuite))
}

func (s *RosterSuite) seed() {
	_, err := Bootstrap(context.Background(), s.store, false)
	s.Require().NoError(err)
}

func (s *RosterSuite) TestParticipantLookups() {
	s.seed()
	ctx := context.Background()

	p, err := s.roster.ParticipantByID(ctx, "P001")
	s.Require().NoError(err)
	s.Equal("ming@test.com", p.Email)

	byEmail, err := s.roster.ParticipantByEmail(ctx, "hua@test.com")
	s.Require().NoError(err)
	s.Equal("P002", byEmail.ID)

	_, err = s.roster.ParticipantByID(ctx, "P999")
	s.Require().Error(err)
	s.True(NotFound(err))
}

func (s *RosterSuite) TestAgendaItemLookup() {
	s.seed()

	item, err := s.roster.AgendaItemByID(context.Background(), "A101")
	s.Require().NoError(err)
	s.Equal("E001", item.EventID)
	s.Equal("Opening Keynote", item.Title)

	_, err = s.roster.AgendaItemByID(context.Background(), "A999")
	s.True(NotFound(err))
}

func (s *RosterSuite) TestAdminLookupAndSeedPassword() {
	s.seed()

	admin, err := s.roster.AdminByUsername(context.Background(), "admin")
	s.Require().NoError(err)
	s.Equal("SUPER_ADMIN", admin.Role)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("test1234")))
}

func (s *RosterSuite) TestNextParticipantID() {
	ctx := context.Background()

	id, err := s.roster.NextParticipantID(ctx)
	s.Require().NoError(err)
	s.Equal("P001", id)

	s.seed()

	id, err = s.roster.NextParticipantID(ctx)
	s.Require().NoError(err)
	s.Equal("P003", id)
}

func (s *RosterSuite) TestParticipantTaken() {
	s.seed()
	ctx := context.Background()

	taken, err := s.roster.ParticipantTaken(ctx, "ming@test.com", "000")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.roster.ParticipantTaken(ctx, "new@test.com", "0910123456")
	s.Require().NoError(err)
	s.True(taken)

	taken, err = s.roster.ParticipantTaken(ctx, "new@test.com", "000")
	s.Require().NoError(err)
	s.False(taken)
}

func (s *RosterSuite) TestBootstrapIsIdempotentWithoutClear() {
	ctx := context.Background()

	seeded, err := Bootstrap(ctx, s.store, false)
	s.Require().NoError(err)
	s.NotEmpty(seeded)

	again, err := Bootstrap(ctx, s.store, false)
	s.Require().NoError(err)
	s.Empty(again)

	rows, err := s.store.Scan(ctx, CollectionParticipants)
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *RosterSuite) TestBootstrapClearWipesAttendance() {
	ctx := context.Background()
	s.seed()

	_, err := s.store.Append(ctx, CollectionAttendanceLog, map[string]string{"id": "x"})
	s.Require().NoError(err)

	_, err = Bootstrap(ctx, s.store, true)
	s.Require().NoError(err)

	rows, err := s.store.Scan(ctx, CollectionAttendanceLog)
	s.Require().NoError(err)
	s.Empty(rows)
}
