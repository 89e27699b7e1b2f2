// Package roster owns the identity side of the system: admins, participants,
// events, agenda items, and registrations. The check-in core only ever reads
// from it, treating "not found" as a first-class outcome.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rollcall/internal/recordstore"
	"rollcall/pkg/sentinel"
)

// Collection names, one per worksheet of the original deployment. Ownership:
// the token manager exclusively owns CollectionCheckinTokens and the
// attendance ledger exclusively owns CollectionAttendanceLog; nothing else
// writes to either.
const (
	CollectionAdmins        = "admins"
	CollectionParticipants  = "participants"
	CollectionEvents        = "events"
	CollectionAgendaItems   = "agenda_items"
	CollectionRegistrations = "registrations"
	CollectionAttendanceLog = "attendance_log"
	CollectionCheckinTokens = "checkin_tokens"
)

// Collections lists every collection, used by bootstrap when clearing data.
var Collections = []string{
	CollectionAdmins,
	CollectionParticipants,
	CollectionEvents,
	CollectionAgendaItems,
	CollectionRegistrations,
	CollectionAttendanceLog,
	CollectionCheckinTokens,
}

type Participant struct {
	ID           string
	Name         string
	Email        string
	PhoneNumber  string
	Organization string
	LoginHash    string
}

type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
}

type AgendaItem struct {
	ID      string
	EventID string
	Title   string
}

// Roster resolves identities against the record store.
type Roster struct {
	store recordstore.Store
}

func New(store recordstore.Store) *Roster {
	return &Roster{store: store}
}

func (r *Roster) ParticipantByID(ctx context.Context, id string) (Participant, error) {
	row, err := r.store.Find(ctx, CollectionParticipants, "id", id)
	if err != nil {
		return Participant{}, err
	}
	return participantFromRow(row), nil
}

func (r *Roster) ParticipantByEmail(ctx context.Context, email string) (Participant, error) {
	row, err := r.store.Find(ctx, CollectionParticipants, "email", email)
	if err != nil {
		return Participant{}, err
	}
	return participantFromRow(row), nil
}

func (r *Roster) AgendaItemByID(ctx context.Context, id string) (AgendaItem, error) {
	row, err := r.store.Find(ctx, CollectionAgendaItems, "id", id)
	if err != nil {
		return AgendaItem{}, err
	}
	return AgendaItem{
		ID:      row.Get("id"),
		EventID: row.Get("event_id"),
		Title:   row.Get("agenda_title"),
	}, nil
}

func (r *Roster) AdminByUsername(ctx context.Context, username string) (Admin, error) {
	row, err := r.store.Find(ctx, CollectionAdmins, "username", username)
	if err != nil {
		return Admin{}, err
	}
	return Admin{
		ID:           row.Get("id"),
		Username:     row.Get("username"),
		PasswordHash: row.Get("password_hash"),
		Role:         row.Get("role"),
	}, nil
}

// CreateParticipant appends a participant row. Uniqueness of email and phone
// is the caller's concern; the roster is a plain writer like the ledger.
func (r *Roster) CreateParticipant(ctx context.Context, p Participant) error {
	_, err := r.store.Append(ctx, CollectionParticipants, map[string]string{
		"id":           p.ID,
		"name":         p.Name,
		"email":        p.Email,
		"phone_number": p.PhoneNumber,
		"organization": p.Organization,
		"login_hash":   p.LoginHash,
	})
	return err
}

// ParticipantTaken reports whether an email or phone number is already
// registered.
func (r *Roster) ParticipantTaken(ctx context.Context, email, phoneNumber string) (bool, error) {
	rows, err := r.store.Scan(ctx, CollectionParticipants)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.Get("email") == email || row.Get("phone_number") == phoneNumber {
			return true, nil
		}
	}
	return false, nil
}

// NextParticipantID scans existing participants and produces the next id in
// the P001, P002, ... sequence.
func (r *Roster) NextParticipantID(ctx context.Context) (string, error) {
	rows, err := r.store.Scan(ctx, CollectionParticipants)
	if err != nil {
		return "", err
	}
	max := 0
	for _, row := range rows {
		id := row.Get("id")
		if !strings.HasPrefix(id, "P") {
			continue
		}
		n, err := strconv.Atoi(id[1:])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("P%03d", max+1), nil
}

// NotFound reports whether err is the roster's not-found outcome.
func NotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

func participantFromRow(row recordstore.Row) Participant {
	return Participant{
		ID:           row.Get("id"),
		Name:         row.Get("name"),
		Email:        row.Get("email"),
		PhoneNumber:  row.Get("phone_number"),
		Organization: row.Get("organization"),
		LoginHash:    row.Get("login_hash"),
	}
}
