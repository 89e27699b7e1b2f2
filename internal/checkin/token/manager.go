// Package token implements the check-in token manager: issuance of ephemeral
// single-use credentials and their at-most-once consumption.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/checkin/models"
	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	"rollcall/pkg/keymutex"
	"rollcall/pkg/sentinel"
)

// Column names of the token collection.
const (
	colTokenID       = "token_id"
	colParticipantID = "participant_id"
	colAgendaItemID  = "agenda_item_id"
	colDeviceID      = "device_id"
	colIssuedAt      = "issued_at"
	colExpiresAt     = "expires_at"
)

// Manager owns the set of live tokens. No other component writes to or
// deletes from the token collection.
type Manager struct {
	store recordstore.Store
	ids   *roster.Roster
	locks *keymutex.KeyMutex
	ttl   time.Duration
}

func NewManager(store recordstore.Store, ids *roster.Roster, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ids:   ids,
		locks: keymutex.New(),
		ttl:   ttl,
	}
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue validates that the participant and agenda item exist, then persists
// and returns a fresh token expiring at now+TTL. On any failure nothing is
// written, so invalid requests never leave garbage tokens behind.
func (m *Manager) Issue(ctx context.Context, participantID, agendaItemID, deviceID string, now time.Time) (models.CheckInToken, error) {
	if _, err := m.ids.ParticipantByID(ctx, participantID); err != nil {
		return models.CheckInToken{}, fmt.Errorf("participant %s: %w", participantID, err)
	}
	if _, err := m.ids.AgendaItemByID(ctx, agendaItemID); err != nil {
		return models.CheckInToken{}, fmt.Errorf("agenda item %s: %w", agendaItemID, err)
	}

	tok := models.CheckInToken{
		TokenID:       uuid.NewString(),
		ParticipantID: participantID,
		AgendaItemID:  agendaItemID,
		DeviceID:      deviceID,
		IssuedAt:      now,
		ExpiresAt:     now.Add(m.ttl),
	}
	_, err := m.store.Append(ctx, roster.CollectionCheckinTokens, map[string]string{
		colTokenID:       tok.TokenID,
		colParticipantID: tok.ParticipantID,
		colAgendaItemID:  tok.AgendaItemID,
		colDeviceID:      tok.DeviceID,
		colIssuedAt:      tok.IssuedAt.UTC().Format(time.RFC3339Nano),
		colExpiresAt:     tok.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return models.CheckInToken{}, fmt.Errorf("persist token: %w", err)
	}
	return tok, nil
}

// Consume atomically removes the token and returns its contents. At most one
// caller per token id ever succeeds: the store offers no compare-and-delete,
// so the find-then-delete-by-identity sequence runs under a per-token-id
// lock, and a delete that reports the row already gone means another caller
// won the race.
//
// A missing token and an already-consumed token are reported identically as
// sentinel.ErrAlreadyUsed. Expiry is deliberately NOT checked here: the
// caller compares ExpiresAt after a successful consume, so that an expired
// token is still burned and can never be replayed.
//
// The lock is process-local. Across horizontally scaled instances sharing
// one store, the residual race window of the weak store contract remains;
// escalate to a backend with conditional delete if that deployment shape is
// ever needed.
func (m *Manager) Consume(ctx context.Context, tokenID string, now time.Time) (models.CheckInToken, error) {
	_ = now // reserved for symmetry with Issue; expiry is the caller's check

	m.locks.Lock(tokenID)
	defer m.locks.Unlock(tokenID)

	row, err := m.store.Find(ctx, roster.CollectionCheckinTokens, colTokenID, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.CheckInToken{}, fmt.Errorf("token %s: %w", tokenID, sentinel.ErrAlreadyUsed)
		}
		return models.CheckInToken{}, fmt.Errorf("locate token: %w", err)
	}

	if err := m.store.Delete(ctx, roster.CollectionCheckinTokens, row.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Lost the race to a concurrent consume.
			return models.CheckInToken{}, fmt.Errorf("token %s: %w", tokenID, sentinel.ErrAlreadyUsed)
		}
		return models.CheckInToken{}, fmt.Errorf("delete token: %w", err)
	}

	tok, err := tokenFromRow(row)
	if err != nil {
		return models.CheckInToken{}, err
	}
	return tok, nil
}

// DeleteExpired removes tokens whose expiry has passed as of now. The token
// lifecycle does not depend on it (consume burns expired tokens too); it only
// keeps abandoned tokens from accumulating.
func (m *Manager) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := m.store.Scan(ctx, roster.CollectionCheckinTokens)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, row := range rows {
		tok, err := tokenFromRow(row)
		if err != nil {
			continue
		}
		if !tok.ExpiredAt(now) {
			continue
		}
		m.locks.Lock(tok.TokenID)
		err = m.store.Delete(ctx, roster.CollectionCheckinTokens, row.ID)
		m.locks.Unlock(tok.TokenID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func tokenFromRow(row recordstore.Row) (models.CheckInToken, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, row.Get(colIssuedAt))
	if err != nil {
		return models.CheckInToken{}, fmt.Errorf("token row %s: bad issued_at: %w", row.ID, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, row.Get(colExpiresAt))
	if err != nil {
		return models.CheckInToken{}, fmt.Errorf("token row %s: bad expires_at: %w", row.ID, err)
	}
	return models.CheckInToken{
		TokenID:       row.Get(colTokenID),
		ParticipantID: row.Get(colParticipantID),
		AgendaItemID:  row.Get(colAgendaItemID),
		DeviceID:      row.Get(colDeviceID),
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}, nil
}
