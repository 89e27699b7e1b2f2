package roster

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/recordstore"
)

// seedPassword is the login for every seeded account. Demo data only; the
// bootstrap endpoint that triggers seeding is itself key-protected.
const seedPassword = "test1234"

// Bootstrap prepares the store for a demo event. With clearData it first
// wipes every collection. Seeding is skip-if-present: running bootstrap twice
// without clearData leaves the dataset unchanged instead of duplicating rows.
// Returns the names of the collections that were (re)seeded.
func Bootstrap(ctx context.Context, store recordstore.Store, clearData bool) ([]string, error) {
	if clearData {
		g, gctx := errgroup.WithContext(ctx)
		for _, collection := range Collections {
			collection := collection
			g.Go(func() error {
				rows, err := store.Scan(gctx, collection)
				if err != nil {
					return fmt.Errorf("clear %s: %w", collection, err)
				}
				for _, row := range rows {
					if err := store.Delete(gctx, collection, row.ID); err != nil {
						return fmt.Errorf("clear %s: %w", collection, err)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	existing, err := store.Scan(ctx, CollectionAdmins)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	loginHash := string(hash)
	today := time.Now().Format("2006-01-02")

	seeds := []struct {
		collection string
		rows       []map[string]string
	}{
		{CollectionAdmins, []map[string]string{
			{"id": "1", "username": "admin", "password_hash": loginHash, "role": "SUPER_ADMIN", "last_login": ""},
			{"id": "2", "username": "staff_01", "password_hash": loginHash, "role": "CHECKIN_STAFF", "last_login": ""},
		}},
		{CollectionParticipants, []map[string]string{
			{"id": "P001", "name": "Wang Xiaoming", "email": "ming@test.com", "phone_number": "0910123456", "organization": "College of Technology", "login_hash": loginHash},
			{"id": "P002", "name": "Chen Dahua", "email": "hua@test.com", "phone_number": "0920654321", "organization": "College of Medicine", "login_hash": loginHash},
		}},
		{CollectionEvents, []map[string]string{
			{"event_id": "E001", "event_title": "2026 Annual Research Conference", "event_description": "Annual academic gathering", "max_capacity": "300", "is_active": "TRUE"},
		}},
		{CollectionAgendaItems, []map[string]string{
			{"id": "A101", "event_id": "E001", "agenda_title": "Opening Keynote", "start_time": "2026-01-10T09:00:00+08:00", "end_time": "2026-01-10T10:30:00+08:00", "location": "Grand Hall", "checkin_window_minutes": "30"},
			{"id": "A102", "event_id": "E001", "agenda_title": "Breakout: AI Applications", "start_time": "2026-01-10T11:00:00+08:00", "end_time": "2026-01-10T12:00:00+08:00", "location": "Room A203", "checkin_window_minutes": "15"},
		}},
		{CollectionRegistrations, []map[string]string{
			{"id": "1", "participant_id": "P001", "event_id": "E001", "registration_date": today, "is_paid": "TRUE"},
			{"id": "2", "participant_id": "P002", "event_id": "E001", "registration_date": today, "is_paid": "TRUE"},
		}},
	}

	seeded := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		for _, values := range seed.rows {
			if _, err := store.Append(ctx, seed.collection, values); err != nil {
				return nil, fmt.Errorf("seed %s: %w", seed.collection, err)
			}
		}
		seeded = append(seeded, seed.collection)
	}
	return seeded, nil
}
