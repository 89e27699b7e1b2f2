// Package attendance implements the append-only ledger of successful
// check-ins.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/checkin/models"
	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
)

const (
	colRecordID        = "id"
	colParticipantID   = "participant_id"
	colAgendaItemID    = "agenda_item_id"
	colCheckinTime     = "checkin_time"
	colMethod          = "checkin_method"
	colScannerDeviceID = "scanner_device_id"
	colValid           = "is_valid"
)

// Ledger owns the attendance log collection. It only ever appends; duplicate
// rejection is evaluated by the orchestrator immediately before Record, which
// keeps the check-then-act race window explicit and testable instead of
// buried in here.
type Ledger struct {
	store recordstore.Store
}

func NewLedger(store recordstore.Store) *Ledger {
	return &Ledger{store: store}
}

// HasCheckedIn scans for a valid record of the pair. O(n) over attendance
// volume, bounded by event size.
func (l *Ledger) HasCheckedIn(ctx context.Context, participantID, agendaItemID string) (bool, error) {
	rows, err := l.store.Scan(ctx, roster.CollectionAttendanceLog)
	if err != nil {
		return false, fmt.Errorf("scan attendance log: %w", err)
	}
	for _, row := range rows {
		if row.Get(colParticipantID) == participantID &&
			row.Get(colAgendaItemID) == agendaItemID &&
			row.Get(colValid) == "TRUE" {
			return true, nil
		}
	}
	return false, nil
}

// Record appends a new attendance record. It never rejects duplicates itself.
func (l *Ledger) Record(ctx context.Context, participantID, agendaItemID string, checkinTime time.Time, method, scannerDeviceID string) (models.AttendanceRecord, error) {
	rec := models.AttendanceRecord{
		RecordID:        uuid.NewString(),
		ParticipantID:   participantID,
		AgendaItemID:    agendaItemID,
		CheckinTime:     checkinTime,
		Method:          method,
		ScannerDeviceID: scannerDeviceID,
		Valid:           true,
	}
	_, err := l.store.Append(ctx, roster.CollectionAttendanceLog, map[string]string{
		colRecordID:        rec.RecordID,
		colParticipantID:   rec.ParticipantID,
		colAgendaItemID:    rec.AgendaItemID,
		colCheckinTime:     rec.CheckinTime.UTC().Format(time.RFC3339Nano),
		colMethod:          rec.Method,
		colScannerDeviceID: rec.ScannerDeviceID,
		colValid:           "TRUE",
	})
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("append attendance record: %w", err)
	}
	return rec, nil
}
